// Package forecast extrapolates class values from classified features
// collected over several acquisition dates.
package forecast

import (
	"github.com/paulmach/orb"

	"github.com/TechRanger101/AgriSense-App/pkg/geojson"
)

// Sample is one observed class at a representative coordinate.
type Sample struct {
	Point    orb.Point
	Class    int
	Geometry *geojson.Geometry
}

// CollectStats counts what Collect saw and why features were left out.
type CollectStats struct {
	Features  int
	Collected int
	NoPoint   int
	NoClass   int
}

// Skipped returns the number of features that produced no sample.
func (s CollectStats) Skipped() int {
	return s.NoPoint + s.NoClass
}

// Collect extracts a sample from every feature of every collection, in
// order. The coordinate is the first vertex of the feature's first ring and
// the class is read from property. Features lacking either are counted and
// skipped.
func Collect(collections []*geojson.FeatureCollection, property string) ([]Sample, CollectStats) {
	var (
		samples []Sample
		stats   CollectStats
	)

	for _, fc := range collections {
		if fc == nil {
			continue
		}
		for _, f := range fc.Features {
			stats.Features++
			if f == nil {
				stats.NoPoint++
				continue
			}

			pt, ok := f.Geometry.RepresentativePoint()
			if !ok {
				stats.NoPoint++
				continue
			}
			class, ok := f.IntProperty(property)
			if !ok {
				stats.NoClass++
				continue
			}

			samples = append(samples, Sample{Point: pt, Class: class, Geometry: f.Geometry})
		}
	}

	stats.Collected = len(samples)
	return samples, stats
}
