package forecast

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/TechRanger101/AgriSense-App/pkg/geojson"
)

// Mode selects how a forecast turns samples into predictions.
type Mode string

const (
	// ModeRegression fits a linear model over coordinates and predicts a
	// random subset of the samples.
	ModeRegression Mode = "regression"
	// ModeMean stamps the rounded mean class onto every sample.
	ModeMean Mode = "mean"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeRegression, ModeMean:
		return m, nil
	default:
		return "", fmt.Errorf("unknown forecast mode %q", s)
	}
}

// Output property names.
const (
	ClassProperty     = "class_no"
	PredictedProperty = "predicted_class"
)

// DefaultMaxSamples bounds the number of predicted features.
const DefaultMaxSamples = 1000

// Options configures Regression.
type Options struct {
	// MaxSamples caps the number of predictions. Zero means DefaultMaxSamples.
	MaxSamples int
	// Rand drives sampling. Nil uses a randomly seeded source.
	Rand *rand.Rand
}

// Run dispatches to the forecast for mode.
func Run(mode Mode, samples []Sample, opts Options) (*geojson.FeatureCollection, error) {
	switch mode {
	case ModeRegression:
		return Regression(samples, opts), nil
	case ModeMean:
		return ClassMean(samples), nil
	default:
		return nil, fmt.Errorf("unknown forecast mode %q", mode)
	}
}

// Regression fits a model to samples and predicts min(MaxSamples, n) of them
// chosen without replacement. Predictions are truncated toward zero and are
// not clamped to the class range. Each output feature reuses the geometry
// first seen at the sampled coordinate.
func Regression(samples []Sample, opts Options) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	model, err := Fit(samples)
	if err != nil {
		return fc
	}

	first := make(map[orb.Point]*geojson.Geometry, len(samples))
	for _, s := range samples {
		if _, ok := first[s.Point]; !ok {
			first[s.Point] = s.Geometry
		}
	}

	limit := opts.MaxSamples
	if limit <= 0 {
		limit = DefaultMaxSamples
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	for i, idx := range sampleIndices(rng, len(samples), limit) {
		s := samples[idx]
		f := geojson.NewFeature(first[s.Point])
		f.ID = strconv.Itoa(i)
		f.Properties[ClassProperty] = int(math.Trunc(model.Predict(s.Point)))
		fc.Append(f)
	}
	return fc
}

// ClassMean rounds the mean class half to even and stamps it onto the
// geometry of every sample.
func ClassMean(samples []Sample) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(samples) == 0 {
		return fc
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s.Class)
	}
	predicted := int(math.RoundToEven(sum / float64(len(samples))))

	for _, s := range samples {
		f := geojson.NewFeature(s.Geometry)
		f.Properties[PredictedProperty] = predicted
		fc.Append(f)
	}
	return fc
}

// sampleIndices draws min(k, n) distinct indices from [0, n) with a partial
// Fisher-Yates shuffle, in draw order.
func sampleIndices(rng *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
