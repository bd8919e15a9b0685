// Package clip intersects vectorized class regions with a query area and
// renders the result as GeoJSON features.
package clip

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"

	"github.com/TechRanger101/AgriSense-App/internal/raster"
	"github.com/TechRanger101/AgriSense-App/pkg/geojson"
)

// MinArea is the area, in squared coordinate units, at or below which a
// clipped result is discarded.
const MinArea = 1e-15

// ErrInvalidGeometry matches every query validation failure.
var ErrInvalidGeometry = geojson.ErrInvalidGeometry

// InvalidGeometryError reports a query area that cannot be clipped against.
type InvalidGeometryError struct {
	Err error
}

func (e *InvalidGeometryError) Error() string {
	return e.Err.Error()
}

func (e *InvalidGeometryError) Unwrap() error {
	return e.Err
}

// Clip intersects every region with the query polygon (or each member of a
// query multipolygon) and returns one feature per region that keeps a
// non-empty part. Each feature carries the region's class under property.
// A single part is emitted as a Polygon, several parts as a MultiPolygon.
func Clip(regions []raster.Region, query orb.Geometry, property string) (*geojson.FeatureCollection, error) {
	queries, err := queryPolygons(query)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for _, r := range regions {
		f, err := clipFeature([]orb.Polygon{r.Polygon}, queries, property, int(r.Class))
		if err != nil {
			return nil, err
		}
		if f != nil {
			fc.Append(f)
		}
	}
	return fc, nil
}

// ClipFeatures clips already classified features again, keeping the parts of
// a multipolygon feature together. Features without a polygonal geometry or
// an integral property are dropped.
func ClipFeatures(fc *geojson.FeatureCollection, query orb.Geometry, property string) (*geojson.FeatureCollection, error) {
	queries, err := queryPolygons(query)
	if err != nil {
		return nil, err
	}

	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		class, ok := f.IntProperty(property)
		if !ok || f.Geometry == nil {
			continue
		}
		shape, err := f.Geometry.Orb()
		if err != nil {
			continue
		}

		var polygons []orb.Polygon
		switch g := shape.(type) {
		case orb.Polygon:
			polygons = []orb.Polygon{g}
		case orb.MultiPolygon:
			polygons = g
		default:
			continue
		}

		clipped, err := clipFeature(polygons, queries, property, class)
		if err != nil {
			return nil, err
		}
		if clipped != nil {
			out.Append(clipped)
		}
	}
	return out, nil
}

// queryPart is one query polygon ready for intersection.
type queryPart struct {
	bound orb.Bound
	shape geom.Geometry
}

// clipFeature intersects polygons with every query polygon. It returns nil
// when nothing above MinArea remains.
func clipFeature(polygons []orb.Polygon, queries []queryPart, property string, class int) (*geojson.Feature, error) {
	var parts orb.MultiPolygon
	for _, p := range polygons {
		pb := p.Bound()
		var pg geom.Geometry
		converted := false
		for _, q := range queries {
			if !pb.Intersects(q.bound) {
				continue
			}
			if !converted {
				var err error
				if pg, err = toGeom(p); err != nil {
					return nil, fmt.Errorf("class %d region: %w", class, err)
				}
				converted = true
			}
			clipped, err := intersect(pg, q.shape)
			if err != nil {
				return nil, fmt.Errorf("class %d region: %w", class, err)
			}
			for _, part := range clipped {
				if polygonArea(part) > MinArea {
					parts = append(parts, part)
				}
			}
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}

	var shape orb.Geometry = parts
	if len(parts) == 1 {
		shape = parts[0]
	}
	g, err := geojson.NewGeometry(shape)
	if err != nil {
		return nil, fmt.Errorf("failed to encode clipped region: %w", err)
	}

	f := geojson.NewFeature(g)
	f.Properties[property] = class
	return f, nil
}

func queryPolygons(query orb.Geometry) ([]queryPart, error) {
	if query == nil {
		return nil, &InvalidGeometryError{Err: fmt.Errorf("%w: query is nil", ErrInvalidGeometry)}
	}
	if err := geojson.ValidateArea(query); err != nil {
		if !errors.Is(err, ErrInvalidGeometry) {
			err = fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		return nil, &InvalidGeometryError{Err: err}
	}

	var polygons []orb.Polygon
	switch q := query.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{q}
	case orb.MultiPolygon:
		polygons = q
	default:
		return nil, &InvalidGeometryError{Err: fmt.Errorf("%w: unsupported type %s", ErrInvalidGeometry, query.GeoJSONType())}
	}

	parts := make([]queryPart, 0, len(polygons))
	for _, p := range polygons {
		g, err := toGeom(p)
		if err != nil {
			return nil, &InvalidGeometryError{Err: fmt.Errorf("%w: %v", ErrInvalidGeometry, err)}
		}
		parts = append(parts, queryPart{bound: p.Bound(), shape: g})
	}
	return parts, nil
}
