// Package geojson provides the GeoJSON wire types used by the service and their
// conversion to and from orb geometries.
package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidGeometry is returned when a geometry cannot serve as a query area.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry types understood by this package.
const (
	TypePoint        = "Point"
	TypePolygon      = "Polygon"
	TypeMultiPolygon = "MultiPolygon"
)

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Point returns the coordinates as a Point [lon, lat].
// Returns error if geometry is not a Point.
func (g *Geometry) Point() ([]float64, error) {
	if g.Type != TypePoint {
		return nil, fmt.Errorf("geometry is not a Point, got %s", g.Type)
	}
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Point coordinates: %w", err)
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("invalid Point coordinates: expected at least 2 values, got %d", len(coords))
	}
	return coords, nil
}

// Polygon returns the coordinates as a Polygon [][][lon, lat].
// Returns error if geometry is not a Polygon.
func (g *Geometry) Polygon() ([][][]float64, error) {
	if g.Type != TypePolygon {
		return nil, fmt.Errorf("geometry is not a Polygon, got %s", g.Type)
	}
	var coords [][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Polygon coordinates: %w", err)
	}
	return coords, nil
}

// MultiPolygon returns the coordinates as a MultiPolygon [][][][lon, lat].
// Returns error if geometry is not a MultiPolygon.
func (g *Geometry) MultiPolygon() ([][][][]float64, error) {
	if g.Type != TypeMultiPolygon {
		return nil, fmt.Errorf("geometry is not a MultiPolygon, got %s", g.Type)
	}
	var coords [][][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal MultiPolygon coordinates: %w", err)
	}
	return coords, nil
}

// Orb converts the geometry to an orb geometry. Only Point, Polygon and
// MultiPolygon are supported.
func (g *Geometry) Orb() (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}

	switch g.Type {
	case TypePoint:
		coords, err := g.Point()
		if err != nil {
			return nil, err
		}
		return orb.Point{coords[0], coords[1]}, nil

	case TypePolygon:
		coords, err := g.Polygon()
		if err != nil {
			return nil, err
		}
		return toOrbPolygon(coords)

	case TypeMultiPolygon:
		coords, err := g.MultiPolygon()
		if err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(coords))
		for i, polygon := range coords {
			p, err := toOrbPolygon(polygon)
			if err != nil {
				return nil, fmt.Errorf("polygon %d: %w", i, err)
			}
			mp = append(mp, p)
		}
		return mp, nil

	default:
		return nil, fmt.Errorf("unsupported geometry type: %s", g.Type)
	}
}

func toOrbPolygon(coords [][][]float64) (orb.Polygon, error) {
	polygon := make(orb.Polygon, 0, len(coords))
	for i, ring := range coords {
		r := make(orb.Ring, 0, len(ring))
		for j, point := range ring {
			if len(point) < 2 {
				return nil, fmt.Errorf("ring %d point %d: expected at least 2 coordinates", i, j)
			}
			r = append(r, orb.Point{point[0], point[1]})
		}
		polygon = append(polygon, r)
	}
	return polygon, nil
}

// QueryPolygon parses and validates the geometry as an area of interest.
// The result is either an orb.Polygon or an orb.MultiPolygon. All failures
// wrap ErrInvalidGeometry.
func (g *Geometry) QueryPolygon() (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: geometry is required", ErrInvalidGeometry)
	}
	if g.Type != TypePolygon && g.Type != TypeMultiPolygon {
		return nil, fmt.Errorf("%w: expected Polygon or MultiPolygon, got %q", ErrInvalidGeometry, g.Type)
	}

	geom, err := g.Orb()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if err := ValidateArea(geom); err != nil {
		return nil, err
	}
	return geom, nil
}

// ValidateArea checks that geom is a Polygon or MultiPolygon with closed,
// finite rings and a non-zero area.
func ValidateArea(geom orb.Geometry) error {
	var polygons []orb.Polygon
	switch v := geom.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{v}
	case orb.MultiPolygon:
		polygons = v
	default:
		return fmt.Errorf("%w: expected Polygon or MultiPolygon", ErrInvalidGeometry)
	}
	if len(polygons) == 0 {
		return fmt.Errorf("%w: empty multipolygon", ErrInvalidGeometry)
	}

	for i, p := range polygons {
		if len(p) == 0 {
			return fmt.Errorf("%w: polygon %d has no rings", ErrInvalidGeometry, i)
		}
		for j, ring := range p {
			if len(ring) < 4 {
				return fmt.Errorf("%w: polygon %d ring %d has %d points, need at least 4", ErrInvalidGeometry, i, j, len(ring))
			}
			if !ring.Closed() {
				return fmt.Errorf("%w: polygon %d ring %d is not closed", ErrInvalidGeometry, i, j)
			}
			for _, pt := range ring {
				if math.IsNaN(pt[0]) || math.IsNaN(pt[1]) || math.IsInf(pt[0], 0) || math.IsInf(pt[1], 0) {
					return fmt.Errorf("%w: polygon %d ring %d has a non-finite coordinate", ErrInvalidGeometry, i, j)
				}
				if pt[0] < -180 || pt[0] > 180 || pt[1] < -90 || pt[1] > 90 {
					return fmt.Errorf("%w: coordinate (%g, %g) outside lon/lat range", ErrInvalidGeometry, pt[0], pt[1])
				}
			}
		}
		if ringArea(p[0]) == 0 {
			return fmt.Errorf("%w: polygon %d has zero area", ErrInvalidGeometry, i)
		}
	}
	return nil
}

// RepresentativePoint returns the first vertex of the first ring of a Polygon
// or MultiPolygon. Any other shape yields false.
func (g *Geometry) RepresentativePoint() (orb.Point, bool) {
	if g == nil {
		return orb.Point{}, false
	}

	var ring [][]float64
	switch g.Type {
	case TypePolygon:
		coords, err := g.Polygon()
		if err != nil || len(coords) == 0 {
			return orb.Point{}, false
		}
		ring = coords[0]
	case TypeMultiPolygon:
		coords, err := g.MultiPolygon()
		if err != nil || len(coords) == 0 || len(coords[0]) == 0 {
			return orb.Point{}, false
		}
		ring = coords[0][0]
	default:
		return orb.Point{}, false
	}

	if len(ring) == 0 || len(ring[0]) < 2 {
		return orb.Point{}, false
	}
	return orb.Point{ring[0][0], ring[0][1]}, true
}

// BBox computes the bounding box of the geometry.
// Returns [west, south, east, north].
func (g *Geometry) BBox() ([]float64, error) {
	geom, err := g.Orb()
	if err != nil {
		return nil, err
	}
	b := geom.Bound()
	return []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}, nil
}

// NewGeometry encodes an orb Point, Polygon or MultiPolygon as GeoJSON.
func NewGeometry(geom orb.Geometry) (*Geometry, error) {
	var (
		typ    string
		coords any
	)

	switch v := geom.(type) {
	case orb.Point:
		typ, coords = TypePoint, []float64{v[0], v[1]}
	case orb.Polygon:
		typ, coords = TypePolygon, fromOrbPolygon(v)
	case orb.MultiPolygon:
		mp := make([][][][]float64, len(v))
		for i, p := range v {
			mp[i] = fromOrbPolygon(p)
		}
		typ, coords = TypeMultiPolygon, mp
	default:
		return nil, fmt.Errorf("unsupported geometry type: %T", geom)
	}

	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s coordinates: %w", typ, err)
	}
	return &Geometry{Type: typ, Coordinates: raw}, nil
}

func fromOrbPolygon(p orb.Polygon) [][][]float64 {
	rings := make([][][]float64, len(p))
	for i, ring := range p {
		rings[i] = make([][]float64, len(ring))
		for j, pt := range ring {
			rings[i][j] = []float64{pt[0], pt[1]}
		}
	}
	return rings
}

// ringArea returns the shoelace area of a ring, signed positive for
// counter-clockwise rings.
func ringArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}
