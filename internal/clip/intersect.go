package clip

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/peterstace/simplefeatures/geom"
)

// Intersect returns the parts of a that also lie in b. Exterior rings of the
// result are counter-clockwise and holes clockwise, every ring starts at its
// lowest vertex and parts are ordered by that vertex. Touching boundaries
// yield no parts.
func Intersect(a, b orb.Polygon) (orb.MultiPolygon, error) {
	ga, err := toGeom(a)
	if err != nil {
		return nil, err
	}
	gb, err := toGeom(b)
	if err != nil {
		return nil, err
	}
	return intersect(ga, gb)
}

func toGeom(g orb.Geometry) (geom.Geometry, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("failed to encode %s: %w", g.GeoJSONType(), err)
	}
	out, err := geom.UnmarshalWKB(data)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("failed to decode %s: %w", g.GeoJSONType(), err)
	}
	return out, nil
}

func intersect(a, b geom.Geometry) (orb.MultiPolygon, error) {
	out, err := geom.Intersection(a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to intersect polygons: %w", err)
	}
	if out.IsEmpty() {
		return nil, nil
	}

	g, err := wkb.Unmarshal(out.AsBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to decode intersection: %w", err)
	}

	parts := polygonal(g, nil)
	for i, p := range parts {
		parts[i] = canonical(p)
	}
	sort.Slice(parts, func(i, j int) bool { return less(parts[i][0][0], parts[j][0][0]) })
	return parts, nil
}

// polygonal appends the polygons of g to dst. Lines and points left where
// the inputs only touch are dropped.
func polygonal(g orb.Geometry, dst orb.MultiPolygon) orb.MultiPolygon {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) > 0 && len(v[0]) >= 4 {
			dst = append(dst, v)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			dst = polygonal(p, dst)
		}
	case orb.Collection:
		for _, m := range v {
			dst = polygonal(m, dst)
		}
	}
	return dst
}

// canonical orients rings, rotates each to start at its smallest vertex and
// sorts the holes, so equal polygons compare equal.
func canonical(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		r = rotate(r)
		if (i == 0) != (signedArea(r) > 0) {
			r.Reverse()
		}
		out[i] = r
	}
	holes := out[1:]
	sort.Slice(holes, func(i, j int) bool { return less(holes[i][0], holes[j][0]) })
	return out
}

// rotate returns a copy of the closed ring r starting at its smallest vertex.
func rotate(r orb.Ring) orb.Ring {
	pts := r[:len(r)-1]
	first := 0
	for i := range pts {
		if less(pts[i], pts[first]) {
			first = i
		}
	}
	out := make(orb.Ring, 0, len(r))
	out = append(out, pts[first:]...)
	out = append(out, pts[:first]...)
	return append(out, out[0])
}

func less(a, b orb.Point) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

func polygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	a := math.Abs(signedArea(p[0]))
	for _, h := range p[1:] {
		a -= math.Abs(signedArea(h))
	}
	return a
}
