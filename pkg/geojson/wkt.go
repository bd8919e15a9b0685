package geojson

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ToWKT converts a Polygon or MultiPolygon to WKT for PostGIS.
func ToWKT(geom orb.Geometry) (string, error) {
	switch v := geom.(type) {
	case orb.Polygon:
		return "POLYGON" + polygonWKT(v), nil
	case orb.MultiPolygon:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = polygonWKT(p)
		}
		return "MULTIPOLYGON(" + strings.Join(parts, ",") + ")", nil
	default:
		return "", fmt.Errorf("unsupported geometry type for WKT conversion: %T", geom)
	}
}

func polygonWKT(p orb.Polygon) string {
	rings := make([]string, len(p))
	for i, ring := range p {
		points := make([]string, len(ring))
		for j, pt := range ring {
			points[j] = formatFloat(pt[0]) + " " + formatFloat(pt[1])
		}
		rings[i] = "(" + strings.Join(points, ",") + ")"
	}
	return "(" + strings.Join(rings, ",") + ")"
}

// formatFloat formats a float64 for WKT output
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
