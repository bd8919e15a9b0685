package translate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/TechRanger101/AgriSense-App/pkg/geojson"
)

// envelope covers the shapes clients send a geometry in: a bare geometry, a
// Feature, or an object whose "geometry" member holds either.
type envelope struct {
	Type        string          `json:"type"`
	Geometry    json.RawMessage `json:"geometry"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// maxNesting bounds how many "geometry" wrappers are unwrapped.
const maxNesting = 3

// DecodeGeometry extracts a GeoJSON geometry from raw.
func DecodeGeometry(raw json.RawMessage) (*geojson.Geometry, error) {
	for depth := 0; depth <= maxNesting; depth++ {
		if isNull(raw) {
			return nil, ErrMissingGeometry
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}

		switch env.Type {
		case "Feature", "":
			if isNull(env.Geometry) {
				return nil, ErrMissingGeometry
			}
			raw = env.Geometry
			continue
		case "FeatureCollection":
			return nil, fmt.Errorf("%w: expected a single geometry, got a FeatureCollection", ErrInvalidGeometry)
		}

		if isNull(env.Coordinates) {
			return nil, fmt.Errorf("%w: %s has no coordinates", ErrInvalidGeometry, env.Type)
		}
		return &geojson.Geometry{Type: env.Type, Coordinates: env.Coordinates}, nil
	}
	return nil, fmt.Errorf("%w: geometry nested too deeply", ErrInvalidGeometry)
}

// DecodeQuery decodes raw and validates it as a query area.
func DecodeQuery(raw json.RawMessage) (orb.Geometry, error) {
	g, err := DecodeGeometry(raw)
	if err != nil {
		return nil, err
	}
	return g.QueryPolygon()
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
