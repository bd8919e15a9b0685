package geojson

import (
	"encoding/json"
	"fmt"
	"math"
)

// Feature is a GeoJSON feature. ID is omitted when empty.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// NewFeature creates a feature with an empty property map.
func NewFeature(g *Geometry) *Feature {
	return &Feature{
		Type:       "Feature",
		Geometry:   g,
		Properties: make(map[string]any),
	}
}

// IntProperty returns an integral numeric property. Values decoded from JSON
// arrive as float64; anything with a fractional part is rejected.
func (f *Feature) IntProperty(name string) (int, bool) {
	if f == nil || f.Properties == nil {
		return 0, false
	}

	switch v := f.Properties[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// FeatureCollection is a GeoJSON FeatureCollection. Features always encodes
// as an array, never null.
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection returns an empty collection.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: []*Feature{},
	}
}

// Append adds features to the collection.
func (fc *FeatureCollection) Append(features ...*Feature) {
	fc.Features = append(fc.Features, features...)
}

// Len returns the number of features.
func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// UnmarshalJSON accepts a FeatureCollection and normalises a missing or null
// features member to an empty slice.
func (fc *FeatureCollection) UnmarshalJSON(data []byte) error {
	type plain FeatureCollection
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Type != "" && v.Type != "FeatureCollection" {
		return fmt.Errorf("expected FeatureCollection, got %q", v.Type)
	}
	if v.Features == nil {
		v.Features = []*Feature{}
	}
	v.Type = "FeatureCollection"
	*fc = FeatureCollection(v)
	return nil
}
