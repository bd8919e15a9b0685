package geojson

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func mustGeometry(t *testing.T, raw string) *Geometry {
	t.Helper()
	var g Geometry
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		t.Fatalf("failed to unmarshal geometry: %v", err)
	}
	return &g
}

func TestPoint(t *testing.T) {
	g := mustGeometry(t, `{"type":"Point","coordinates":[-122.4,37.8]}`)

	result, err := g.Point()
	if err != nil {
		t.Fatalf("Point() error: %v", err)
	}

	if len(result) != 2 || result[0] != -122.4 || result[1] != 37.8 {
		t.Errorf("Point() = %v, want [-122.4, 37.8]", result)
	}
}

func TestPolygon_WrongType(t *testing.T) {
	g := mustGeometry(t, `{"type":"Point","coordinates":[1,2]}`)

	if _, err := g.Polygon(); err == nil {
		t.Error("Polygon() should return error for non-Polygon geometry")
	}
}

func TestQueryPolygon(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "valid polygon",
			raw:  `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`,
		},
		{
			name: "valid multipolygon",
			raw:  `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]],[[[2,2],[3,2],[3,3],[2,2]]]]}`,
		},
		{
			name:    "point",
			raw:     `{"type":"Point","coordinates":[0,0]}`,
			wantErr: true,
		},
		{
			name:    "unclosed ring",
			raw:     `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`,
			wantErr: true,
		},
		{
			name:    "too few points",
			raw:     `{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,0]]]}`,
			wantErr: true,
		},
		{
			name:    "zero area",
			raw:     `{"type":"Polygon","coordinates":[[[0,0],[1,1],[2,2],[0,0]]]}`,
			wantErr: true,
		},
		{
			name:    "out of range latitude",
			raw:     `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,95],[0,0]]]}`,
			wantErr: true,
		},
		{
			name:    "malformed coordinates",
			raw:     `{"type":"Polygon","coordinates":[0,1]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGeometry(t, tt.raw)
			_, err := g.QueryPolygon()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidGeometry) {
					t.Errorf("expected ErrInvalidGeometry, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestQueryPolygon_Nil(t *testing.T) {
	var g *Geometry
	if _, err := g.QueryPolygon(); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry for nil geometry, got %v", err)
	}
}

func TestRepresentativePoint(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   orb.Point
		wantOK bool
	}{
		{
			name:   "polygon uses first exterior vertex",
			raw:    `{"type":"Polygon","coordinates":[[[5,6],[7,6],[7,8],[5,6]],[[5.5,6.5],[6,6.5],[6,7],[5.5,6.5]]]}`,
			want:   orb.Point{5, 6},
			wantOK: true,
		},
		{
			name:   "multipolygon uses first polygon",
			raw:    `{"type":"MultiPolygon","coordinates":[[[[1,2],[3,2],[3,4],[1,2]]],[[[9,9],[10,9],[10,10],[9,9]]]]}`,
			want:   orb.Point{1, 2},
			wantOK: true,
		},
		{
			name:   "three dimensional vertex",
			raw:    `{"type":"Polygon","coordinates":[[[1,2,30],[3,2,30],[3,4,30],[1,2,30]]]}`,
			want:   orb.Point{1, 2},
			wantOK: true,
		},
		{
			name: "point has no ring",
			raw:  `{"type":"Point","coordinates":[1,2]}`,
		},
		{
			name: "empty polygon",
			raw:  `{"type":"Polygon","coordinates":[]}`,
		},
		{
			name: "empty ring",
			raw:  `{"type":"Polygon","coordinates":[[]]}`,
		},
		{
			name: "nested too shallow",
			raw:  `{"type":"Polygon","coordinates":[[1,2],[3,4]]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGeometry(t, tt.raw)
			got, ok := g.RepresentativePoint()
			if ok != tt.wantOK {
				t.Fatalf("RepresentativePoint() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("RepresentativePoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewGeometry_RoundTripsThroughOrb(t *testing.T) {
	polygon := orb.Polygon{
		{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}},
		{{0.5, 0.5}, {0.5, 1}, {1, 1}, {1, 0.5}, {0.5, 0.5}},
	}

	g, err := NewGeometry(polygon)
	if err != nil {
		t.Fatalf("NewGeometry() error: %v", err)
	}
	if g.Type != TypePolygon {
		t.Errorf("expected type Polygon, got %s", g.Type)
	}

	back, err := g.Orb()
	if err != nil {
		t.Fatalf("Orb() error: %v", err)
	}
	got, ok := back.(orb.Polygon)
	if !ok {
		t.Fatalf("expected orb.Polygon, got %T", back)
	}
	if !got.Equal(polygon) {
		t.Errorf("round trip mismatch: %v != %v", got, polygon)
	}
}

func TestBBox(t *testing.T) {
	g := mustGeometry(t, `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]],[[[2,-3],[3,2],[3,3],[2,-3]]]]}`)

	bbox, err := g.BBox()
	if err != nil {
		t.Fatalf("BBox() error: %v", err)
	}
	want := []float64{0, -3, 3, 3}
	for i := range want {
		if bbox[i] != want[i] {
			t.Errorf("BBox()[%d] = %v, want %v", i, bbox[i], want[i])
		}
	}
}

func TestToWKT(t *testing.T) {
	polygon := orb.Polygon{{{-122.5, 37.8}, {-122.4, 37.8}, {-122.4, 37.9}, {-122.5, 37.8}}}

	wkt, err := ToWKT(polygon)
	if err != nil {
		t.Fatalf("ToWKT() error: %v", err)
	}
	want := "POLYGON((-122.5 37.8,-122.4 37.8,-122.4 37.9,-122.5 37.8))"
	if wkt != want {
		t.Errorf("ToWKT() = %s, want %s", wkt, want)
	}

	mwkt, err := ToWKT(orb.MultiPolygon{polygon, polygon})
	if err != nil {
		t.Fatalf("ToWKT() error: %v", err)
	}
	if !strings.HasPrefix(mwkt, "MULTIPOLYGON(((") {
		t.Errorf("unexpected multipolygon WKT: %s", mwkt)
	}

	if _, err := ToWKT(orb.Point{1, 2}); err == nil {
		t.Error("expected error for Point")
	}
}

func TestFeatureCollection_EmptyEncoding(t *testing.T) {
	data, err := json.Marshal(NewFeatureCollection())
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `{"type":"FeatureCollection","features":[]}` {
		t.Errorf("unexpected encoding: %s", data)
	}

	var fc FeatureCollection
	if err := json.Unmarshal([]byte(`{"type":"FeatureCollection","features":null}`), &fc); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if fc.Features == nil {
		t.Error("expected non-nil features after decoding null")
	}
}

func TestFeature_IntProperty(t *testing.T) {
	var f Feature
	if err := json.Unmarshal([]byte(`{"type":"Feature","geometry":null,"properties":{"class_no":3,"frac":2.5,"name":"x"}}`), &f); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if v, ok := f.IntProperty("class_no"); !ok || v != 3 {
		t.Errorf("IntProperty(class_no) = %d, %v", v, ok)
	}
	if _, ok := f.IntProperty("frac"); ok {
		t.Error("fractional value should not be accepted")
	}
	if _, ok := f.IntProperty("name"); ok {
		t.Error("string value should not be accepted")
	}
	if _, ok := f.IntProperty("missing"); ok {
		t.Error("missing value should not be accepted")
	}
}
