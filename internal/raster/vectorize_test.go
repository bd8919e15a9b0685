package raster

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
)

func rasterOf(width, height int, values ...uint8) *ClassRaster {
	return &ClassRaster{Width: width, Height: height, Values: values}
}

func unitTransform(t *testing.T, width, height int) GeoTransform {
	t.Helper()
	gt, err := FromBounds(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{float64(width), float64(height)}}, width, height)
	if err != nil {
		t.Fatalf("FromBounds failed: %v", err)
	}
	return gt
}

func polygonArea(p orb.Polygon) float64 {
	a := math.Abs(signedArea(p[0]))
	for _, h := range p[1:] {
		a -= math.Abs(signedArea(h))
	}
	return a
}

func TestFromBounds(t *testing.T) {
	b := orb.Bound{Min: orb.Point{36.0, -2.0}, Max: orb.Point{37.0, -1.5}}
	gt, err := FromBounds(b, 512, 354)
	if err != nil {
		t.Fatalf("FromBounds failed: %v", err)
	}

	if got := gt.Apply(0, 0); got != (orb.Point{36.0, -1.5}) {
		t.Errorf("Apply(0,0) = %v, want top-left corner", got)
	}
	got := gt.Apply(512, 354)
	if math.Abs(got[0]-37.0) > 1e-12 || math.Abs(got[1]+2.0) > 1e-12 {
		t.Errorf("Apply(w,h) = %v, want bottom-right corner", got)
	}

	wantArea := (1.0 / 512) * (0.5 / 354)
	if math.Abs(gt.PixelArea()-wantArea) > 1e-18 {
		t.Errorf("PixelArea() = %v, want %v", gt.PixelArea(), wantArea)
	}

	if _, err := FromBounds(b, 0, 10); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := FromBounds(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 2}}, 10, 10); err == nil {
		t.Error("expected error for empty bounds")
	}
}

func TestVectorize_SinglePixels(t *testing.T) {
	c := rasterOf(2, 2, 2, 3, 7, 0)
	regions := Vectorize(c, unitTransform(t, 2, 2))

	if len(regions) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(regions))
	}

	wantClasses := []uint8{2, 3, 7}
	for i, r := range regions {
		if r.Class != wantClasses[i] {
			t.Errorf("region %d: class %d, want %d", i, r.Class, wantClasses[i])
		}
		if len(r.Polygon) != 1 {
			t.Errorf("region %d: expected 1 ring, got %d", i, len(r.Polygon))
		}
		if len(r.Polygon[0]) != 5 {
			t.Errorf("region %d: expected 5 ring points, got %d", i, len(r.Polygon[0]))
		}
		if a := polygonArea(r.Polygon); math.Abs(a-1) > 1e-12 {
			t.Errorf("region %d: area %v, want 1", i, a)
		}
	}

	// Pixel (col 0, row 0) spans x 0..1 and y 1..2 with north up.
	b := regions[0].Polygon.Bound()
	if b.Min != (orb.Point{0, 1}) || b.Max != (orb.Point{1, 2}) {
		t.Errorf("unexpected bound for first region: %v", b)
	}
}

func TestVectorize_MergesRunsAndCollinearVertices(t *testing.T) {
	c := rasterOf(3, 2,
		4, 4, 4,
		4, 4, 4,
	)
	regions := Vectorize(c, unitTransform(t, 3, 2))

	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if n := len(regions[0].Polygon[0]); n != 5 {
		t.Errorf("expected rectangle with 5 points, got %d: %v", n, regions[0].Polygon[0])
	}
	if a := polygonArea(regions[0].Polygon); a != 6 {
		t.Errorf("area %v, want 6", a)
	}
}

func TestVectorize_Hole(t *testing.T) {
	c := rasterOf(3, 3,
		1, 1, 1,
		1, 2, 1,
		1, 1, 1,
	)
	regions := Vectorize(c, unitTransform(t, 3, 3))

	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}

	outer := regions[0]
	if outer.Class != 1 {
		t.Fatalf("expected class 1 first, got %d", outer.Class)
	}
	if len(outer.Polygon) != 2 {
		t.Fatalf("expected exterior plus one hole, got %d rings", len(outer.Polygon))
	}
	if outer.Polygon[0].Orientation() != orb.CCW {
		t.Error("exterior ring should be counter-clockwise")
	}
	if outer.Polygon[1].Orientation() != orb.CW {
		t.Error("hole should be clockwise")
	}
	if a := polygonArea(outer.Polygon); a != 8 {
		t.Errorf("area %v, want 8", a)
	}
}

func TestVectorize_DiagonalPinchKeepsHoleSeparate(t *testing.T) {
	c := rasterOf(3, 3,
		1, 1, 1,
		1, 0, 1,
		1, 1, 0,
	)
	regions := Vectorize(c, unitTransform(t, 3, 3))

	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	p := regions[0].Polygon
	if len(p) != 2 {
		t.Fatalf("expected exterior plus hole touching at a corner, got %d rings", len(p))
	}
	if a := polygonArea(p); a != 7 {
		t.Errorf("area %v, want 7", a)
	}
	for i, ring := range p {
		seen := make(map[orb.Point]bool)
		for _, pt := range ring[:len(ring)-1] {
			if seen[pt] {
				t.Errorf("ring %d visits %v twice", i, pt)
			}
			seen[pt] = true
		}
	}
}

func TestAssemble_EveryExteriorKept(t *testing.T) {
	rings := [][][2]int32{
		{{0, 0}, {0, 4}, {4, 4}, {4, 0}},
		{{5, 0}, {5, 1}, {6, 1}, {6, 0}},
		{{1, 1}, {3, 1}, {3, 3}, {1, 3}},
	}
	polygons := assemble(rings, unitTransform(t, 6, 4))

	if len(polygons) != 2 {
		t.Fatalf("expected 2 polygons, got %d", len(polygons))
	}
	if len(polygons[0]) != 2 {
		t.Errorf("expected the hole on the enclosing exterior, got %d rings", len(polygons[0]))
	}
	if a := polygonArea(polygons[0]); a != 12 {
		t.Errorf("first polygon area %v, want 12", a)
	}
	if len(polygons[1]) != 1 {
		t.Errorf("expected no holes on the second exterior, got %d rings", len(polygons[1]))
	}
	if a := polygonArea(polygons[1]); a != 1 {
		t.Errorf("second polygon area %v, want 1", a)
	}
	for i, p := range polygons {
		if p[0].Orientation() != orb.CCW {
			t.Errorf("polygon %d: exterior should be counter-clockwise", i)
		}
	}
}

func TestVectorize_DiagonalPixelsAreSeparateRegions(t *testing.T) {
	c := rasterOf(2, 2,
		5, 0,
		0, 5,
	)
	regions := Vectorize(c, unitTransform(t, 2, 2))
	if len(regions) != 2 {
		t.Fatalf("expected 4-connectivity to give 2 regions, got %d", len(regions))
	}
}

func TestVectorize_Mask(t *testing.T) {
	c := rasterOf(2, 1, 3, 3)
	regions := VectorizeMasked(c, unitTransform(t, 2, 1), []bool{true, false})

	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if a := polygonArea(regions[0].Polygon); a != 1 {
		t.Errorf("area %v, want 1", a)
	}
}

func TestVectorize_AllZero(t *testing.T) {
	if regions := Vectorize(rasterOf(2, 2, 0, 0, 0, 0), unitTransform(t, 2, 2)); len(regions) != 0 {
		t.Errorf("expected no regions, got %d", len(regions))
	}
}

func TestVectorize_AreaConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const w, h = 40, 27

	values := make([]uint8, w*h)
	for i := range values {
		values[i] = uint8(rng.Intn(4))
	}
	c := rasterOf(w, h, values...)

	b := orb.Bound{Min: orb.Point{36.7, -1.4}, Max: orb.Point{36.9, -1.25}}
	gt, err := FromBounds(b, w, h)
	if err != nil {
		t.Fatalf("FromBounds failed: %v", err)
	}

	regions := Vectorize(c, gt)

	perClass := make(map[uint8]float64)
	for _, r := range regions {
		perClass[r.Class] += polygonArea(r.Polygon)
		if r.Polygon[0].Orientation() != orb.CCW {
			t.Errorf("class %d: exterior not counter-clockwise", r.Class)
		}
		for _, hole := range r.Polygon[1:] {
			if hole.Orientation() != orb.CW {
				t.Errorf("class %d: hole not clockwise", r.Class)
			}
		}
	}

	for class, count := range c.Histogram() {
		if class == 0 {
			if _, ok := perClass[0]; ok {
				t.Error("class 0 must not be vectorized")
			}
			continue
		}
		want := float64(count) * gt.PixelArea()
		if math.Abs(perClass[class]-want) > 1e-9*want+1e-15 {
			t.Errorf("class %d: area %v, want %v", class, perClass[class], want)
		}
	}
}
