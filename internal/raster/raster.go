// Package raster holds classified rasters, their georeferencing and the
// vectorizer that turns them into polygons.
package raster

import (
	"fmt"

	"github.com/paulmach/orb"
)

// ClassRaster is a row-major grid of class ids. Class 0 means no data.
type ClassRaster struct {
	Width  int
	Height int
	Values []uint8
}

// NewClassRaster allocates a zeroed raster.
func NewClassRaster(width, height int) *ClassRaster {
	return &ClassRaster{
		Width:  width,
		Height: height,
		Values: make([]uint8, width*height),
	}
}

// At returns the class at column col, row row.
func (c *ClassRaster) At(col, row int) uint8 {
	return c.Values[row*c.Width+col]
}

// Set stores class v at column col, row row.
func (c *ClassRaster) Set(col, row int, v uint8) {
	c.Values[row*c.Width+col] = v
}

// Histogram counts pixels per class.
func (c *ClassRaster) Histogram() map[uint8]int {
	h := make(map[uint8]int)
	for _, v := range c.Values {
		h[v]++
	}
	return h
}

// GeoTransform is an affine pixel-to-world transform in GDAL order:
// x = C + col*A + row*B, y = F + col*D + row*E.
type GeoTransform struct {
	A, B, C float64
	D, E, F float64
}

// FromBounds returns the north-up transform that stretches a width x height
// raster over bounds, matching rasterio.transform.from_bounds.
func FromBounds(bounds orb.Bound, width, height int) (GeoTransform, error) {
	if width <= 0 || height <= 0 {
		return GeoTransform{}, fmt.Errorf("raster size must be positive, got %dx%d", width, height)
	}
	if bounds.Max[0] <= bounds.Min[0] || bounds.Max[1] <= bounds.Min[1] {
		return GeoTransform{}, fmt.Errorf("bounds have no extent: %v", bounds)
	}
	return GeoTransform{
		A: (bounds.Max[0] - bounds.Min[0]) / float64(width),
		C: bounds.Min[0],
		E: -(bounds.Max[1] - bounds.Min[1]) / float64(height),
		F: bounds.Max[1],
	}, nil
}

// Apply maps a pixel corner (col, row) to world coordinates.
func (t GeoTransform) Apply(col, row float64) orb.Point {
	return orb.Point{
		t.C + col*t.A + row*t.B,
		t.F + col*t.D + row*t.E,
	}
}

// PixelArea returns the absolute area of one pixel in world units.
func (t GeoTransform) PixelArea() float64 {
	a := t.A*t.E - t.B*t.D
	if a < 0 {
		return -a
	}
	return a
}
