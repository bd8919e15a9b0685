// Package imagery defines the boundary between the classification pipeline and
// the satellite imagery provider.
package imagery

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// Band identifies a spectral band by its role.
type Band string

// Bands used by the index formulas, named by role. SentinelName maps them to
// Sentinel-2 L2A band identifiers.
const (
	Blue  Band = "BLUE"
	Green Band = "GREEN"
	Red   Band = "RED"
	NIR   Band = "NIR"
	SWIR1 Band = "SWIR1"
)

var sentinelNames = map[Band]string{
	Blue:  "B02",
	Green: "B03",
	Red:   "B04",
	NIR:   "B08",
	SWIR1: "B11",
}

// SentinelName returns the Sentinel-2 band identifier for b.
func (b Band) SentinelName() (string, bool) {
	name, ok := sentinelNames[b]
	return name, ok
}

// Grid is a row-major float grid.
type Grid struct {
	Width  int
	Height int
	Values []float64
}

// NewGrid allocates a zeroed grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Values: make([]float64, width*height),
	}
}

// At returns the value at column col, row row.
func (g *Grid) At(col, row int) float64 {
	return g.Values[row*g.Width+col]
}

// Set stores v at column col, row row.
func (g *Grid) Set(col, row int, v float64) {
	g.Values[row*g.Width+col] = v
}

// BandSample holds co-registered band grids for one request plus an optional
// validity mask. A nil mask means every pixel is valid.
type BandSample struct {
	Width  int
	Height int
	Bands  map[Band]*Grid
	Valid  []bool
}

// NewBandSample creates an empty sample of the given size.
func NewBandSample(width, height int) *BandSample {
	return &BandSample{
		Width:  width,
		Height: height,
		Bands:  make(map[Band]*Grid),
	}
}

// Band returns the grid for b.
func (s *BandSample) Band(b Band) (*Grid, bool) {
	g, ok := s.Bands[b]
	return g, ok
}

// IsValid reports whether pixel i (row-major) passed the validity rule.
func (s *BandSample) IsValid(i int) bool {
	if s.Valid == nil {
		return true
	}
	return s.Valid[i]
}

// Script selects the bands to fetch and the scene classification values that
// mark a pixel invalid.
type Script struct {
	Bands      []Band
	InvalidSCL []int
}

// Request describes one imagery fetch.
type Request struct {
	BBox   orb.Bound
	From   time.Time
	To     time.Time
	Script Script
	Width  int
	Height int
}

// Validate checks the request before it is sent upstream.
func (r Request) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("output size must be positive, got %dx%d", r.Width, r.Height)
	}
	if r.BBox.Max[0] <= r.BBox.Min[0] || r.BBox.Max[1] <= r.BBox.Min[1] {
		return fmt.Errorf("bounding box has no extent: %v", r.BBox)
	}
	if r.To.Before(r.From) {
		return fmt.Errorf("time interval ends before it starts")
	}
	if len(r.Script.Bands) == 0 {
		return fmt.Errorf("script selects no bands")
	}
	for _, b := range r.Script.Bands {
		if _, ok := b.SentinelName(); !ok {
			return fmt.Errorf("unknown band %q", b)
		}
	}
	return nil
}

// Fetcher retrieves band rasters for a request.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*BandSample, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) (*BandSample, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (*BandSample, error) {
	return f(ctx, req)
}
