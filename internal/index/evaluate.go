package index

import (
	"errors"
	"fmt"
	"math"

	"github.com/TechRanger101/AgriSense-App/internal/imagery"
)

// Sentinel marks a pixel without a valid index value.
const Sentinel = -9999.0

// ErrMissingBand is matched by every MissingBandError.
var ErrMissingBand = errors.New("missing band")

// MissingBandError reports a band a formula needs but the sample lacks.
type MissingBandError struct {
	Formula string
	Band    imagery.Band
}

func (e *MissingBandError) Error() string {
	return fmt.Sprintf("formula %s requires band %s", e.Formula, e.Band)
}

// Is makes errors.Is(err, ErrMissingBand) hold.
func (e *MissingBandError) Is(target error) bool {
	return target == ErrMissingBand
}

// IndexRaster is a row-major grid of index values.
type IndexRaster struct {
	Width  int
	Height int
	Values []float64
}

// AllSentinel reports whether no pixel carries a valid value.
func (r *IndexRaster) AllSentinel() bool {
	for _, v := range r.Values {
		if v != Sentinel {
			return false
		}
	}
	return true
}

// ValidCount returns the number of non-sentinel pixels.
func (r *IndexRaster) ValidCount() int {
	n := 0
	for _, v := range r.Values {
		if v != Sentinel {
			n++
		}
	}
	return n
}

// Evaluate applies f to every pixel of bands. Pixels rejected by the
// validity mask, and pixels where the expression is not finite, become
// Sentinel.
func Evaluate(bands *imagery.BandSample, f Formula) (*IndexRaster, error) {
	grids := make([]*imagery.Grid, len(f.Bands))
	for i, b := range f.Bands {
		g, ok := bands.Band(b)
		if !ok {
			return nil, &MissingBandError{Formula: f.Name, Band: b}
		}
		if len(g.Values) != bands.Width*bands.Height {
			return nil, fmt.Errorf("band %s has %d values, expected %d", b, len(g.Values), bands.Width*bands.Height)
		}
		grids[i] = g
	}
	if bands.Valid != nil && len(bands.Valid) != bands.Width*bands.Height {
		return nil, fmt.Errorf("validity mask has %d values, expected %d", len(bands.Valid), bands.Width*bands.Height)
	}

	out := &IndexRaster{
		Width:  bands.Width,
		Height: bands.Height,
		Values: make([]float64, bands.Width*bands.Height),
	}

	for i := range out.Values {
		if !bands.IsValid(i) {
			out.Values[i] = Sentinel
			continue
		}

		var px Pixel
		for j, b := range f.Bands {
			setBand(&px, b, grids[j].Values[i])
		}

		v := f.Expr(px)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = Sentinel
		}
		out.Values[i] = v
	}

	return out, nil
}

func setBand(px *Pixel, b imagery.Band, v float64) {
	switch b {
	case imagery.Blue:
		px.Blue = v
	case imagery.Green:
		px.Green = v
	case imagery.Red:
		px.Red = v
	case imagery.NIR:
		px.NIR = v
	case imagery.SWIR1:
		px.SWIR1 = v
	}
}
