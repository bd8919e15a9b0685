package forecast

import (
	"errors"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned by Fit when there is nothing to fit.
var ErrNoSamples = errors.New("no samples to fit")

// rankTolerance is the relative determinant below which the coordinates are
// treated as collinear.
const rankTolerance = 1e-12

// Model is a linear model class = Intercept + Coef[0]*x + Coef[1]*y.
type Model struct {
	Intercept float64
	Coef      [2]float64
}

// Predict evaluates the model at p.
func (m Model) Predict(p orb.Point) float64 {
	return m.Intercept + m.Coef[0]*p[0] + m.Coef[1]*p[1]
}

// Fit computes the ordinary least squares fit of class against coordinate.
// When the coordinates do not span the plane the minimum-norm solution is
// used, so samples sharing one coordinate fit their mean.
func Fit(samples []Sample) (Model, error) {
	if len(samples) == 0 {
		return Model{}, ErrNoSamples
	}

	n := len(samples)
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, s := range samples {
		xs[i], ys[i], zs[i] = s.Point[0], s.Point[1], float64(s.Class)
	}

	mx, my, mz := stat.Mean(xs, nil), stat.Mean(ys, nil), stat.Mean(zs, nil)
	floats.AddConst(-mx, xs)
	floats.AddConst(-my, ys)
	floats.AddConst(-mz, zs)

	// Normal equations on centred data: [sxx sxy; sxy syy] b = [sxz syz].
	sxx, sxy, syy := floats.Dot(xs, xs), floats.Dot(xs, ys), floats.Dot(ys, ys)
	sxz, syz := floats.Dot(xs, zs), floats.Dot(ys, zs)

	var b [2]float64
	trace := sxx + syy
	det := sxx*syy - sxy*sxy
	switch {
	case singlePoint(samples):
	case det > rankTolerance*trace*trace:
		b[0] = (syy*sxz - sxy*syz) / det
		b[1] = (sxx*syz - sxy*sxz) / det
	default:
		// Rank one: the pseudo-inverse of S is S / trace^2.
		t2 := trace * trace
		b[0] = (sxx*sxz + sxy*syz) / t2
		b[1] = (sxy*sxz + syy*syz) / t2
	}

	return Model{
		Intercept: mz - b[0]*mx - b[1]*my,
		Coef:      b,
	}, nil
}

func singlePoint(samples []Sample) bool {
	for _, s := range samples[1:] {
		if s.Point != samples[0].Point {
			return false
		}
	}
	return true
}
