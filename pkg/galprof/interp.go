package galprof

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

type constantPredictor float64

func (c constantPredictor) Predict(float64) float64 { return float64(c) }

// newRadialInterpolant fits an interpolating (zero smoothing) curve through the
// knots: a not-a-knot cubic spline, or a linear one below four knots. Outside
// the knot range it returns the nearest end value.
func newRadialInterpolant(xs, ys []float64) (interp.Predictor, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%d radii for %d values: %w", len(xs), len(ys), ErrShapeMismatch)
	}
	switch len(xs) {
	case 0:
		return nil, fmt.Errorf("no knots: %w", ErrProfileNotReady)
	case 1:
		return constantPredictor(ys[0]), nil
	}
	var fp interp.FittablePredictor = &interp.NotAKnotCubic{}
	if len(xs) < 4 {
		fp = &interp.PiecewiseLinear{}
	}
	if err := fp.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting radial interpolant: %w", err)
	}
	return fp, nil
}

func predictAll(p interp.Predictor, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = p.Predict(x)
	}
	return out
}
