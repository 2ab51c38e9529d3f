package galprof

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSersicBn(t *testing.T) {
	assert.InDelta(t, 1.678, sersicBn(1), 1e-3)
	assert.InDelta(t, 7.669, sersicBn(4), 1e-3)

	const h = 1e-6
	for _, n := range []float64{0.5, 1, 2.5, 6} {
		numeric := (sersicBn(n+h) - sersicBn(n-h)) / (2 * h)
		assert.InEpsilon(t, numeric, sersicBnPrime(n), 1e-6, "n=%g", n)
	}
}

func TestSersicGradient(t *testing.T) {
	p := []float64{5, 8, 1.5}
	grad := make([]float64, 3)
	for _, r := range []float64{0.5, 3, 8, 20} {
		sersicCurve{}.gradient(p, r, grad)
		for j := range p {
			h := 1e-6 * p[j]
			hi := append([]float64(nil), p...)
			lo := append([]float64(nil), p...)
			hi[j] += h
			lo[j] -= h
			numeric := (sersicCurve{}.value(hi, r) - sersicCurve{}.value(lo, r)) / (2 * h)
			assert.InEpsilon(t, numeric, grad[j], 1e-5, "r=%g param %d", r, j)
		}
	}
	assert.InDelta(t, 5, sersicCurve{}.value(p, 8), 1e-12, "Ie is the intensity at Re")
}

func TestLevenbergMarquardtRecoversSersic(t *testing.T) {
	truth := []float64{5, 8, 1.5}
	radii := ProfileRadii(60)
	intensity := make([]float64, len(radii))
	for i, r := range radii {
		intensity[i] = sersicCurve{}.value(truth, r)
	}

	got := levenbergMarquardt(sersicCurve{}, radii, intensity,
		[]float64{3, 5, 2.5},
		[]float64{0, 1e-3, 0.36},
		[]float64{1e4, 1e4, 8},
		[]float64{1, 1, 1},
		1e-12, 500)
	require.Len(t, got, 3)
	for j := range truth {
		assert.InEpsilon(t, truth[j], got[j], 1e-2, "param %d", j)
	}
	assert.InDelta(t, 1, computeRSquared(sersicCurve{}, radii, intensity, got), 1e-6)
}

func TestLevenbergMarquardtRespectsBounds(t *testing.T) {
	radii := []float64{0, 1, 2, 4, 8, 16}
	intensity := make([]float64, len(radii))
	for i, r := range radii {
		intensity[i] = sersicCurve{}.value([]float64{5, 8, 1.5}, r)
	}
	got := levenbergMarquardt(sersicCurve{}, radii, intensity,
		[]float64{3, 5, 50},
		[]float64{0, 1e-3, 0.36},
		[]float64{1e4, 1e4, 1},
		[]float64{1, 1, 1},
		1e-10, 200)
	assert.GreaterOrEqual(t, got[2], 0.36)
	assert.LessOrEqual(t, got[2], 1.0)
	assert.False(t, hasNaN(got))
}

func TestSersicModelInitialize(t *testing.T) {
	const ps = 1.0
	truth := []float64{20, 12, 1}
	target := NewImage(81, 81, ps, Point2d{})
	xs, ys := target.CoordinateMeshgrid(40.5, 40.5)
	for i := range xs {
		target.Data()[i] = sersicCurve{}.value(truth, math.Hypot(xs[i], ys[i]))
	}

	m := newTestModel(t, "sersic", SersicGalaxyType, target, nil, geometry(40.5, 40.5, 0, 1))
	require.NoError(t, m.Initialize(nil))

	values := make(map[string]float64)
	for _, name := range []string{"Ie", "Re", "n"} {
		q, err := m.Get(name)
		require.NoError(t, err)
		require.Len(t, q.Value(), 1, name)
		values[name] = q.Value()[0]
	}
	assert.InEpsilon(t, truth[0], values["Ie"], 0.1)
	assert.InEpsilon(t, truth[1], values["Re"], 0.1)
	assert.InEpsilon(t, truth[2], values["n"], 0.1)

	require.NoError(t, m.SampleModel())
	img := m.ModelImage()
	assert.Greater(t, img.At(40, 40), img.At(40, 60))
	assert.InEpsilon(t, target.At(40, 52), img.At(40, 52), 0.1)
}

func TestSersicKeepsUserValues(t *testing.T) {
	target := flatImage(t, 21, 21, 1, 2)
	overrides := geometry(10.5, 10.5, 0, 1)
	overrides["n"] = UserSpec{Patch: &SpecPatch{Value: []float64{4}}}
	m := newTestModel(t, "s", SersicGalaxyType, target, nil, overrides)
	require.NoError(t, m.Initialize(nil))

	n, err := m.Get("n")
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, n.Value())
	re, err := m.Get("Re")
	require.NoError(t, err)
	assert.NotEmpty(t, re.Value())
}
