package galprof

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateCartesian(t *testing.T) {
	xr, yr := rotateCartesian(math.Pi/2, []float64{1, 0}, []float64{0, 1})
	assert.InDeltaSlice(t, []float64{0, -1}, xr, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0}, yr, 1e-12)
}

func TestGalaxyRadius(t *testing.T) {
	target := flatImage(t, 10, 10, 1, 1)
	m := newTestModel(t, "m", NonParametricGalaxyType, target, nil, geometry(5, 5, math.Pi/2, 0.5))

	r, err := m.radius([]float64{0, 2, 0}, []float64{2, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2, r[0], 1e-12, "along the major axis")
	assert.InDelta(t, 4, r[1], 1e-12, "along the minor axis")
	assert.Equal(t, 0.0, r[2])
}

func TestGalaxyRadiusNeedsGeometry(t *testing.T) {
	target := flatImage(t, 10, 10, 1, 1)
	m := newTestModel(t, "m", NonParametricGalaxyType, target, nil, nil)
	_, err := m.radius([]float64{1}, []float64{1})
	require.ErrorIs(t, err, ErrProfileNotReady)
}

func TestWarpMatchesGalaxyWhenConstant(t *testing.T) {
	target := flatImage(t, 30, 30, 1, 3)
	galaxy := newTestModel(t, "g", NonParametricGalaxyType, target, nil, geometry(15, 15, 0.7, 0.6))
	warp := newTestModel(t, "w", NonParametricWarpType, target, nil, geometry(15, 15, 0.7, 0.6))
	require.NoError(t, warp.Initialize(nil))

	paR, err := warp.Parameters().Array("PA(R)")
	require.NoError(t, err)
	assert.Equal(t, len(warp.ProfileRadii()), paR.Len())

	xs, ys := target.CoordinateMeshgrid(15, 15)
	want, err := galaxy.radius(xs, ys)
	require.NoError(t, err)
	got, err := warp.radius(xs, ys)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-9)
}

func TestWarpUsesRingGeometry(t *testing.T) {
	target := flatImage(t, 30, 30, 1, 3)
	warp := newTestModel(t, "w", NonParametricWarpType, target, nil, geometry(15, 15, 0, 1))
	require.NoError(t, warp.Initialize(nil))
	n := len(warp.ProfileRadii())

	qR, err := warp.Parameters().Array("q(R)")
	require.NoError(t, err)
	require.NoError(t, qR.SetValue(repeatFloat(0.5, n), false))

	r, err := warp.radius([]float64{0, 12}, []float64{12, 0})
	require.NoError(t, err)
	assert.InDelta(t, 24, r[0], 1e-9, "flattened by q(R), not the global q")
	assert.InDelta(t, 12, r[1], 1e-9)

	paR, err := warp.Parameters().Array("PA(R)")
	require.NoError(t, err)
	require.NoError(t, paR.SetValue(repeatFloat(math.Pi/2, n), false))

	r, err = warp.radius([]float64{0, 12}, []float64{12, 0})
	require.NoError(t, err)
	assert.InDelta(t, 12, r[0], 1e-9, "rotated onto the major axis")
	assert.InDelta(t, 24, r[1], 1e-9)
}

func TestUnwrapAxis(t *testing.T) {
	got := unwrapAxis([]float64{3.10, 0.05, 3.12, 1.0})
	assert.InDeltaSlice(t, []float64{3.10, 0.05 + math.Pi, 3.12, 1.0 + math.Pi}, got, 1e-12)
	assert.Nil(t, unwrapAxis(nil))
}

func TestWarpInterpolatesPAAcrossWrap(t *testing.T) {
	target := flatImage(t, 30, 30, 1, 3)
	warp := newTestModel(t, "w", NonParametricWarpType, target, nil, geometry(15, 15, 0, 1))
	require.NoError(t, warp.Initialize(nil))
	n := len(warp.ProfileRadii())

	qR, err := warp.Parameters().Array("q(R)")
	require.NoError(t, err)
	require.NoError(t, qR.SetValue(repeatFloat(0.5, n), false))

	// Neighbouring rings sit either side of the PA wrap, all close to the x axis.
	pa := make([]float64, n)
	for i := range pa {
		pa[i] = 0.02
		if i%2 == 0 {
			pa[i] = math.Pi - 0.02
		}
	}
	paR, err := warp.Parameters().Array("PA(R)")
	require.NoError(t, err)
	require.NoError(t, paR.SetValue(pa, false))

	for x := 1.0; x <= 14; x += 0.5 {
		r, err := warp.radius([]float64{x}, []float64{0})
		require.NoError(t, err)
		assert.InEpsilon(t, x, r[0], 0.02, "x=%g", x)
	}
}
