package galprof

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterFixedRequiresOverride(t *testing.T) {
	p := NewParameter("Re", ParameterSpec{Value: []float64{2}, Fixed: true, Units: "arcsec"})

	err := p.SetValue([]float64{3}, false)
	require.ErrorIs(t, err, ErrLockedParameter)
	assert.Equal(t, []float64{2}, p.Value())

	err = p.SetUncertainty([]float64{0.1}, false)
	require.ErrorIs(t, err, ErrLockedParameter)

	require.NoError(t, p.SetValue([]float64{3}, true))
	require.NoError(t, p.SetUncertainty([]float64{0.1}, true))
	assert.Equal(t, []float64{3}, p.Value())
	assert.Equal(t, []float64{0.1}, p.Uncertainty())
}

func TestParameterUncertaintyShape(t *testing.T) {
	p := NewParameter("center", ParameterSpec{Value: []float64{1, 2}})
	err := p.SetUncertainty([]float64{0.1}, false)
	require.ErrorIs(t, err, ErrShapeMismatch)

	require.NoError(t, p.SetUncertainty([]float64{0.1, 0.2}, false))
	require.NoError(t, p.SetValue([]float64{1, 2, 3}, false))
	assert.Nil(t, p.Uncertainty(), "stale uncertainty of another length is dropped")
}

func TestParameterLimits(t *testing.T) {
	tests := []struct {
		name   string
		spec   ParameterSpec
		in     float64
		expect float64
	}{
		{"below", ParameterSpec{Limits: &Bounds{Lo: 0.36, Hi: 8}}, 0.1, 0.36},
		{"above", ParameterSpec{Limits: &Bounds{Lo: 0.36, Hi: 8}}, 10, 8},
		{"inside", ParameterSpec{Limits: &Bounds{Lo: 0.36, Hi: 8}}, 4, 4},
		{"cyclic wraps up", ParameterSpec{Limits: &Bounds{Lo: 0, Hi: math.Pi}, Cyclic: true}, -math.Pi / 4, 3 * math.Pi / 4},
		{"cyclic wraps down", ParameterSpec{Limits: &Bounds{Lo: 0, Hi: math.Pi}, Cyclic: true}, 5 * math.Pi / 4, math.Pi / 4},
		{"no limits", ParameterSpec{}, -1e9, -1e9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParameter("x", tt.spec)
			require.NoError(t, p.SetValue([]float64{tt.in}, false))
			assert.InDelta(t, tt.expect, p.Scalar(), 1e-12)
		})
	}
}

func TestParameterString(t *testing.T) {
	tests := []struct {
		name string
		p    *Parameter
		want string
	}{
		{"unset", NewParameter("q", ParameterSpec{Units: "b/a"}), "q=unset [b/a]"},
		{"scalar", NewParameter("q", ParameterSpec{Value: []float64{0.5}, Uncertainty: []float64{0.01}, Units: "b/a"}), "q=0.5±0.01 [b/a]"},
		{"vector", NewParameter("center", ParameterSpec{Value: []float64{10, 12.5}, Units: "arcsec"}), "center=[10 12.5] [arcsec]"},
		{"no units", NewParameter("n", ParameterSpec{Value: []float64{4}}), "n=4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.String())
		})
	}
}

func TestParameterArrayAccess(t *testing.T) {
	a := NewParameterArray("I(R)", ParameterSpec{Value: []float64{5, 4, 3}, Units: "flux/arcsec^2"})
	require.Equal(t, 3, a.Len())

	p, err := a.Get("I(R):1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.Scalar())
	assert.Equal(t, "I(R):1", p.Name())

	byIndex, err := a.At(2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, byIndex.Scalar())

	for _, key := range []string{"I(R):3", "I(R):x", "q(R):0", "I(R)"} {
		_, err := a.Get(key)
		assert.ErrorIs(t, err, ErrKeyNotFound, key)
	}

	require.NoError(t, a.SetValue([]float64{1, 2}, false))
	assert.Equal(t, []float64{1, 2}, a.Value())
	assert.Nil(t, a.Uncertainty())
	require.ErrorIs(t, a.SetUncertainty([]float64{1}, false), ErrShapeMismatch)
	require.NoError(t, a.SetUncertainty([]float64{0.1, 0.2}, false))
	assert.Equal(t, "I(R)=[1 2]±[0.1 0.2] [flux/arcsec^2]", a.String())
}

func TestParameterArrayFixedElement(t *testing.T) {
	a := NewParameterArray("I(R)", ParameterSpec{Value: []float64{5, 4}})
	p, err := a.At(0)
	require.NoError(t, err)
	p.SetFixed(true)

	require.ErrorIs(t, a.SetValue([]float64{1, 1}, false), ErrLockedParameter)
	require.NoError(t, a.SetValue([]float64{1, 1}, true))
	assert.Equal(t, []float64{1, 1}, a.Value())
}

func TestParameterSetGet(t *testing.T) {
	set := newParameterSet()
	set.add("center", NewParameter("center", ParameterSpec{Value: []float64{1, 2}}))
	set.add("I(R)", NewParameterArray("I(R)", ParameterSpec{Value: []float64{7, 8}}))

	q, err := set.Get("center")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, q.Value())

	q, err = set.Get("I(R):1")
	require.NoError(t, err)
	assert.Equal(t, []float64{8}, q.Value())

	_, err = set.Get("Re")
	require.ErrorIs(t, err, ErrKeyNotFound)

	_, err = set.Array("center")
	require.ErrorIs(t, err, ErrKeyNotFound)
	_, err = set.Parameter("I(R)")
	require.ErrorIs(t, err, ErrKeyNotFound)

	assert.Equal(t, []string{"center", "I(R)"}, set.Names())
	assert.Equal(t, map[string][]float64{"center": {1, 2}, "I(R)": {7, 8}}, set.Snapshot())
}
