package galprof

import (
	"testing"

	"github.com/stretchr/testify/require"

	"galprof/pkg/logger"
)

func flatImage(t *testing.T, rows, cols int, pixelscale, value float64) *Image {
	t.Helper()
	img := NewImage(rows, cols, pixelscale, Point2d{})
	for i := range img.Data() {
		img.Data()[i] = value
	}
	return img
}

func geometry(x, y, pa, q float64) map[string]UserSpec {
	return map[string]UserSpec{
		"center": {Patch: &SpecPatch{Value: []float64{x, y}}},
		"PA":     {Patch: &SpecPatch{Value: []float64{pa}}},
		"q":      {Patch: &SpecPatch{Value: []float64{q}}},
	}
}

func newTestModel(t *testing.T, name, modelType string, target *Image, window *Window, overrides map[string]UserSpec) *Model {
	t.Helper()
	p := NewModelParams()
	p.Window = window
	p.Parameters = overrides
	p.Logger = logger.Discard()
	m, err := NewModel(name, modelType, target, p)
	require.NoError(t, err)
	return m
}
