package galprof

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"galprof/pkg/logger"
)

func testWindow(x, y, w, h float64) *Window {
	return &Window{Origin: Point2d{X: x, Y: y}, Size: Point2d{X: w, Y: h}, PixelScale: 1}
}

func testParams(window *Window, overrides map[string]UserSpec) *ModelParams {
	p := NewModelParams()
	p.Window = window
	p.Parameters = overrides
	return p
}

func TestModelsStateOrdersByArea(t *testing.T) {
	target := flatImage(t, 100, 100, 1, 1)
	state := NewModelsState(target, WithLogger(logger.Discard()))

	_, err := state.AddModel("a100", NonParametricGalaxyType, testParams(testWindow(0, 0, 10, 10), nil))
	require.NoError(t, err)
	_, err = state.AddModel("a10000", NonParametricGalaxyType, testParams(nil, nil))
	require.NoError(t, err)
	_, err = state.AddModel("a50", NonParametricGalaxyType, testParams(testWindow(20, 20, 10, 5), nil))
	require.NoError(t, err)
	_, err = state.AddModel("b100", NonParametricGalaxyType, testParams(testWindow(40, 40, 10, 10), nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"a10000", "a100", "b100", "a50"}, state.Names(), "ties keep insertion order")
	assert.Equal(t, 4, state.Len())

	var areas []int
	for _, m := range state.Models() {
		areas = append(areas, m.Window().PixelArea())
	}
	assert.Equal(t, []int{10000, 100, 100, 50}, areas)
}

func TestModelsStateDuplicateAndLookup(t *testing.T) {
	target := flatImage(t, 10, 10, 1, 1)
	state := NewModelsState(target, WithLogger(logger.Discard()))

	p := testParams(nil, geometry(5, 5, 0, 1))
	m, err := state.AddModel("gal", NonParametricGalaxyType, p)
	require.NoError(t, err)
	assert.Nil(t, p.Logger, "caller params are not modified")

	_, err = state.AddModel("gal", SersicGalaxyType, nil)
	require.ErrorIs(t, err, ErrDuplicateModel)
	require.ErrorIs(t, state.Add(m), ErrDuplicateModel)

	got, err := state.Get("gal")
	require.NoError(t, err)
	assert.Same(t, m, got)
	_, err = state.Get("missing")
	require.ErrorIs(t, err, ErrKeyNotFound)

	_, err = state.AddModel("x", "gaussian galaxy model", nil)
	require.ErrorIs(t, err, ErrUnknownModelType)
	assert.Equal(t, 1, state.Len())
}

func addIsolationModels(t *testing.T, state *ModelsState) {
	t.Helper()
	_, err := state.AddModel("good", NonParametricGalaxyType, testParams(nil, geometry(10, 10, 0, 1)))
	require.NoError(t, err)
	_, err = state.AddModel("bad", NonParametricGalaxyType, testParams(testWindow(1000, 1000, 5, 5), nil))
	require.NoError(t, err)
}

func TestModelsStateFailFast(t *testing.T) {
	target := flatImage(t, 20, 20, 1, 3)
	state := NewModelsState(target, WithLogger(logger.Discard()))
	addIsolationModels(t, state)

	err := state.Initialize(nil)
	require.ErrorIs(t, err, ErrInvalidWindow)
	assert.Contains(t, err.Error(), "bad")
	assert.Empty(t, state.Failures())
}

func TestModelsStateErrorIsolation(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		target := flatImage(t, 20, 20, 1, 3)
		state := NewModelsState(target,
			WithLogger(logger.Discard()),
			WithErrorIsolation(true),
			WithParallelism(parallelism),
		)
		addIsolationModels(t, state)

		require.NoError(t, state.Initialize(nil))
		failures := state.Failures()
		require.Len(t, failures, 1)
		require.ErrorIs(t, failures["bad"], ErrInvalidWindow)

		good, err := state.Get("good")
		require.NoError(t, err)
		arr, err := good.Parameters().Array("I(R)")
		require.NoError(t, err)
		assert.Positive(t, arr.Len(), "the healthy model is still initialized")
	}
}

func TestModelsStateParallelMatchesSequential(t *testing.T) {
	target := NewImage(60, 60, 1, Point2d{})
	for r := 0; r < 60; r++ {
		for c := 0; c < 60; c++ {
			target.Set(r, c, float64((r*7+c*3)%11))
		}
	}
	build := func(opts ...Option) *ModelsState {
		state := NewModelsState(target, append(opts, WithLogger(logger.Discard()))...)
		windows := []*Window{nil, testWindow(5, 5, 30, 30), testWindow(20, 10, 20, 40), testWindow(40, 40, 15, 15)}
		for i, w := range windows {
			p := testParams(w, nil)
			p.PSFSigma = 1
			p.IntegrateFactor = 3
			p.IntegrateRadius = 2
			_, err := state.AddModel(string(rune('a'+i)), NonParametricGalaxyType, p)
			require.NoError(t, err)
		}
		require.NoError(t, state.Initialize(nil))
		require.NoError(t, state.SampleModels())
		require.NoError(t, state.ConvolvePSF())
		require.NoError(t, state.IntegrateModels())
		return state
	}

	sequential := build()
	parallel := build(WithParallelism(3))
	for _, name := range sequential.Names() {
		want, err := sequential.Get(name)
		require.NoError(t, err)
		got, err := parallel.Get(name)
		require.NoError(t, err)
		assert.Equal(t, want.ModelImage().Data(), got.ModelImage().Data(), name)
		assert.Equal(t, want.Parameters().Snapshot(), got.Parameters().Snapshot(), name)
	}

	seqData, parData := NewFitData(target), NewFitData(target)
	require.NoError(t, sequential.AddIntegratedModels(seqData.ModelImage))
	require.NoError(t, parallel.AddIntegratedModels(parData.ModelImage))
	assert.Equal(t, seqData.ModelImage.Data(), parData.ModelImage.Data())
}

func TestModelsStateStepAndUnlock(t *testing.T) {
	target := flatImage(t, 10, 10, 1, 1)
	state := NewModelsState(target, WithLogger(logger.Discard()))
	auto, err := state.AddModel("auto", NonParametricGalaxyType, testParams(nil, nil))
	require.NoError(t, err)
	user := testParams(testWindow(0, 0, 5, 5), nil)
	user.UserLocked = true
	pinned, err := state.AddModel("pinned", NonParametricGalaxyType, user)
	require.NoError(t, err)

	assert.Equal(t, -1, state.Iteration())
	state.StepIteration()
	assert.Equal(t, 0, state.Iteration())
	assert.Equal(t, 0, auto.Iteration())
	assert.Equal(t, -1, pinned.Iteration(), "locked models do not advance")

	require.NoError(t, auto.UpdateLocked(true))
	state.StepIteration()
	assert.Equal(t, 0, auto.Iteration())
	assert.True(t, auto.Locked(), "a forever lock survives steps")

	state.UnlockModels()
	assert.False(t, auto.Locked())
	assert.True(t, pinned.Locked())
}

func TestModelsStateSaveModels(t *testing.T) {
	target := flatImage(t, 20, 20, 1, 1)
	state := NewModelsState(target, WithLogger(logger.Discard()))
	_, err := state.AddModel("gal", NonParametricGalaxyType, testParams(nil, geometry(10, 10, 0, 1)))
	require.NoError(t, err)
	_, err = state.AddModel("core", NonParametricGalaxyType, testParams(testWindow(5, 5, 10, 10), geometry(10, 10, 0, 1)))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, state.SaveModels(&buf))

	stars := strings.Repeat("*", 70)
	block := func(name string) string {
		return "\n\n" + stars + "\n" + name + "\n" + stars + "\n" +
			"center=[10 10] [arcsec]\n" +
			"q=1 [b/a]\n" +
			"PA=0 [rad]\n" +
			"I(R)=unset [flux/arcsec^2]\n"
	}
	assert.Equal(t, block("gal")+block("core"), buf.String())
}
