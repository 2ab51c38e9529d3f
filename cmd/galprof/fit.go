package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"galprof/internal/checkpoint"
	"galprof/pkg/config"
	"galprof/pkg/galprof"
)

// fitResult summarizes a finished loop.
type fitResult struct {
	iterations int
	converged  bool
	lastUpdate float64
}

type fitter struct {
	state  *galprof.ModelsState
	data   *galprof.FitData
	opts   config.Fit
	store  checkpoint.Store
	runID  string
	logger *slog.Logger
}

// run iterates sample, convolve, integrate, accumulate, loss and update until
// the largest relative update drops below the tolerance or the iteration
// budget is spent. Iterations where every model is locked never count as
// converged.
func (f *fitter) run(ctx context.Context) (fitResult, error) {
	var res fitResult
	for res.iterations < f.opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := f.evaluate(); err != nil {
			return res, err
		}
		update, updated, err := f.updateParameters()
		if err != nil {
			return res, err
		}
		f.state.StepIteration()
		res.iterations++
		res.lastUpdate = update
		if err := f.saveCheckpoints(ctx); err != nil {
			return res, err
		}
		f.logger.Debug("iteration finished", "iteration", f.state.Iteration(), "max_update", update, "updated", updated)
		if updated > 0 && update < f.opts.Tolerance {
			res.converged = true
			break
		}
	}
	return res, nil
}

// evaluate rebuilds the full model image and every model's loss.
func (f *fitter) evaluate() error {
	f.data.ResetModel()
	if err := f.state.SampleModels(); err != nil {
		return err
	}
	if err := f.state.ConvolvePSF(); err != nil {
		return err
	}
	if err := f.state.IntegrateModels(); err != nil {
		return err
	}
	if err := f.state.AddIntegratedModels(f.data.ModelImage); err != nil {
		return err
	}
	if err := f.data.UpdateLoss(); err != nil {
		return err
	}
	return f.state.ComputeLoss(f.data)
}

// updateParameters moves every free array parameter driven by a loss entry by
// damping*loss/ps^2. It returns the largest relative change and how many
// arrays took part.
func (f *fitter) updateParameters() (float64, int, error) {
	ps := f.data.Target.PixelScale()
	scale := f.opts.Damping / (ps * ps)
	largest, updated := 0.0, 0
	for _, m := range f.state.Models() {
		if m.Locked() {
			continue
		}
		loss := m.Loss()
		for name, quality := range m.Qualities() {
			if quality.Form != "array" || quality.Loss == "" {
				continue
			}
			residual, ok := loss[quality.Loss]
			if !ok {
				continue
			}
			arr, err := m.Parameters().Array(name)
			if err != nil {
				return 0, 0, err
			}
			if arr.IsFixed() {
				continue
			}
			rel, err := applyUpdate(arr, residual, scale)
			if err != nil {
				return 0, 0, fmt.Errorf("updating %s of %s: %w", name, m.Name(), err)
			}
			largest = math.Max(largest, rel)
			updated++
		}
	}
	return largest, updated, nil
}

// applyUpdate adds scale*residual to each element of arr. NaN residuals (empty
// radial bins) and individually fixed elements are left alone.
func applyUpdate(arr *galprof.ParameterArray, residual []float64, scale float64) (float64, error) {
	values := arr.Value()
	if len(values) != len(residual) {
		return 0, fmt.Errorf("%d values for %d loss bins: %w", len(values), len(residual), galprof.ErrShapeMismatch)
	}
	step := make([]float64, len(residual))
	for i, r := range residual {
		if !math.IsNaN(r) {
			step[i] = r
		}
	}
	next := floats.AddScaledTo(make([]float64, len(values)), values, scale, step)

	largest := 0.0
	for i := range values {
		if step[i] == 0 {
			continue
		}
		elem, err := arr.At(i)
		if err != nil {
			return 0, err
		}
		if err := elem.SetValue([]float64{next[i]}, false); err != nil {
			if errors.Is(err, galprof.ErrLockedParameter) {
				continue
			}
			return 0, err
		}
		rel := math.Abs(next[i]-values[i]) / math.Max(math.Abs(values[i]), math.SmallestNonzeroFloat64)
		largest = math.Max(largest, rel)
	}
	return largest, nil
}

func (f *fitter) saveCheckpoints(ctx context.Context) error {
	if f.store == nil {
		return nil
	}
	for _, m := range f.state.Models() {
		if err := f.store.SaveRecord(ctx, checkpoint.Capture(m, f.runID)); err != nil {
			return fmt.Errorf("saving checkpoint of %s: %w", m.Name(), err)
		}
	}
	return nil
}

// restoreCheckpoints applies stored values to models of matching type before
// initialization.
func restoreCheckpoints(ctx context.Context, store checkpoint.Store, state *galprof.ModelsState, logger *slog.Logger) error {
	for _, m := range state.Models() {
		rec, ok, err := store.GetRecord(ctx, m.Name())
		if err != nil {
			return fmt.Errorf("reading checkpoint of %s: %w", m.Name(), err)
		}
		if !ok {
			continue
		}
		if rec.Type != m.Type() {
			logger.Warn("checkpoint type differs, ignoring", "model", m.Name(), "stored", rec.Type, "configured", m.Type())
			continue
		}
		if err := checkpoint.Restore(m, rec); err != nil {
			return err
		}
		logger.Info("restored checkpoint", "model", m.Name(), "run_id", rec.RunID, "iteration", rec.Iteration)
	}
	return nil
}
