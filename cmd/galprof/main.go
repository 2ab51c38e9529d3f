package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"

	"galprof/internal/checkpoint"
	"galprof/pkg/config"
	"galprof/pkg/galprof"
	"galprof/pkg/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: galprof <config.yaml>")
	}
	cfg, err := config.LoadConfig(args[0])
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := logger.NewWithFormat(cfg.LogFormat, cfg.LogLevel, os.Stderr).With("run_id", runID)
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Loading: %s\n", cfg.Target.File)
	target, err := loadTarget(cfg.Target)
	if err != nil {
		return err
	}
	fmt.Printf("Target loaded: %dx%d, %.4g arcsec/px\n", target.Cols(), target.Rows(), target.PixelScale())

	state := galprof.NewModelsState(target,
		galprof.WithLogger(log),
		galprof.WithParallelism(cfg.Fit.Parallelism),
		galprof.WithErrorIsolation(cfg.Fit.IsolateFailures),
	)
	for _, mc := range cfg.Models {
		p, err := modelParams(mc, target)
		if err != nil {
			return err
		}
		if _, err := state.AddModel(mc.Name, mc.Type, p); err != nil {
			return fmt.Errorf("adding model %s: %w", mc.Name, err)
		}
	}

	var store checkpoint.Store
	if cfg.Checkpoint != nil {
		store, err = checkpoint.NewStore(cfg.Checkpoint.Backend, cfg.Checkpoint.Path)
		if err != nil {
			return err
		}
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("opening checkpoint store: %w", err)
		}
		defer checkpoint.CloseIfSupported(store)
		if err := restoreCheckpoints(ctx, store, state, log); err != nil {
			return err
		}
	}

	startTime := time.Now()
	if err := state.Initialize(nil); err != nil {
		return fmt.Errorf("initializing models: %w", err)
	}

	f := &fitter{
		state:  state,
		data:   galprof.NewFitData(target),
		opts:   cfg.Fit,
		store:  store,
		runID:  runID,
		logger: log,
	}
	res, err := f.run(ctx)
	if err != nil {
		return fmt.Errorf("fitting: %w", err)
	}
	elapsed := time.Since(startTime)

	if err := writeModels(cfg.Output, state); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("=== Fit Results (%.1fs) ===\n", elapsed.Seconds())
	fmt.Printf("  Run:         %s\n", runID)
	fmt.Printf("  Iterations:  %d\n", res.iterations)
	fmt.Printf("  Converged:   %t (last update %.3g)\n", res.converged, res.lastUpdate)
	for _, m := range state.Models() {
		fmt.Printf("  %-12s %s\n", m.Name(), m.Type())
	}
	for name, err := range state.Failures() {
		fmt.Printf("  [FAILED] %s: %v\n", name, err)
	}
	fmt.Printf("  Output:      %s\n", cfg.Output)
	fmt.Println("==============================")
	return nil
}

func loadTarget(t config.Target) (*galprof.Image, error) {
	var origin galprof.Point2d
	if len(t.Origin) == 2 {
		origin = galprof.Point2d{X: t.Origin[0], Y: t.Origin[1]}
	}
	pattern := t.BayerPattern

	var img *galprof.Image
	lowerPath := strings.ToLower(t.File)
	if strings.HasSuffix(lowerPath, ".fits") || strings.HasSuffix(lowerPath, ".fit") {
		fitsData, err := galprof.ReadFits(t.File)
		if err != nil {
			return nil, fmt.Errorf("reading FITS: %w", err)
		}
		fmt.Printf("FITS loaded: %dx%d, object %q\n", fitsData.Width, fitsData.Height, fitsData.Metadata.ObjectName())
		if strings.EqualFold(pattern, "auto") {
			pattern = fitsData.Metadata.GetString("BAYERPAT")
		}
		img, err = fitsData.Image(t.PixelScale, origin)
		if err != nil {
			return nil, err
		}
	} else {
		if t.PixelScale == 0 {
			return nil, fmt.Errorf("target %s: pixelscale is required for non-FITS images", t.File)
		}
		pixels, w, h, err := loadNonFitsImage(t.File)
		if err != nil {
			return nil, err
		}
		img, err = galprof.NewImageFromData(pixels, h, w, t.PixelScale, origin)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(pattern, "auto") {
			pattern = ""
		}
	}

	if pattern == "" {
		return img, nil
	}
	fmt.Printf("Debayering %s pattern to luminance\n", strings.ToUpper(pattern))
	return galprof.DebayerLuminance(img, pattern)
}

func writeModels(path string, state *galprof.ModelsState) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := state.SaveModels(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
