package main

import (
	"fmt"

	"galprof/pkg/config"
	"galprof/pkg/galprof"
)

// modelParams translates one configured model into construction parameters
// on target.
func modelParams(mc config.ModelConfig, target *galprof.Image) (*galprof.ModelParams, error) {
	p := galprof.NewModelParams()
	p.LossSpeedFactor = mc.LossSpeedFactor
	p.PSFSigma = mc.PSFSigma
	if mc.Integrate != nil {
		p.IntegrateFactor = mc.Integrate.Factor
		p.IntegrateRadius = mc.Integrate.Radius
	}
	p.UserLocked = mc.UserLocked
	if mc.Locked != nil {
		p.Locked = mc.Locked.Value()
	}

	if bounds, ok := mc.PixelBounds(); ok {
		w, err := galprof.WindowFromPixelBounds(bounds, target)
		if err != nil {
			return nil, fmt.Errorf("window of %s: %w", mc.Name, err)
		}
		p.Window = &w
	}

	if len(mc.Parameters) > 0 {
		p.Parameters = make(map[string]galprof.UserSpec, len(mc.Parameters))
	}
	for name, pc := range mc.Parameters {
		patch := &galprof.SpecPatch{
			Value:       []float64(pc.Value),
			Uncertainty: []float64(pc.Uncertainty),
			Fixed:       pc.Fixed,
			Cyclic:      pc.Cyclic,
		}
		if len(pc.Limits) == 2 {
			patch.Limits = &galprof.Bounds{Lo: pc.Limits[0], Hi: pc.Limits[1]}
		}
		p.Parameters[name] = galprof.UserSpec{Patch: patch}
	}
	return p, nil
}
