package config

import (
	"fmt"
	"os"
	"strings"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if cfg.Target.File == "" {
		return fmt.Errorf("target file cannot be empty")
	}
	if cfg.Target.PixelScale < 0 {
		return fmt.Errorf("target pixelscale cannot be negative, got %f", cfg.Target.PixelScale)
	}
	if len(cfg.Target.Origin) != 0 && len(cfg.Target.Origin) != 2 {
		return fmt.Errorf("target origin must have 2 values, got %d", len(cfg.Target.Origin))
	}

	switch strings.ToUpper(cfg.Target.BayerPattern) {
	case "", "AUTO", "RGGB", "GRBG", "GBRG", "BGGR":
	default:
		return fmt.Errorf("invalid bayer_pattern: %s (must be auto, RGGB, GRBG, GBRG, or BGGR)", cfg.Target.BayerPattern)
	}

	if err := validateFit(&cfg.Fit); err != nil {
		return fmt.Errorf("fit validation failed: %w", err)
	}

	if cfg.Checkpoint != nil {
		switch cfg.Checkpoint.Backend {
		case "memory":
		case "sqlite":
			if cfg.Checkpoint.Path == "" {
				return fmt.Errorf("checkpoint path is required for the sqlite backend")
			}
		default:
			return fmt.Errorf("invalid checkpoint backend: %s (must be memory or sqlite)", cfg.Checkpoint.Backend)
		}
	}

	if len(cfg.Models) == 0 {
		return fmt.Errorf("at least one model must be defined")
	}
	names := make(map[string]bool)
	for _, m := range cfg.Models {
		if m.Name == "" {
			return fmt.Errorf("model name cannot be empty")
		}
		if names[m.Name] {
			return fmt.Errorf("duplicate model name: %s", m.Name)
		}
		names[m.Name] = true
		if err := validateModel(m); err != nil {
			return fmt.Errorf("model %s: %w", m.Name, err)
		}
	}
	return nil
}

func validateFit(f *Fit) error {
	if f.MaxIterations < 0 {
		return fmt.Errorf("max_iterations cannot be negative, got %d", f.MaxIterations)
	}
	if f.Tolerance < 0 {
		return fmt.Errorf("tolerance cannot be negative, got %f", f.Tolerance)
	}
	if f.Damping <= 0 || f.Damping > 1 {
		return fmt.Errorf("damping must be in (0, 1], got %f", f.Damping)
	}
	if f.Parallelism < 0 {
		return fmt.Errorf("parallelism cannot be negative, got %d", f.Parallelism)
	}
	return nil
}

func validateModel(m ModelConfig) error {
	if m.Type == "" {
		return fmt.Errorf("type cannot be empty")
	}
	if m.Window != nil {
		bounds, ok := m.PixelBounds()
		if !ok {
			return fmt.Errorf("window must be [[row_lo, row_hi], [col_lo, col_hi]]")
		}
		if bounds[0][1] < bounds[0][0] || bounds[1][1] < bounds[1][0] {
			return fmt.Errorf("window bounds are inverted: %v", m.Window)
		}
	}
	if m.LossSpeedFactor < 1 {
		return fmt.Errorf("loss_speed_factor must be at least 1, got %d", m.LossSpeedFactor)
	}
	if m.PSFSigma < 0 {
		return fmt.Errorf("psf_sigma cannot be negative, got %f", m.PSFSigma)
	}
	if m.Integrate.Factor < 1 {
		return fmt.Errorf("integrate factor must be at least 1, got %d", m.Integrate.Factor)
	}
	if m.Integrate.Radius < 0 {
		return fmt.Errorf("integrate radius cannot be negative, got %f", m.Integrate.Radius)
	}
	for name, p := range m.Parameters {
		if len(p.Limits) != 0 && len(p.Limits) != 2 {
			return fmt.Errorf("parameter %s: limits must have 2 values, got %d", name, len(p.Limits))
		}
		if len(p.Limits) == 2 && p.Limits[1] < p.Limits[0] {
			return fmt.Errorf("parameter %s: limits are inverted: %v", name, p.Limits)
		}
		if p.Uncertainty != nil && p.Value != nil && len(p.Uncertainty) != len(p.Value) {
			return fmt.Errorf("parameter %s: %d uncertainties for %d values", name, len(p.Uncertainty), len(p.Value))
		}
	}
	return nil
}
