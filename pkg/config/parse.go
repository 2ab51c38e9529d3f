package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseConfigYAML parses a Config from YAML bytes, fills defaults and
// validates it.
func ParseConfigYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ParseConfigYAMLString parses a Config from a YAML string.
func ParseConfigYAMLString(yamlText string) (*Config, error) {
	return ParseConfigYAML([]byte(yamlText))
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Fit.MaxIterations == 0 {
		cfg.Fit.MaxIterations = 100
	}
	if cfg.Fit.Tolerance == 0 {
		cfg.Fit.Tolerance = 1e-3
	}
	if cfg.Fit.Damping == 0 {
		cfg.Fit.Damping = 1
	}
	if cfg.Fit.Parallelism == 0 {
		cfg.Fit.Parallelism = 1
	}
	if cfg.Output == "" {
		cfg.Output = "galprof_models.txt"
	}
	if cfg.Checkpoint != nil && cfg.Checkpoint.Backend == "" {
		cfg.Checkpoint.Backend = "memory"
	}
	for i := range cfg.Models {
		m := &cfg.Models[i]
		if m.LossSpeedFactor == 0 {
			m.LossSpeedFactor = 1
		}
		if m.Integrate == nil {
			m.Integrate = &Integrate{Factor: 1}
		}
		if m.Integrate.Factor == 0 {
			m.Integrate.Factor = 1
		}
	}
}
