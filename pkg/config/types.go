package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is a complete fit description.
type Config struct {
	LogLevel   string        `yaml:"log_level"`
	LogFormat  string        `yaml:"log_format,omitempty"`
	Target     Target        `yaml:"target"`
	Fit        Fit           `yaml:"fit"`
	Checkpoint *Checkpoint   `yaml:"checkpoint,omitempty"`
	Output     string        `yaml:"output,omitempty"`
	Models     []ModelConfig `yaml:"models"`
}

// Target locates the image to fit.
type Target struct {
	File string `yaml:"file"`
	// PixelScale in arcsec/pixel; 0 reads it from the FITS header.
	PixelScale float64 `yaml:"pixelscale,omitempty"`
	Origin     Floats  `yaml:"origin,omitempty"`
	// BayerPattern (RGGB, GRBG, GBRG or BGGR) demosaics a raw colour frame to
	// luminance; "auto" takes it from the FITS BAYERPAT keyword.
	BayerPattern string `yaml:"bayer_pattern,omitempty"`
}

// Fit controls the iteration loop.
type Fit struct {
	MaxIterations   int     `yaml:"max_iterations"`
	Tolerance       float64 `yaml:"tolerance"`
	Damping         float64 `yaml:"damping"`
	Parallelism     int     `yaml:"parallelism,omitempty"`
	IsolateFailures bool    `yaml:"isolate_failures,omitempty"`
}

// Checkpoint selects where parameter values are persisted between runs.
type Checkpoint struct {
	Backend string `yaml:"backend"` // memory or sqlite
	Path    string `yaml:"path,omitempty"`
}

// ModelConfig describes one model.
type ModelConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	// Window is [[row_lo, row_hi], [col_lo, col_hi]] in target pixels.
	Window          [][]float64                `yaml:"window,omitempty"`
	LossSpeedFactor int                        `yaml:"loss_speed_factor,omitempty"`
	PSFSigma        float64                    `yaml:"psf_sigma,omitempty"`
	Integrate       *Integrate                 `yaml:"integrate,omitempty"`
	Locked          *LockSetting               `yaml:"locked,omitempty"`
	UserLocked      bool                       `yaml:"user_locked,omitempty"`
	Parameters      map[string]ParameterConfig `yaml:"parameters,omitempty"`
}

// Integrate configures sub-pixel integration near the model center.
type Integrate struct {
	Factor int     `yaml:"factor"`
	Radius float64 `yaml:"radius"`
}

// ParameterConfig overrides fields of a parameter's default spec.
type ParameterConfig struct {
	Value       Floats `yaml:"value,omitempty"`
	Uncertainty Floats `yaml:"uncertainty,omitempty"`
	Fixed       *bool  `yaml:"fixed,omitempty"`
	Limits      Floats `yaml:"limits,omitempty"`
	Cyclic      *bool  `yaml:"cyclic,omitempty"`
}

// PixelBounds returns the window in the [2][2] form models take.
func (m ModelConfig) PixelBounds() ([2][2]float64, bool) {
	if len(m.Window) != 2 || len(m.Window[0]) != 2 || len(m.Window[1]) != 2 {
		return [2][2]float64{}, false
	}
	return [2][2]float64{
		{m.Window[0][0], m.Window[0][1]},
		{m.Window[1][0], m.Window[1][1]},
	}, true
}

// Floats accepts either a single number or a list of numbers.
type Floats []float64

func (f *Floats) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var v float64
		if err := value.Decode(&v); err != nil {
			return err
		}
		*f = Floats{v}
		return nil
	}
	var list []float64
	if err := value.Decode(&list); err != nil {
		return err
	}
	*f = list
	return nil
}

// LockSetting is a bool (lock forever / unlock) or an iteration count.
type LockSetting struct {
	value any
}

// Value returns the setting as a bool or an int.
func (l *LockSetting) Value() any { return l.value }

func (l *LockSetting) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: locked must be a bool or an integer", value.Line)
	}
	var b bool
	if err := value.Decode(&b); err == nil {
		l.value = b
		return nil
	}
	var n int
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("line %d: locked must be a bool or an integer: %w", value.Line, err)
	}
	l.value = n
	return nil
}
