// Package config loads the picoservo host configuration: the clock divider
// and the outputs and servos to configure on the device.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"picoservo/core"
)

// MaxPin is the highest RP2040 GPIO with a PWM function
const MaxPin = 29

type Config struct {
	// ClockDivider applies to raw outputs; 0 selects core.DefaultClockDivider.
	// Servos always run at the default so their ticks keep a 50Hz frame.
	ClockDivider float32        `yaml:"clock_divider" json:"clock_divider"`
	Outputs      []OutputConfig `yaml:"outputs" json:"outputs"`
	Servos       []ServoConfig  `yaml:"servos" json:"servos"`
}

// OutputConfig declares a raw PWM output
type OutputConfig struct {
	Name string `yaml:"name" json:"name"`
	Pin  uint32 `yaml:"pin" json:"pin"`
}

// ServoConfig declares a servo. Zero calibration fields take the SG92R
// defaults.
type ServoConfig struct {
	Name       string `yaml:"name" json:"name"`
	Pin        uint32 `yaml:"pin" json:"pin"`
	StartTicks uint16 `yaml:"start_ticks" json:"start_ticks"`
	EndTicks   uint16 `yaml:"end_ticks" json:"end_ticks"`
	MaxDegrees uint32 `yaml:"max_degrees" json:"max_degrees"`
}

// Calibration returns the servo's calibration in core terms
func (s ServoConfig) Calibration() core.ServoCalibration {
	return core.ServoCalibration{
		StartTicks: s.StartTicks,
		EndTicks:   s.EndTicks,
		MaxDegrees: s.MaxDegrees,
	}
}

// Default returns a configuration with one servo on GPIO2
func Default() Config {
	cfg := Config{
		Servos: []ServoConfig{{Name: "servo0", Pin: 2}},
	}
	applyDefaults(&cfg)
	return cfg
}

// Load reads a YAML (.yaml, .yml) or JSON (.json) configuration file,
// fills in defaults and validates it.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ClockDivider == 0 {
		cfg.ClockDivider = core.DefaultClockDivider
	}
	for i := range cfg.Servos {
		s := &cfg.Servos[i]
		if s.StartTicks == 0 && s.EndTicks == 0 {
			s.StartTicks = core.ServoStartTicks
			s.EndTicks = core.ServoEndTicks
		}
		if s.MaxDegrees == 0 {
			s.MaxDegrees = core.HalfTurnDegrees
		}
	}
}

// Validate checks names, pins and servo calibration.
// Every problem found is reported in the combined error.
func (c Config) Validate() error {
	var errs error
	divider := c.ClockDivider
	if divider == 0 {
		divider = core.DefaultClockDivider
	}
	if !core.ValidClockDivider(divider) {
		errs = multierr.Append(errs, fmt.Errorf("clock_divider %v outside 1..%v", c.ClockDivider, core.MaxClockDivider))
	}

	names := make(map[string]bool)
	pins := make(map[uint32]string)
	claim := func(kind, name string, pin uint32) error {
		if name == "" {
			return fmt.Errorf("%s on pin %d has no name", kind, pin)
		}
		if names[name] {
			return fmt.Errorf("duplicate name %q", name)
		}
		if pin > MaxPin {
			return fmt.Errorf("%s %q: pin %d above %d", kind, name, pin, MaxPin)
		}
		if other, used := pins[pin]; used {
			return fmt.Errorf("%s %q: pin %d already used by %q", kind, name, pin, other)
		}
		names[name] = true
		pins[pin] = name
		return nil
	}

	for _, o := range c.Outputs {
		errs = multierr.Append(errs, claim("output", o.Name, o.Pin))
	}
	for _, s := range c.Servos {
		errs = multierr.Append(errs, claim("servo", s.Name, s.Pin))
		if err := s.Calibration().Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("servo %q: %w", s.Name, err))
		}
	}

	// A slice has one divider, so a servo cannot share one with an output
	// running at another
	if core.ValidClockDivider(divider) && divider != core.DefaultClockDivider {
		outputSlices := make(map[core.PWMSlice]string)
		for _, o := range c.Outputs {
			outputSlices[core.RP2040Slice(core.PWMPin(o.Pin))] = o.Name
		}
		for _, s := range c.Servos {
			slice := core.RP2040Slice(core.PWMPin(s.Pin))
			if other, shared := outputSlices[slice]; shared {
				errs = multierr.Append(errs, fmt.Errorf(
					"servo %q: pin %d shares slice %d with output %q at clock_divider %v: %w",
					s.Name, s.Pin, slice, other, c.ClockDivider, core.ErrSliceConflict))
			}
		}
	}
	return errs
}
