// Package config loads fog simulation tuning parameters from JSON files.
// Fields omitted from a file keep their defaults, so partial configs are
// safe; the Get* methods and TableParams are the single source of defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/fogsim/internal/fog"
)

// FogConfig represents the root tuning configuration. The same JSON schema
// feeds both the table builder and the simulator so one file fully
// reproduces an experiment.
type FogConfig struct {
	// Table discretisation
	RangeStepMeters *float64 `json:"range_step_m,omitempty"`
	MaxRangeMeters  *float64 `json:"max_range_m,omitempty"`
	AlphaStep       *float64 `json:"alpha_step,omitempty"`
	AlphaMax        *float64 `json:"alpha_max,omitempty"`

	// Pulse model
	PulseShape      *string  `json:"pulse_shape,omitempty"`
	TauHSeconds     *float64 `json:"tau_h_s,omitempty"`
	CrossoverR1     *float64 `json:"crossover_r1_m,omitempty"`
	CrossoverR2     *float64 `json:"crossover_r2_m,omitempty"`
	LinearCrossover *bool    `json:"linear_crossover,omitempty"`
	BackscatterGain *float64 `json:"backscatter_gain,omitempty"`

	// Simulator
	MinSeparationMeters *float64 `json:"min_separation_m,omitempty"`
	Workers             *int     `json:"workers,omitempty"`

	// Optional sensor noise (applied to synthesized fog points only)
	NoiseRangeStdMeters *float64 `json:"noise_range_std_m,omitempty"`
	NoiseIntensityStd   *float64 `json:"noise_intensity_std,omitempty"`
	NoiseSeed           *int64   `json:"noise_seed,omitempty"`
}

// EmptyFogConfig returns a FogConfig with all fields unset.
func EmptyFogConfig() *FogConfig {
	return &FogConfig{}
}

// LoadFogConfig loads a FogConfig from a JSON file. The file must have a
// .json extension and stay under a 1MB safety bound.
func LoadFogConfig(path string) (*FogConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyFogConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that have been set. The full
// physical validation happens in fog.TableParams.Validate; this catches
// obviously malformed files early with a friendlier message.
func (c *FogConfig) Validate() error {
	if c.RangeStepMeters != nil && *c.RangeStepMeters <= 0 {
		return fmt.Errorf("range_step_m must be positive, got %f", *c.RangeStepMeters)
	}
	if c.AlphaStep != nil && *c.AlphaStep <= 0 {
		return fmt.Errorf("alpha_step must be positive, got %f", *c.AlphaStep)
	}
	if c.PulseShape != nil && *c.PulseShape != fog.ShapeSinSquared && *c.PulseShape != fog.ShapeGaussian {
		return fmt.Errorf("pulse_shape must be %q or %q, got %q", fog.ShapeSinSquared, fog.ShapeGaussian, *c.PulseShape)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.NoiseRangeStdMeters != nil && *c.NoiseRangeStdMeters < 0 {
		return fmt.Errorf("noise_range_std_m must be non-negative, got %f", *c.NoiseRangeStdMeters)
	}
	if c.NoiseIntensityStd != nil && *c.NoiseIntensityStd < 0 {
		return fmt.Errorf("noise_intensity_std must be non-negative, got %f", *c.NoiseIntensityStd)
	}
	return nil
}

// TableParams assembles the fog table parameterisation, applying defaults
// for any unset field.
func (c *FogConfig) TableParams() fog.TableParams {
	tp := fog.DefaultTableParams()
	if c.RangeStepMeters != nil {
		tp.RangeStep = *c.RangeStepMeters
	}
	if c.MaxRangeMeters != nil {
		tp.MaxRange = *c.MaxRangeMeters
	}
	if c.AlphaStep != nil {
		tp.AlphaStep = *c.AlphaStep
	}
	if c.AlphaMax != nil {
		tp.AlphaMax = *c.AlphaMax
	}
	if c.PulseShape != nil {
		tp.Pulse.Shape = *c.PulseShape
	}
	if c.TauHSeconds != nil {
		tp.Pulse.TauH = *c.TauHSeconds
	}
	if c.CrossoverR1 != nil {
		tp.Pulse.R1 = *c.CrossoverR1
	}
	if c.CrossoverR2 != nil {
		tp.Pulse.R2 = *c.CrossoverR2
	}
	if c.LinearCrossover != nil {
		tp.Pulse.LinearCrossover = *c.LinearCrossover
	}
	if c.BackscatterGain != nil {
		tp.Pulse.BackscatterGain = *c.BackscatterGain
	}
	return tp
}

// GetMinSeparation returns the min_separation_m value or the default.
func (c *FogConfig) GetMinSeparation() float64 {
	if c.MinSeparationMeters == nil {
		return fog.DefaultMinSeparation
	}
	return *c.MinSeparationMeters
}

// GetWorkers returns the workers value or 0 (one worker per CPU).
func (c *FogConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// NoiseEnabled reports whether any noise field is configured.
func (c *FogConfig) NoiseEnabled() bool {
	return c.NoiseRangeStdMeters != nil || c.NoiseIntensityStd != nil
}

// NoiseModel assembles the noise model from the configured fields.
func (c *FogConfig) NoiseModel() fog.NoiseModel {
	n := fog.NoiseModel{}
	if c.NoiseRangeStdMeters != nil {
		n.RangeStdMeters = *c.NoiseRangeStdMeters
	}
	if c.NoiseIntensityStd != nil {
		n.IntensityStd = *c.NoiseIntensityStd
	}
	if c.NoiseSeed != nil {
		n.Seed = *c.NoiseSeed
	}
	return n
}
