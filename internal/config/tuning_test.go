package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/fogsim/internal/fog"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoadFogConfigDefaults(t *testing.T) {
	path := writeConfig(t, "empty.json", `{}`)
	cfg, err := LoadFogConfig(path)
	if err != nil {
		t.Fatalf("LoadFogConfig failed: %v", err)
	}

	tp := cfg.TableParams()
	def := fog.DefaultTableParams()
	if tp != def {
		t.Errorf("empty config should yield defaults: got %+v", tp)
	}
	if got := cfg.GetMinSeparation(); got != fog.DefaultMinSeparation {
		t.Errorf("GetMinSeparation = %g, want default %g", got, fog.DefaultMinSeparation)
	}
	if got := cfg.GetWorkers(); got != 0 {
		t.Errorf("GetWorkers = %d, want 0", got)
	}
	if cfg.NoiseEnabled() {
		t.Error("NoiseEnabled should be false for empty config")
	}
}

func TestLoadFogConfigOverrides(t *testing.T) {
	path := writeConfig(t, "tuned.json", `{
		"range_step_m": 0.1,
		"max_range_m": 80,
		"alpha_max": 0.3,
		"pulse_shape": "gauss",
		"tau_h_s": 25e-9,
		"crossover_r1_m": 0.5,
		"crossover_r2_m": 8.0,
		"linear_crossover": false,
		"backscatter_gain": 12.5,
		"min_separation_m": 0.5,
		"workers": 4,
		"noise_range_std_m": 0.05,
		"noise_intensity_std": 0.02,
		"noise_seed": 99
	}`)
	cfg, err := LoadFogConfig(path)
	if err != nil {
		t.Fatalf("LoadFogConfig failed: %v", err)
	}

	tp := cfg.TableParams()
	if tp.RangeStep != 0.1 || tp.MaxRange != 80 || tp.AlphaMax != 0.3 {
		t.Errorf("discretisation overrides not applied: %+v", tp)
	}
	// Unset fields keep their defaults.
	if tp.AlphaStep != fog.DefaultTableParams().AlphaStep {
		t.Errorf("alpha_step should keep default, got %g", tp.AlphaStep)
	}
	if tp.Pulse.Shape != fog.ShapeGaussian || tp.Pulse.TauH != 25e-9 {
		t.Errorf("pulse overrides not applied: %+v", tp.Pulse)
	}
	if tp.Pulse.R1 != 0.5 || tp.Pulse.R2 != 8.0 || tp.Pulse.LinearCrossover {
		t.Errorf("crossover overrides not applied: %+v", tp.Pulse)
	}
	if tp.Pulse.BackscatterGain != 12.5 {
		t.Errorf("backscatter_gain = %g, want 12.5", tp.Pulse.BackscatterGain)
	}
	if got := cfg.GetMinSeparation(); got != 0.5 {
		t.Errorf("GetMinSeparation = %g, want 0.5", got)
	}
	if got := cfg.GetWorkers(); got != 4 {
		t.Errorf("GetWorkers = %d, want 4", got)
	}
	if !cfg.NoiseEnabled() {
		t.Fatal("NoiseEnabled should be true")
	}
	n := cfg.NoiseModel()
	if n.RangeStdMeters != 0.05 || n.IntensityStd != 0.02 || n.Seed != 99 {
		t.Errorf("noise model not assembled: %+v", n)
	}
}

func TestLoadFogConfigRejectsBadFiles(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "tuning.yaml", `{}`},
		{"invalid json", "broken.json", `{`},
		{"negative range step", "bad_step.json", `{"range_step_m": -0.1}`},
		{"negative alpha step", "bad_alpha.json", `{"alpha_step": 0}`},
		{"unknown pulse shape", "bad_shape.json", `{"pulse_shape": "boxcar"}`},
		{"negative workers", "bad_workers.json", `{"workers": -1}`},
		{"negative noise", "bad_noise.json", `{"noise_range_std_m": -0.5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.file, tc.content)
			if _, err := LoadFogConfig(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFogConfigMissingFile(t *testing.T) {
	if _, err := LoadFogConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
