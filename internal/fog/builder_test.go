package fog

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/integrate"
)

// makeTestTableParams returns a discretisation small enough to build in
// every test but covering the ranges the scenarios need.
func makeTestTableParams() TableParams {
	tp := DefaultTableParams()
	tp.MaxRange = 60
	return tp
}

func TestBuildTableZeroRangeRow(t *testing.T) {
	tab, err := BuildTable(makeTestTableParams())
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	for ai := 0; ai < tab.AlphaBins(); ai += 10 {
		if got := tab.value(0, ai); got != 0 {
			t.Errorf("I(0, alpha[%d]) = %g, want exactly 0", ai, got)
		}
	}
}

func TestBuildTableMonotonicInRange(t *testing.T) {
	tab, err := BuildTable(makeTestTableParams())
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	for ai := 0; ai < tab.AlphaBins(); ai += 7 {
		for ri := 1; ri < tab.RangeBins(); ri++ {
			if tab.value(ri, ai) < tab.value(ri-1, ai) {
				t.Fatalf("I not monotone: alpha bin %d, range bins %d->%d: %g -> %g",
					ai, ri-1, ri, tab.value(ri-1, ai), tab.value(ri, ai))
			}
		}
	}
}

func TestBuildTableDecreasingInAlpha(t *testing.T) {
	tab, err := BuildTable(makeTestTableParams())
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	// Fix a range well past the pulse window so every column is positive;
	// heavier extinction must accumulate strictly less backscatter there.
	ri := tab.RangeBins() - 1
	for ai := 1; ai < tab.AlphaBins(); ai++ {
		if tab.value(ri, ai) >= tab.value(ri, ai-1) {
			t.Fatalf("I not decreasing in alpha at max range: bins %d->%d: %g -> %g",
				ai-1, ai, tab.value(ri, ai-1), tab.value(ri, ai))
		}
	}
}

func TestBuildTableAsymptote(t *testing.T) {
	tp := makeTestTableParams()
	tab, err := BuildTable(tp)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	// Beyond the pulse window the profile is zero, so the integral must
	// have saturated.
	window := tp.Pulse.PulseWindow()
	startBin := int(window/tp.RangeStep) + 2
	final := tab.value(tab.RangeBins()-1, 0)
	if got := tab.value(startBin, 0); math.Abs(got-final) > 1e-12 {
		t.Errorf("alpha=0 column not saturated past pulse window: I=%g at bin %d, final %g",
			got, startBin, final)
	}
	if final <= 0 {
		t.Errorf("alpha=0 asymptote should be positive, got %g", final)
	}
}

func TestBuildTableNoFogColumnMatchesPulseEnergy(t *testing.T) {
	tp := makeTestTableParams()
	tab, err := BuildTable(tp)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}

	// Reference value via Simpson quadrature on a finer grid: with no
	// extinction the integral is the pulse's own cumulative
	// crossover-weighted energy.
	const n = 24001
	upper := tp.Pulse.PulseWindow()
	x := make([]float64, n)
	f := make([]float64, n)
	for i := range x {
		x[i] = upper * float64(i) / float64(n-1)
		f[i] = tp.Pulse.profile(x[i]) * tp.Pulse.crossover(x[i])
	}
	want := integrate.Simpsons(x, f)

	got := tab.value(tab.RangeBins()-1, 0)
	if math.Abs(got-want)/want > 1e-3 {
		t.Errorf("alpha=0 asymptote = %g, Simpson reference %g", got, want)
	}
}

func TestBuildTableAttenuatedReference(t *testing.T) {
	tp := makeTestTableParams()
	tab, err := BuildTable(tp)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}

	const alpha = 0.1
	const n = 24001
	upper := tp.Pulse.PulseWindow()
	x := make([]float64, n)
	f := make([]float64, n)
	for i := range x {
		x[i] = upper * float64(i) / float64(n-1)
		f[i] = tp.Pulse.profile(x[i]) * tp.Pulse.crossover(x[i]) * math.Exp(-2*alpha*x[i])
	}
	want := integrate.Simpsons(x, f)

	got, err := tab.Integral(upper, alpha)
	if err != nil {
		t.Fatalf("Integral failed: %v", err)
	}
	if math.Abs(got-want)/want > 1e-3 {
		t.Errorf("I(%g, %g) = %g, Simpson reference %g", upper, alpha, got, want)
	}
}

func TestBuildTableConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TableParams)
	}{
		{"alpha max not above min", func(tp *TableParams) { tp.AlphaMax = 0 }},
		{"negative alpha max", func(tp *TableParams) { tp.AlphaMax = -0.1 }},
		{"zero range step", func(tp *TableParams) { tp.RangeStep = 0 }},
		{"zero alpha step", func(tp *TableParams) { tp.AlphaStep = 0 }},
		{"alpha step above alpha max", func(tp *TableParams) { tp.AlphaStep = 0.5; tp.AlphaMax = 0.2 }},
		{"table too large", func(tp *TableParams) { tp.RangeStep = 1e-6 }},
		{"bad pulse shape", func(tp *TableParams) { tp.Pulse.Shape = "triangle" }},
		{"zero pulse width", func(tp *TableParams) { tp.Pulse.TauH = 0 }},
		{"inverted crossover", func(tp *TableParams) { tp.Pulse.R1 = 2; tp.Pulse.R2 = 1 }},
		{"zero gain", func(tp *TableParams) { tp.Pulse.BackscatterGain = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tp := makeTestTableParams()
			tc.mutate(&tp)
			_, err := BuildTable(tp)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestBuildTableGaussianShape(t *testing.T) {
	tp := makeTestTableParams()
	tp.Pulse.Shape = ShapeGaussian
	tab, err := BuildTable(tp)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	if tab.value(tab.RangeBins()-1, 0) <= 0 {
		t.Error("gaussian pulse table should accumulate positive energy")
	}
}
