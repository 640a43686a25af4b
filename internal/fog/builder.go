package fog

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/fogsim/internal/monitoring"
)

// spanAxis builds a uniform axis from 0 to max with n samples.
func spanAxis(max float64, n int) []float64 {
	return floats.Span(make([]float64, n), 0, max)
}

// BuildTable precomputes the atmospheric backscatter integral
//
//	I(R, alpha) = integral 0..R of p(r) * xsi(r) * exp(-2*alpha*r) dr
//
// on a uniform (range, alpha) grid, where p is the normalized pulse energy
// profile and xsi the transmitter/receiver crossover. Each alpha column is a
// running cumulative trapezoid along the range axis, so the partial sum up to
// row j-1 is reused for row j instead of re-integrating from zero.
//
// Boundary rows are stored exactly: I(0, alpha) = 0 for every alpha, and the
// alpha = 0 column is the pulse's own cumulative (crossover-weighted) energy
// with no atmospheric attenuation applied.
func BuildTable(tp TableParams) (*Table, error) {
	if err := tp.Validate(); err != nil {
		return nil, err
	}
	key, err := tp.Key()
	if err != nil {
		return nil, err
	}

	nR := tp.rangeCount()
	nA := tp.alphaCount()
	ranges := spanAxis(tp.MaxRange, nR)
	alphas := spanAxis(tp.AlphaMax, nA)
	step := ranges[1] - ranges[0]

	// The attenuation-free part of the integrand is the same for every
	// column; evaluate it once per range row.
	prof := make([]float64, nR)
	for j, r := range ranges {
		prof[j] = tp.Pulse.profile(r) * tp.Pulse.crossover(r)
	}

	values := make([]float64, nA*nR)
	for ai, alpha := range alphas {
		col := values[ai*nR : (ai+1)*nR]
		prev := prof[0] // exp(-2*alpha*0) == 1
		col[0] = 0
		for j := 1; j < nR; j++ {
			cur := prof[j] * math.Exp(-2*alpha*ranges[j])
			col[j] = col[j-1] + 0.5*(prev+cur)*step
			prev = cur
		}
	}

	monitoring.Logf("[TableBuilder] built fog response table: key=%s, range_bins=%d, alpha_bins=%d, asymptote(alpha=0)=%.6f",
		key, nR, nA, values[nR-1])

	return &Table{
		params: tp,
		key:    key,
		ranges: ranges,
		alphas: alphas,
		values: values,
	}, nil
}
