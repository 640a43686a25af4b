package fog

import "math"

// Pulse shape kinds.
const (
	ShapeSinSquared = "sin2"
	ShapeGaussian   = "gauss"
)

// speedOfLight in m/s; converts pulse widths in seconds to range windows in meters.
const speedOfLight = 299792458.0

// PulseParams describe the emitted laser pulse and the transmitter/receiver
// geometry that shape the fog response. All values are physical-model choices
// specific to a sensor calibration; none are hard-coded elsewhere.
type PulseParams struct {
	// Shape selects the normalized pulse energy profile: ShapeSinSquared is
	// the sin^2 profile of the underlying derivation, ShapeGaussian a
	// truncated Gaussian alternative.
	Shape string `json:"shape"`

	// TauH is the half-power pulse width in seconds. The pulse occupies the
	// range window [0, c*TauH] with its peak at c*TauH/2.
	TauH float64 `json:"tau_h_s"`

	// Crossover region: below R1 the receiver captures none of the emitted
	// beam, above R2 all of it. Between the two the crossover function
	// ramps from 0 to 1.
	R1 float64 `json:"r_1_m"`
	R2 float64 `json:"r_2_m"`

	// LinearCrossover ramps linearly between R1 and R2. When false, the
	// exact circular beam overlap is computed from the geometry below.
	LinearCrossover bool `json:"linear_crossover"`

	// Beam geometry for the exact crossover: full divergence angles of the
	// transmitted beam and receiver field of view (rad), their exit radii
	// at the sensor (m), and the separation between the two apertures (m).
	DivergenceT float64 `json:"divergence_t_rad"`
	DivergenceR float64 `json:"divergence_r_rad"`
	ExitRadiusT float64 `json:"exit_radius_t_m"`
	ExitRadiusR float64 `json:"exit_radius_r_m"`
	ApertureD   float64 `json:"aperture_separation_m"`

	// BackscatterGain is the device calibration constant translating
	// integrated backscatter (times the fog backscattering coefficient)
	// into the same normalized power units as point intensities.
	BackscatterGain float64 `json:"backscatter_gain"`
}

// DefaultPulseParams returns a generic parameterisation with plausible
// magnitudes for a rotating automotive LiDAR. These are not the calibration
// of any specific sensor; override them from config for real experiments.
func DefaultPulseParams() PulseParams {
	return PulseParams{
		Shape:           ShapeSinSquared,
		TauH:            20e-9,
		R1:              0.9,
		R2:              1.0,
		LinearCrossover: true,
		DivergenceT:     0.003,
		DivergenceR:     0.010,
		ExitRadiusT:     0.010,
		ExitRadiusR:     0.035,
		ApertureD:       0.060,
		BackscatterGain: 10.0,
	}
}

// Validate checks the pulse parameters, returning a *ConfigError on the
// first violation.
func (p PulseParams) Validate() error {
	if p.Shape != ShapeSinSquared && p.Shape != ShapeGaussian {
		return &ConfigError{Param: "shape", Reason: "must be " + ShapeSinSquared + " or " + ShapeGaussian}
	}
	if !(p.TauH > 0) {
		return &ConfigError{Param: "tau_h_s", Reason: "must be positive"}
	}
	if p.R1 < 0 || p.R2 < p.R1 {
		return &ConfigError{Param: "r_1_m/r_2_m", Reason: "need 0 <= R1 <= R2"}
	}
	if !p.LinearCrossover {
		if !(p.DivergenceT > 0) || !(p.DivergenceR > 0) {
			return &ConfigError{Param: "divergence", Reason: "beam divergences must be positive for exact crossover"}
		}
		if !(p.ApertureD > 0) {
			return &ConfigError{Param: "aperture_separation_m", Reason: "must be positive for exact crossover"}
		}
	}
	if !(p.BackscatterGain > 0) {
		return &ConfigError{Param: "backscatter_gain", Reason: "must be positive"}
	}
	return nil
}

// PulseWindow returns the length in meters of the range window occupied by
// the pulse, c*TauH. Beyond this window the profile is zero and the
// backscatter integral has reached its asymptote.
func (p PulseParams) PulseWindow() float64 {
	return speedOfLight * p.TauH
}

// profile evaluates the normalized pulse energy profile at range r. The
// profile integrates to one over its support [0, c*TauH].
func (p PulseParams) profile(r float64) float64 {
	window := p.PulseWindow()
	if r <= 0 || r >= window {
		return 0
	}
	half := window / 2
	switch p.Shape {
	case ShapeGaussian:
		// Truncated Gaussian centered on the window, sigma = window/4,
		// renormalized over the truncated support.
		sigma := window / 4
		norm := sigma * math.Sqrt(2*math.Pi) * math.Erf(half/(sigma*math.Sqrt2))
		d := r - half
		return math.Exp(-d*d/(2*sigma*sigma)) / norm
	default:
		// sin^2(pi r / window) integrates to window/2 over the support.
		s := math.Sin(math.Pi * r / window)
		return s * s / half
	}
}

// crossover evaluates the transmitter/receiver overlap function xsi(r) in
// [0, 1]: the fraction of the emitted beam cross-section captured by the
// receiver at range r.
func (p PulseParams) crossover(r float64) float64 {
	if r <= p.R1 {
		return 0
	}
	if r >= p.R2 {
		return 1
	}
	if p.LinearCrossover {
		return (r - p.R1) / (p.R2 - p.R1)
	}
	return p.circularOverlap(r)
}

// circularOverlap is the exact crossover: the overlap area of the transmitted
// beam disc and the receiver field-of-view disc, normalized by the beam area.
func (p PulseParams) circularOverlap(r float64) float64 {
	rt := r*math.Tan(p.DivergenceT/2) + p.ExitRadiusT
	rr := r*math.Tan(p.DivergenceR/2) + p.ExitRadiusR
	phiT := sectorAngle(rt, rr, p.ApertureD)
	phiR := sectorAngle(rr, rt, p.ApertureD)
	overlap := (rt*rt*(phiT-math.Sin(phiT)) + rr*rr*(phiR-math.Sin(phiR))) / (2 * math.Pi * rt * rt)
	if overlap < 0 {
		return 0
	}
	if overlap > 1 {
		return 1
	}
	return overlap
}

// sectorAngle returns the full angle of the circular segment of a disc with
// radius a intersected by a disc with radius b at center distance d.
func sectorAngle(a, b, d float64) float64 {
	x := (a*a - b*b + d*d) / (2 * d * a)
	switch {
	case x >= 1:
		return 0
	case x <= -1:
		return 2 * math.Pi
	default:
		return 2 * math.Acos(x)
	}
}
