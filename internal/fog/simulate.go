package fog

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/banshee-data/fogsim/internal/units"
)

// Outcome classifies what the fog response did to a single return.
type Outcome uint8

const (
	// OutcomeUnchanged: fog had no effect (only possible at alpha = 0).
	OutcomeUnchanged Outcome = iota
	// OutcomeAttenuated: the hard target survived but its intensity was
	// reduced by the round-trip atmospheric attenuation.
	OutcomeAttenuated
	// OutcomeReplaced: fog backscatter dominated before the target range
	// and a synthetic fog point superseded the original return.
	OutcomeReplaced
)

// String implements fmt.Stringer for outcome tags in exports and logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeAttenuated:
		return "attenuated"
	case OutcomeReplaced:
		return "replaced"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Valid reports whether o is one of the three defined outcomes.
func (o Outcome) Valid() bool { return o <= OutcomeReplaced }

// Point is a single laser return in sensor-frame Cartesian coordinates with
// a normalized intensity in [0, 1] and an optional laser channel (ring)
// identifier. Points are values; the simulator never mutates its input.
type Point struct {
	X, Y, Z   float64
	Intensity float64
	Channel   int
}

// Range returns the Euclidean distance from the sensor origin.
func (p Point) Range() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Cloud stores simulated points contiguously with a parallel outcome slice,
// index-aligned with the input cloud.
type Cloud struct {
	Points   []Point
	Outcomes []Outcome
}

// Len returns the number of points in the cloud.
func (c *Cloud) Len() int { return len(c.Points) }

// Counts tallies the outcome tags.
func (c *Cloud) Counts() (unchanged, attenuated, replaced int) {
	for _, o := range c.Outcomes {
		switch o {
		case OutcomeAttenuated:
			attenuated++
		case OutcomeReplaced:
			replaced++
		default:
			unchanged++
		}
	}
	return
}

// NoiseModel adds calibrated per-point jitter to synthesized fog points.
// The jitter is a pure function of (point, alpha, Seed), so re-simulating
// the same input reproduces the same output bit for bit regardless of
// worker scheduling.
type NoiseModel struct {
	RangeStdMeters float64
	IntensityStd   float64
	Seed           int64
}

// rng derives a deterministic per-point generator from the model seed and
// the original point under simulation.
func (n NoiseModel) rng(p Point, alpha float64) *rand.Rand {
	h := uint64(n.Seed) ^ 0xcbf29ce484222325
	for _, f := range [...]float64{p.X, p.Y, p.Z, p.Intensity, alpha} {
		h ^= math.Float64bits(f)
		h *= 0x100000001b3
	}
	return rand.New(rand.NewSource(int64(h)))
}

// DefaultMinSeparation is the minimum distance in meters a fog echo must lie
// in front of the hard target before replacement is considered real rather
// than a coincidence within sensor range resolution.
const DefaultMinSeparation = 0.3

// Simulator applies the fog response to clear-weather returns using a
// precomputed backscatter integral table. It is stateless per call: any
// number of goroutines may share one instance.
type Simulator struct {
	table         *Table
	minSeparation float64
	noise         *NoiseModel
	workers       int
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithMinSeparation overrides the minimum fog/target separation in meters.
func WithMinSeparation(m float64) Option {
	return func(s *Simulator) { s.minSeparation = m }
}

// WithNoise enables seeded range/intensity jitter on synthesized fog points.
func WithNoise(n NoiseModel) Option {
	return func(s *Simulator) { s.noise = &n }
}

// WithWorkers sets the number of goroutines SimulateCloud fans out to.
func WithWorkers(n int) Option {
	return func(s *Simulator) { s.workers = n }
}

// NewSimulator creates a simulator over a built or restored table.
func NewSimulator(t *Table, opts ...Option) (*Simulator, error) {
	if t == nil {
		return nil, &ConfigError{Param: "table", Reason: "must not be nil"}
	}
	s := &Simulator{table: t, minSeparation: DefaultMinSeparation}
	for _, opt := range opts {
		opt(s)
	}
	if s.minSeparation < 0 {
		return nil, &ConfigError{Param: "min_separation", Reason: "must be non-negative"}
	}
	if s.workers < 0 {
		return nil, &ConfigError{Param: "workers", Reason: "must be non-negative"}
	}
	return s, nil
}

// Table returns the lookup table the simulator reads from.
func (s *Simulator) Table() *Table { return s.table }

func validatePoint(p Point) error {
	for _, f := range [...]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &InvalidPointError{Reason: "non-finite coordinate"}
		}
	}
	if math.IsNaN(p.Intensity) || math.IsInf(p.Intensity, 0) || p.Intensity < 0 {
		return &InvalidPointError{Reason: fmt.Sprintf("intensity %g out of range", p.Intensity)}
	}
	if p.Range() == 0 {
		return &InvalidPointError{Reason: "zero range"}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Simulate decides the fog response for one clear-weather return under
// extinction coefficient alpha. It returns the output point, its outcome
// tag, and an error for malformed input or out-of-table parameters. The
// transform is a pure function of (point, alpha, noise seed).
//
// The decision follows the received-power argument: the hard target comes
// back attenuated by exp(-2*alpha*R0) while the fog backscatter power grows
// with range as k * I(r, alpha). If the fog curve reaches the hard-target
// power at some r* sufficiently short of R0, the fog echo wins the receiver
// and a synthetic fog point replaces the return.
func (s *Simulator) Simulate(p Point, alpha float64) (Point, Outcome, error) {
	if err := validatePoint(p); err != nil {
		return Point{}, OutcomeUnchanged, err
	}
	if math.IsNaN(alpha) || alpha < 0 || alpha > s.table.AlphaMax() {
		return Point{}, OutcomeUnchanged, &OutOfTableRangeError{Axis: "alpha", Value: alpha, Max: s.table.AlphaMax()}
	}
	if alpha == 0 {
		// No-fog identity: the output equals the input exactly.
		return p, OutcomeUnchanged, nil
	}

	r0 := p.Range()
	if r0 > s.table.MaxRange() {
		return Point{}, OutcomeUnchanged, &OutOfTableRangeError{Axis: "range", Value: r0, Max: s.table.MaxRange()}
	}

	// Round-trip attenuation of the hard target.
	pHard := p.Intensity * math.Exp(-2*alpha*r0)
	attenuated := p
	attenuated.Intensity = pHard

	// Fog backscatter power curve P_fog(r) = k * I(r, alpha), with k the
	// calibration gain scaled by the fog backscattering coefficient.
	k := s.table.params.Pulse.BackscatterGain * units.BackscatterFromExtinction(alpha)
	if k <= 0 {
		return attenuated, OutcomeAttenuated, nil
	}

	rStar, iStar, found := s.table.crossingRange(alpha, pHard/k, r0)
	if !found || rStar >= r0-s.minSeparation {
		return attenuated, OutcomeAttenuated, nil
	}

	// Fog wins: synthesize the fog point on the original line of sight.
	scale := rStar / r0
	fogPoint := Point{
		X:         p.X * scale,
		Y:         p.Y * scale,
		Z:         p.Z * scale,
		Intensity: clamp01(k * iStar),
		Channel:   p.Channel,
	}
	if s.noise != nil {
		fogPoint = s.applyNoise(fogPoint, p, alpha, rStar, r0)
	}
	return fogPoint, OutcomeReplaced, nil
}

// applyNoise jitters the synthesized fog point along its line of sight and in
// intensity. The jittered range stays strictly inside (0, R0 - minSeparation)
// so a replaced point can never migrate past its original target.
func (s *Simulator) applyNoise(fogPoint, original Point, alpha, rStar, r0 float64) Point {
	rng := s.noise.rng(original, alpha)

	r := rStar
	if s.noise.RangeStdMeters > 0 {
		r += rng.NormFloat64() * s.noise.RangeStdMeters
		limit := r0 - s.minSeparation
		if r >= limit {
			r = limit - 1e-9
		}
		if r < s.table.rangeStep() {
			r = s.table.rangeStep()
		}
	}
	scale := r / rStar
	fogPoint.X *= scale
	fogPoint.Y *= scale
	fogPoint.Z *= scale

	if s.noise.IntensityStd > 0 {
		fogPoint.Intensity = clamp01(fogPoint.Intensity + rng.NormFloat64()*s.noise.IntensityStd)
	}
	return fogPoint
}

// SimulateCloud applies Simulate to every point of a cloud, preserving input
// order and length. Points are processed by a pool of workers writing to
// disjoint index ranges of the preallocated output, so there is no shared
// mutable state. The call fails atomically on the first malformed point or
// out-of-table input; callers that want to skip bad points instead should
// drive Simulate directly.
func (s *Simulator) SimulateCloud(points []Point, alpha float64) (*Cloud, error) {
	out := &Cloud{
		Points:   make([]Point, len(points)),
		Outcomes: make([]Outcome, len(points)),
	}
	if len(points) == 0 {
		return out, nil
	}

	workers := s.workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(points) {
		workers = len(points)
	}

	chunk := (len(points) + workers - 1) / workers
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(points) {
			hi = len(points)
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				pt, outcome, err := s.Simulate(points[i], alpha)
				if err != nil {
					errs[w] = fmt.Errorf("point %d: %w", i, err)
					return
				}
				out.Points[i] = pt
				out.Outcomes[i] = outcome
			}
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
