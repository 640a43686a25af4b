package fog

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// MaxTableCells bounds the builder's memory footprint. A float64 grid of this
// size is 512 MB; resolutions that would exceed it fail with a ConfigError.
const MaxTableCells = 64 << 20

// TableParams define the discretisation of the backscatter integral table
// together with the pulse parameterisation it was built for. The alpha axis
// always starts at 0 so the no-fog boundary column is stored exactly rather
// than extrapolated.
//
// Each axis spans [0, max] with round(max/step)+1 uniform samples, so a step
// that does not divide its max evenly is renormalized to max/(n-1). The
// Table accessors report the effective step.
type TableParams struct {
	RangeStep float64     `json:"range_step_m"`
	MaxRange  float64     `json:"max_range_m"`
	AlphaStep float64     `json:"alpha_step"`
	AlphaMax  float64     `json:"alpha_max"`
	Pulse     PulseParams `json:"pulse"`
}

// DefaultTableParams covers ranges to 120 m at 5 cm resolution and extinction
// coefficients up to 0.5/m (MOR down to 6 m) with the default pulse model.
func DefaultTableParams() TableParams {
	return TableParams{
		RangeStep: 0.05,
		MaxRange:  120,
		AlphaStep: 0.005,
		AlphaMax:  0.5,
		Pulse:     DefaultPulseParams(),
	}
}

// Validate checks the discretisation, returning a *ConfigError on the first
// violation.
func (tp TableParams) Validate() error {
	if !(tp.RangeStep > 0) {
		return &ConfigError{Param: "range_step_m", Reason: "must be positive"}
	}
	if tp.MaxRange < tp.RangeStep {
		return &ConfigError{Param: "max_range_m", Reason: "must be at least one range step"}
	}
	if !(tp.AlphaStep > 0) {
		return &ConfigError{Param: "alpha_step", Reason: "must be positive"}
	}
	if tp.AlphaMax <= 0 {
		return &ConfigError{Param: "alpha_max", Reason: "must exceed the table's alpha minimum of 0"}
	}
	if tp.AlphaStep > tp.AlphaMax {
		return &ConfigError{Param: "alpha_step", Reason: "must not exceed alpha_max; the alpha axis needs at least two samples"}
	}
	if err := tp.Pulse.Validate(); err != nil {
		return err
	}
	cells := int64(tp.rangeCount()) * int64(tp.alphaCount())
	if cells > MaxTableCells {
		return &ConfigError{
			Param:  "range_step_m/alpha_step",
			Reason: fmt.Sprintf("table would hold %d cells, exceeding the %d cell bound", cells, MaxTableCells),
		}
	}
	return nil
}

func (tp TableParams) rangeCount() int {
	return int(math.Round(tp.MaxRange/tp.RangeStep)) + 1
}

func (tp TableParams) alphaCount() int {
	return int(math.Round(tp.AlphaMax/tp.AlphaStep)) + 1
}

// Key returns a short stable digest of the full parameterisation. Persisted
// tables are stored under this key so a simulator can refuse an incompatible
// table instead of silently mis-indexing it.
func (tp TableParams) Key() (string, error) {
	b, err := json.Marshal(tp)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8]), nil
}

// Table is the precomputed backscatter integral I(R, alpha) on a uniform
// (range, alpha) grid. It is built once and read-only afterwards; all fields
// are unexported so concurrent simulation calls can share one instance
// without synchronisation.
type Table struct {
	params TableParams
	key    string
	ranges []float64 // uniform axis 0..MaxRange, len rangeBins
	alphas []float64 // uniform axis 0..AlphaMax, len alphaBins
	values []float64 // len alphaBins*rangeBins, idx = alphaIdx*rangeBins + rangeIdx
}

// Params returns a copy of the parameterisation the table was built with.
func (t *Table) Params() TableParams { return t.params }

// Key returns the parameterisation digest of the table.
func (t *Table) Key() string { return t.key }

// RangeBins returns the number of range buckets, including both boundary rows.
func (t *Table) RangeBins() int { return len(t.ranges) }

// AlphaBins returns the number of alpha buckets, including the alpha=0 column.
func (t *Table) AlphaBins() int { return len(t.alphas) }

// MaxRange returns the largest range the table covers. A lookup at exactly
// this range is in-domain.
func (t *Table) MaxRange() float64 { return t.ranges[len(t.ranges)-1] }

// AlphaMax returns the largest extinction coefficient the table covers.
func (t *Table) AlphaMax() float64 { return t.alphas[len(t.alphas)-1] }

func (t *Table) rangeStep() float64 { return t.ranges[1] - t.ranges[0] }
func (t *Table) alphaStep() float64 { return t.alphas[1] - t.alphas[0] }

// value returns the grid cell at the given indices.
func (t *Table) value(rangeIdx, alphaIdx int) float64 {
	return t.values[alphaIdx*len(t.ranges)+rangeIdx]
}

// EnsureCompatible verifies that the table was built for the requested
// parameterisation, returning a *TableMismatchError otherwise.
func (t *Table) EnsureCompatible(tp TableParams) error {
	want, err := tp.Key()
	if err != nil {
		return err
	}
	if want != t.key {
		return &TableMismatchError{WantKey: want, GotKey: t.key}
	}
	return nil
}

// alphaColumn locates the two alpha columns bracketing alpha and the
// interpolation fraction between them.
func (t *Table) alphaColumn(alpha float64) (lo, hi int, frac float64) {
	pos := alpha / t.alphaStep()
	lo = int(pos)
	if lo >= len(t.alphas)-1 {
		return len(t.alphas) - 1, len(t.alphas) - 1, 0
	}
	return lo, lo + 1, pos - float64(lo)
}

// Integral evaluates I(r, alpha) by bilinear interpolation. It fails with a
// *OutOfTableRangeError when r or alpha lies outside the table axes.
func (t *Table) Integral(r, alpha float64) (float64, error) {
	if math.IsNaN(r) || r < 0 || r > t.MaxRange() {
		return 0, &OutOfTableRangeError{Axis: "range", Value: r, Max: t.MaxRange()}
	}
	if math.IsNaN(alpha) || alpha < 0 || alpha > t.AlphaMax() {
		return 0, &OutOfTableRangeError{Axis: "alpha", Value: alpha, Max: t.AlphaMax()}
	}
	alo, ahi, afrac := t.alphaColumn(alpha)
	pos := r / t.rangeStep()
	rlo := int(pos)
	if rlo >= len(t.ranges)-1 {
		rlo = len(t.ranges) - 1
	}
	rhi := rlo
	rfrac := 0.0
	if rlo < len(t.ranges)-1 {
		rhi = rlo + 1
		rfrac = pos - float64(rlo)
	}
	v0 := (1-rfrac)*t.value(rlo, alo) + rfrac*t.value(rhi, alo)
	v1 := (1-rfrac)*t.value(rlo, ahi) + rfrac*t.value(rhi, ahi)
	return (1-afrac)*v0 + afrac*v1, nil
}

// crossingRange finds the smallest grid range r* <= rLimit at which the
// interpolated column value reaches threshold, exploiting that each column is
// monotone non-decreasing in range. Returns the grid range, the column value
// there, and whether a crossing exists. Cells that are still exactly zero
// never count as a crossing: a fog echo with zero energy is no echo.
func (t *Table) crossingRange(alpha, threshold, rLimit float64) (float64, float64, bool) {
	alo, ahi, afrac := t.alphaColumn(alpha)
	nR := len(t.ranges)

	jMax := int(math.Floor(rLimit/t.rangeStep() + 1e-9))
	if jMax >= nR {
		jMax = nR - 1
	}
	if jMax < 0 {
		return 0, 0, false
	}

	col := func(j int) float64 {
		return (1-afrac)*t.value(j, alo) + afrac*t.value(j, ahi)
	}

	j := sort.Search(jMax+1, func(j int) bool {
		v := col(j)
		return v > 0 && v >= threshold
	})
	if j > jMax {
		return 0, 0, false
	}
	return t.ranges[j], col(j), true
}

// TableSnapshot is the serialised form of a Table for persistence. The grid
// values travel as a gob+gzip blob; the axis definitions travel as the
// parameterisation JSON so a loader can rebuild and re-verify the axes.
type TableSnapshot struct {
	SnapshotID     *int64 // set by the database after insert
	Key            string
	ParamsJSON     string
	BuiltUnixNanos int64
	RangeBins      int
	AlphaBins      int
	Blob           []byte
}

// Snapshot serialises the table for persistence.
func (t *Table) Snapshot() (*TableSnapshot, error) {
	paramsJSON, err := json.Marshal(t.params)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(t.values); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return &TableSnapshot{
		Key:        t.key,
		ParamsJSON: string(paramsJSON),
		RangeBins:  len(t.ranges),
		AlphaBins:  len(t.alphas),
		Blob:       buf.Bytes(),
	}, nil
}

// RestoreTable rebuilds a Table from a persisted snapshot. The axes are
// reconstructed from the parameter JSON and cross-checked against the stored
// key and bin counts; any disagreement fails with a *TableMismatchError
// rather than risking a mis-indexed lookup.
func RestoreTable(s *TableSnapshot) (*Table, error) {
	if s == nil {
		return nil, fmt.Errorf("nil table snapshot")
	}
	var tp TableParams
	if err := json.Unmarshal([]byte(s.ParamsJSON), &tp); err != nil {
		return nil, fmt.Errorf("cannot decode table params: %w", err)
	}
	key, err := tp.Key()
	if err != nil {
		return nil, err
	}
	if key != s.Key {
		return nil, &TableMismatchError{WantKey: s.Key, GotKey: key, Detail: "stored params do not hash to stored key"}
	}
	if tp.rangeCount() != s.RangeBins || tp.alphaCount() != s.AlphaBins {
		return nil, &TableMismatchError{
			WantKey: s.Key,
			GotKey:  key,
			Detail:  fmt.Sprintf("axis bins %dx%d disagree with params %dx%d", s.RangeBins, s.AlphaBins, tp.rangeCount(), tp.alphaCount()),
		}
	}

	gz, err := gzip.NewReader(bytes.NewReader(s.Blob))
	if err != nil {
		return nil, fmt.Errorf("cannot open table blob: %w", err)
	}
	defer gz.Close()
	var values []float64
	if err := gob.NewDecoder(gz).Decode(&values); err != nil {
		return nil, fmt.Errorf("cannot decode table blob: %w", err)
	}
	if len(values) != s.RangeBins*s.AlphaBins {
		return nil, &TableMismatchError{
			WantKey: s.Key,
			GotKey:  key,
			Detail:  fmt.Sprintf("blob holds %d cells, axes describe %d", len(values), s.RangeBins*s.AlphaBins),
		}
	}

	t := &Table{
		params: tp,
		key:    key,
		ranges: spanAxis(tp.MaxRange, s.RangeBins),
		alphas: spanAxis(tp.AlphaMax, s.AlphaBins),
		values: values,
	}
	return t, nil
}
