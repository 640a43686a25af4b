package fog

import "fmt"

// ConfigError reports invalid builder or simulator parameters.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fog config: %s: %s", e.Param, e.Reason)
}

// TableMismatchError reports a disagreement between the parameterisation a
// caller requested and the parameterisation a persisted table was built with.
type TableMismatchError struct {
	WantKey string
	GotKey  string
	Detail  string
}

func (e *TableMismatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("fog table mismatch: want key %s, got %s (%s)", e.WantKey, e.GotKey, e.Detail)
	}
	return fmt.Sprintf("fog table mismatch: want key %s, got %s", e.WantKey, e.GotKey)
}

// OutOfTableRangeError reports an input outside the precomputed table domain.
// Axis is "range" or "alpha". Callers must clip their input or build a larger
// table; the simulator never extrapolates.
type OutOfTableRangeError struct {
	Axis  string
	Value float64
	Max   float64
}

func (e *OutOfTableRangeError) Error() string {
	return fmt.Sprintf("fog table: %s %g outside precomputed domain [0, %g]", e.Axis, e.Value, e.Max)
}

// InvalidPointError reports a malformed input point (non-finite coordinates,
// negative intensity, zero range).
type InvalidPointError struct {
	Reason string
}

func (e *InvalidPointError) Error() string {
	return fmt.Sprintf("invalid point: %s", e.Reason)
}
