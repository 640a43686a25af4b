// Package units provides shared constants and conversions between the two
// fog density representations used across the project: the extinction
// coefficient alpha (1/m) and the meteorological optical range (m).
package units

import "math"

// Unit constants for CLI flags and API parameters.
const (
	Alpha      = "alpha"
	Visibility = "visibility"
)

// ValidUnits contains all valid fog density unit values.
var ValidUnits = []string{Alpha, Visibility}

// koschmieder is ln(20), the Koschmieder constant for the 5% contrast
// threshold that defines the meteorological optical range.
var koschmieder = math.Log(20)

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages.
func GetValidUnitsString() string {
	return "alpha, visibility"
}

// ExtinctionFromVisibility converts a meteorological optical range in meters
// to an extinction coefficient in 1/m via MOR = ln(20) / alpha.
// Non-positive visibility yields 0 (clear air).
func ExtinctionFromVisibility(morMeters float64) float64 {
	if morMeters <= 0 {
		return 0
	}
	return koschmieder / morMeters
}

// VisibilityFromExtinction converts an extinction coefficient in 1/m to a
// meteorological optical range in meters. Alpha = 0 yields +Inf (clear air).
func VisibilityFromExtinction(alpha float64) float64 {
	if alpha <= 0 {
		return math.Inf(1)
	}
	return koschmieder / alpha
}

// BackscatterFromExtinction derives the fog backscattering coefficient beta
// (1/m/sr) from the extinction coefficient using the 0.046/MOR convention,
// i.e. beta = 0.046 * alpha / ln(20).
func BackscatterFromExtinction(alpha float64) float64 {
	if alpha <= 0 {
		return 0
	}
	return 0.046 * alpha / koschmieder
}
