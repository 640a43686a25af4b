// Package fog augments clear-weather LiDAR returns with physically
// plausible fog effects.
//
// The package has two halves. BuildTable precomputes the atmospheric
// backscatter integral over a (range, extinction coefficient) grid so that
// simulation never integrates per point. Simulator then decides, for each
// return, whether the attenuated hard-target echo or the accumulated fog
// backscatter dominates the receiver, and synthesizes a replacement fog
// point when the fog wins.
//
// Tables are immutable after construction and safe for unsynchronised
// concurrent reads. Simulation is a pure function of (point, alpha, seed),
// applied independently per point.
package fog
