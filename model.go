package vikhlinin

import "math"

// densityAt evaluates the model at a single radius. The profile is a
// cored power law with a polytropic-like mid range and an extra outer
// steepening:
//
//	n(r) = n0 * (r/rc)^(-alpha/2)
//	          / (1 + (r/rc)^2)^(3*beta/2 - alpha/4)
//	          / (1 + (r/rs)^3)^(epsilon/6)
//
// The function performs no validation. Radii at or below zero, or a
// zero core or scale radius, propagate NaN or Inf through math.Pow.
func densityAt(r float64, p Params) float64 {
	rc := r / p.RCore
	rs := r / p.RScale

	term1 := math.Pow(rc, -p.Alpha/2)
	term2 := math.Pow(1+rc*rc, 3*p.Beta/2-p.Alpha/4)
	term3 := math.Pow(1+rs*rs*rs, p.Epsilon/6)

	return p.N0 * term1 / term2 / term3
}

// Density evaluates the model density at every radius. The input slice
// is never modified and both inputs are left untouched, so the function
// is safe to call repeatedly with shared slices.
func Density(radii []float64, p Params) []float64 {
	out := make([]float64, len(radii))
	for i, r := range radii {
		out[i] = densityAt(r, p)
	}
	return out
}

// LogDensity evaluates the base-10 logarithm of the model density at
// every radius. Fitting happens in log space, where the profile's many
// decades of dynamic range weigh equally.
func LogDensity(radii []float64, p Params) []float64 {
	out := make([]float64, len(radii))
	for i, r := range radii {
		out[i] = math.Log10(densityAt(r, p))
	}
	return out
}
