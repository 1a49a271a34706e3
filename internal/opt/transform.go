package opt

import (
	"fmt"
	"math"
)

// boundTransform maps between an unconstrained internal coordinate space
// and the bounded parameter space, so an unconstrained quasi-Newton
// method can honour box bounds. The change of variables is the one
// MINUIT uses for bounded parameters:
//
//	both bounds:  x = l + (u-l)*(sin(z)+1)/2
//	lower only:   x = l - 1 + sqrt(z*z+1)
//	upper only:   x = u + 1 - sqrt(z*z+1)
//
// Unbounded coordinates pass through unchanged.
type boundTransform struct {
	lower []float64
	upper []float64
}

func newBoundTransform(lower, upper []float64) (*boundTransform, error) {
	if len(lower) != len(upper) {
		return nil, fmt.Errorf("%w: %d lower vs %d upper entries", ErrBadBounds, len(lower), len(upper))
	}
	for i := range lower {
		if math.IsNaN(lower[i]) || math.IsNaN(upper[i]) {
			return nil, fmt.Errorf("%w: NaN bound at index %d", ErrBadBounds, i)
		}
		if lower[i] > upper[i] {
			return nil, fmt.Errorf("%w: lower %g above upper %g at index %d", ErrBadBounds, lower[i], upper[i], i)
		}
	}
	return &boundTransform{lower: lower, upper: upper}, nil
}

// toBounded fills x with the bounded image of the internal point z.
func (t *boundTransform) toBounded(z, x []float64) {
	for i, zi := range z {
		l, u := t.lower[i], t.upper[i]
		switch {
		case math.IsInf(l, -1) && math.IsInf(u, 1):
			x[i] = zi
		case math.IsInf(u, 1):
			x[i] = l - 1 + math.Sqrt(zi*zi+1)
		case math.IsInf(l, -1):
			x[i] = u + 1 - math.Sqrt(zi*zi+1)
		case l == u:
			x[i] = l
		default:
			x[i] = l + (u-l)*(math.Sin(zi)+1)/2
		}
	}
}

// toInternal fills z with an internal preimage of x. Points outside the
// bounds are clamped first, and points sitting exactly on a bound are
// nudged inside: the transform's derivative vanishes on the boundary,
// which would freeze that coordinate for the whole run.
func (t *boundTransform) toInternal(x, z []float64) {
	for i, xi := range x {
		l, u := t.lower[i], t.upper[i]
		switch {
		case math.IsInf(l, -1) && math.IsInf(u, 1):
			z[i] = xi
		case math.IsInf(u, 1):
			v := xi - l
			if nudge := edgeNudge(l); v < nudge {
				v = nudge
			}
			z[i] = math.Sqrt((v+1)*(v+1) - 1)
		case math.IsInf(l, -1):
			v := u - xi
			if nudge := edgeNudge(u); v < nudge {
				v = nudge
			}
			z[i] = math.Sqrt((v+1)*(v+1) - 1)
		case l == u:
			z[i] = 0
		default:
			v := (xi - l) / (u - l)
			const margin = 1e-6
			if v < margin {
				v = margin
			}
			if v > 1-margin {
				v = 1 - margin
			}
			z[i] = math.Asin(2*v - 1)
		}
	}
}

// edgeNudge is the distance a start point sitting on a half-open bound
// is moved into the interior.
func edgeNudge(bound float64) float64 {
	return 1e-9 * (1 + math.Abs(bound))
}

// clampToBounds snaps float spill from the transform round trip back
// onto the box.
func clampToBounds(x, lower, upper []float64) {
	for i := range x {
		if x[i] < lower[i] {
			x[i] = lower[i]
		}
		if x[i] > upper[i] {
			x[i] = upper[i]
		}
	}
}
