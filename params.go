package vikhlinin

import (
	"fmt"
	"math"
)

// NumParams is the number of free model parameters.
const NumParams = 6

// Params holds the six model parameters. Vector order is fixed:
// n0, rCore, rScale, alpha, beta, epsilon.
type Params struct {
	N0      float64 // central normalisation, in the density unit
	RCore   float64 // core radius, in the radius unit
	RScale  float64 // scale radius of the outer steepening, in the radius unit
	Alpha   float64 // inner slope
	Beta    float64 // mid-range slope
	Epsilon float64 // outer steepening strength
}

// Vector returns the parameters in their fixed order.
func (p Params) Vector() []float64 {
	return []float64{p.N0, p.RCore, p.RScale, p.Alpha, p.Beta, p.Epsilon}
}

// ParamsFromVector builds Params from a vector in the fixed order.
func ParamsFromVector(x []float64) (Params, error) {
	if len(x) != NumParams {
		return Params{}, fmt.Errorf("%w: got %d", ErrBadVector, len(x))
	}
	return Params{
		N0:      x[0],
		RCore:   x[1],
		RScale:  x[2],
		Alpha:   x[3],
		Beta:    x[4],
		Epsilon: x[5],
	}, nil
}

// Interval is a closed parameter range. Either edge may be infinite.
type Interval struct {
	Lower float64
	Upper float64
}

// contains reports whether v lies inside the interval.
func (iv Interval) contains(v float64) bool {
	return v >= iv.Lower && v <= iv.Upper
}

// clamp snaps v onto the interval.
func (iv Interval) clamp(v float64) float64 {
	if v < iv.Lower {
		return iv.Lower
	}
	if v > iv.Upper {
		return iv.Upper
	}
	return v
}

// Bounds constrains each model parameter to an interval.
type Bounds struct {
	N0      Interval
	RCore   Interval
	RScale  Interval
	Alpha   Interval
	Beta    Interval
	Epsilon Interval
}

// BoundsFromVectors builds Bounds from lower and upper vectors in the
// fixed parameter order.
func BoundsFromVectors(lower, upper []float64) (Bounds, error) {
	if len(lower) != NumParams || len(upper) != NumParams {
		return Bounds{}, fmt.Errorf("%w: got %d lower and %d upper entries", ErrBadVector, len(lower), len(upper))
	}
	b := Bounds{
		N0:      Interval{lower[0], upper[0]},
		RCore:   Interval{lower[1], upper[1]},
		RScale:  Interval{lower[2], upper[2]},
		Alpha:   Interval{lower[3], upper[3]},
		Beta:    Interval{lower[4], upper[4]},
		Epsilon: Interval{lower[5], upper[5]},
	}
	if err := b.Validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

// intervals returns the bounds in the fixed parameter order.
func (b Bounds) intervals() [NumParams]Interval {
	return [NumParams]Interval{b.N0, b.RCore, b.RScale, b.Alpha, b.Beta, b.Epsilon}
}

// Vectors returns the lower and upper bounds as vectors in the fixed
// parameter order.
func (b Bounds) Vectors() (lower, upper []float64) {
	lower = make([]float64, NumParams)
	upper = make([]float64, NumParams)
	for i, iv := range b.intervals() {
		lower[i] = iv.Lower
		upper[i] = iv.Upper
	}
	return lower, upper
}

// Validate checks that every interval is ordered and free of NaN edges.
func (b Bounds) Validate() error {
	names := paramNames()
	for i, iv := range b.intervals() {
		if math.IsNaN(iv.Lower) || math.IsNaN(iv.Upper) {
			return fmt.Errorf("%w: %s has a NaN edge", ErrInvalidBounds, names[i])
		}
		if iv.Lower > iv.Upper {
			return fmt.Errorf("%w: %s lower %g above upper %g", ErrInvalidBounds, names[i], iv.Lower, iv.Upper)
		}
	}
	return nil
}

// Clamp snaps every parameter onto its interval.
func (b Bounds) Clamp(p Params) Params {
	return Params{
		N0:      b.N0.clamp(p.N0),
		RCore:   b.RCore.clamp(p.RCore),
		RScale:  b.RScale.clamp(p.RScale),
		Alpha:   b.Alpha.clamp(p.Alpha),
		Beta:    b.Beta.clamp(p.Beta),
		Epsilon: b.Epsilon.clamp(p.Epsilon),
	}
}

// Contains reports whether every parameter lies inside its interval.
func (b Bounds) Contains(p Params) bool {
	ivs := b.intervals()
	for i, v := range p.Vector() {
		if !ivs[i].contains(v) {
			return false
		}
	}
	return true
}

func paramNames() [NumParams]string {
	return [NumParams]string{"n0", "rCore", "rScale", "alpha", "beta", "epsilon"}
}

// DefaultStart returns the starting guess used when no explicit start
// is given: a gently cored profile with a mild outer steepening.
func DefaultStart() Params {
	return Params{
		N0:      3e-3,
		RCore:   0.1,
		RScale:  0.6,
		Alpha:   0.5,
		Beta:    0.4,
		Epsilon: 1.2,
	}
}

// DefaultBounds returns the default box: every parameter non-negative,
// epsilon capped at 5 to keep the outer steepening physical.
func DefaultBounds() Bounds {
	inf := math.Inf(1)
	return Bounds{
		N0:      Interval{0, inf},
		RCore:   Interval{0, inf},
		RScale:  Interval{0, inf},
		Alpha:   Interval{0, inf},
		Beta:    Interval{0, inf},
		Epsilon: Interval{0, 5},
	}
}

// MACSISBounds returns the preset tuned for MACSIS simulation haloes.
// Alpha is pinned to 1.5 up to fitting noise, and the remaining
// parameters are confined to the ranges those haloes populate.
func MACSISBounds() Bounds {
	return Bounds{
		N0:      Interval{9e-4, 9e-3},
		RCore:   Interval{0.01, 0.18},
		RScale:  Interval{0.5, 0.75},
		Alpha:   Interval{1.49999, 1.500001},
		Beta:    Interval{0.3, 0.6},
		Epsilon: Interval{2.0, 3.0},
	}
}
