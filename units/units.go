// Package units provides lightweight symbolic units for astrophysical
// profile data. A Unit is a named power of a base length (kpc, cm**-3, ...),
// a Quantity is a value tagged with a Unit, and a Series is a slice of
// values sharing one Unit.
//
// The package deliberately covers only the unit algebra cluster profiles
// need: powers of length plus the dimensionless unit. Symbols survive
// arithmetic and formatting unchanged, so a density read in as cm**-3
// reports as cm**-3 rather than as a normalised SI equivalent.
package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnknownUnit reports a symbol that is not in the registry.
	ErrUnknownUnit = errors.New("units: unknown unit")

	// ErrIncompatibleUnits reports arithmetic or conversion between
	// units of different dimension.
	ErrIncompatibleUnits = errors.New("units: incompatible units")
)

// Unit is a power of a base length unit, e.g. kpc (power 1) or cm**-3
// (power -3). The zero value is the dimensionless unit.
type Unit struct {
	base  string  // base symbol, "" for dimensionless
	power int     // exponent applied to the base
	scale float64 // metres per one base unit
}

// metres per unit for the supported base length symbols
var lengthScales = map[string]float64{
	"m":   1,
	"cm":  1e-2,
	"km":  1e3,
	"pc":  3.0856775814913673e16,
	"kpc": 3.0856775814913673e19,
	"Mpc": 3.0856775814913673e22,
}

// Dimensionless is the unit of pure numbers.
var Dimensionless = Unit{}

// MustParse is Parse for registry symbols known at compile time. It
// panics on error and is intended for package-level variables and tests.
func MustParse(symbol string) Unit {
	u, err := Parse(symbol)
	if err != nil {
		panic(err)
	}
	return u
}

// Parse resolves a unit symbol such as "kpc", "cm**-3" or "" (the
// dimensionless unit). Exponents use the double-star notation.
func Parse(symbol string) (Unit, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || symbol == "dimensionless" {
		return Dimensionless, nil
	}

	base := symbol
	power := 1
	if i := strings.Index(symbol, "**"); i >= 0 {
		base = symbol[:i]
		p, err := strconv.Atoi(symbol[i+2:])
		if err != nil {
			return Unit{}, fmt.Errorf("%w: bad exponent in %q", ErrUnknownUnit, symbol)
		}
		power = p
	}

	scale, ok := lengthScales[base]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, symbol)
	}
	if power == 0 {
		return Dimensionless, nil
	}
	return Unit{base: base, power: power, scale: scale}, nil
}

// String renders the unit symbol, e.g. "kpc" or "cm**-3". The
// dimensionless unit renders as the empty string.
func (u Unit) String() string {
	if u.base == "" || u.power == 0 {
		return ""
	}
	if u.power == 1 {
		return u.base
	}
	return u.base + "**" + strconv.Itoa(u.power)
}

// Dimension returns the length exponent of the unit: 1 for kpc, -3 for
// cm**-3, 0 for dimensionless.
func (u Unit) Dimension() int {
	if u.base == "" {
		return 0
	}
	return u.power
}

// IsDimensionless reports whether the unit carries no dimension.
func (u Unit) IsDimensionless() bool {
	return u.Dimension() == 0
}

// siFactor returns metres**Dimension per one of this unit.
func (u Unit) siFactor() float64 {
	if u.base == "" || u.power == 0 {
		return 1
	}
	return math.Pow(u.scale, float64(u.power))
}

// Pow raises the unit to an integer power. kpc.Pow(-3) is kpc**-3.
func (u Unit) Pow(n int) Unit {
	if u.base == "" || u.power*n == 0 {
		return Dimensionless
	}
	return Unit{base: u.base, power: u.power * n, scale: u.scale}
}

// ConversionTo returns the factor that converts values in u to values
// in to. The units must share a dimension.
func (u Unit) ConversionTo(to Unit) (float64, error) {
	if u.Dimension() != to.Dimension() {
		return 0, fmt.Errorf("%w: %s vs %s", ErrIncompatibleUnits, u.describe(), to.describe())
	}
	return u.siFactor() / to.siFactor(), nil
}

// describe is String with a readable name for the dimensionless unit.
func (u Unit) describe() string {
	if s := u.String(); s != "" {
		return s
	}
	return "dimensionless"
}
