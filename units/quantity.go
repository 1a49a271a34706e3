package units

import (
	"fmt"
	"strconv"
)

// Quantity is a single value with a unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

// Q builds a Quantity from a value and a registry symbol. It panics on
// unknown symbols, mirroring MustParse.
func Q(value float64, symbol string) Quantity {
	return Quantity{Value: value, Unit: MustParse(symbol)}
}

// Convert re-expresses the quantity in the target unit.
func (q Quantity) Convert(to Unit) (Quantity, error) {
	f, err := q.Unit.ConversionTo(to)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value * f, Unit: to}, nil
}

// Mul multiplies two quantities of the same base, combining exponents.
// Dimensionless operands pass through unchanged.
func (q Quantity) Mul(o Quantity) (Quantity, error) {
	u, err := combine(q.Unit, o.Unit, 1)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value * o.Value, Unit: u}, nil
}

// Div divides two quantities of the same base, combining exponents.
func (q Quantity) Div(o Quantity) (Quantity, error) {
	u, err := combine(q.Unit, o.Unit, -1)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value / o.Value, Unit: u}, nil
}

// combine merges two units for multiplication (sign=1) or division
// (sign=-1). Mixed bases (kpc with cm) are rejected rather than silently
// rescaled; convert one operand first.
func combine(a, b Unit, sign int) (Unit, error) {
	switch {
	case b.IsDimensionless():
		return a, nil
	case a.IsDimensionless():
		if sign < 0 {
			return b.Pow(-1), nil
		}
		return b, nil
	case a.base != b.base:
		return Unit{}, fmt.Errorf("%w: %s vs %s", ErrIncompatibleUnits, a.describe(), b.describe())
	}
	p := a.power + sign*b.power
	if p == 0 {
		return Dimensionless, nil
	}
	return Unit{base: a.base, power: p, scale: a.scale}, nil
}

// String renders the quantity as "<value> <unit>", e.g. "0.003 cm**-3".
// Dimensionless quantities render the bare value.
func (q Quantity) String() string {
	v := strconv.FormatFloat(q.Value, 'g', -1, 64)
	if q.Unit.IsDimensionless() {
		return v
	}
	return v + " " + q.Unit.String()
}

// Format renders the quantity with a fixed number of decimals, the way
// fit reports print parameters.
func (q Quantity) Format(prec int) string {
	v := strconv.FormatFloat(q.Value, 'f', prec, 64)
	if q.Unit.IsDimensionless() {
		return v
	}
	return v + " " + q.Unit.String()
}

// Series is a slice of values sharing one unit.
type Series struct {
	Values []float64
	Unit   Unit
}

// NewSeries copies values into a fresh Series so later mutation of the
// caller's slice cannot alias the series.
func NewSeries(values []float64, unit Unit) Series {
	v := make([]float64, len(values))
	copy(v, values)
	return Series{Values: v, Unit: unit}
}

// SeriesOf builds a Series from a registry symbol. It panics on unknown
// symbols, mirroring MustParse.
func SeriesOf(values []float64, symbol string) Series {
	return NewSeries(values, MustParse(symbol))
}

// Len returns the number of values in the series.
func (s Series) Len() int {
	return len(s.Values)
}

// Convert re-expresses every value of the series in the target unit.
func (s Series) Convert(to Unit) (Series, error) {
	f, err := s.Unit.ConversionTo(to)
	if err != nil {
		return Series{}, err
	}
	out := make([]float64, len(s.Values))
	for i, v := range s.Values {
		out[i] = v * f
	}
	return Series{Values: out, Unit: to}, nil
}
