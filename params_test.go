package vikhlinin

import (
	"errors"
	"math"
	"testing"
)

func TestParamsVectorOrder(t *testing.T) {
	p := Params{N0: 1, RCore: 2, RScale: 3, Alpha: 4, Beta: 5, Epsilon: 6}
	v := p.Vector()

	want := []float64{1, 2, 3, 4, 5, 6}
	if len(v) != NumParams {
		t.Fatalf("Vector length = %d, want %d", len(v), NumParams)
	}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("Vector[%d] = %v, want %v", i, v[i], want[i])
		}
	}
}

func TestParamsFromVectorRoundTrip(t *testing.T) {
	p := Params{N0: 3e-3, RCore: 0.1, RScale: 0.6, Alpha: 0.5, Beta: 0.4, Epsilon: 1.2}

	back, err := ParamsFromVector(p.Vector())
	if err != nil {
		t.Fatalf("ParamsFromVector failed: %v", err)
	}
	if back != p {
		t.Errorf("round trip changed params: %+v vs %+v", back, p)
	}

	_, err = ParamsFromVector([]float64{1, 2, 3})
	if !errors.Is(err, ErrBadVector) {
		t.Errorf("short vector error = %v, want ErrBadVector", err)
	}
}

func TestBoundsVectorsRoundTrip(t *testing.T) {
	b := MACSISBounds()
	lower, upper := b.Vectors()

	back, err := BoundsFromVectors(lower, upper)
	if err != nil {
		t.Fatalf("BoundsFromVectors failed: %v", err)
	}
	if back != b {
		t.Errorf("round trip changed bounds: %+v vs %+v", back, b)
	}

	if _, err := BoundsFromVectors(lower[:3], upper); !errors.Is(err, ErrBadVector) {
		t.Errorf("short vector error = %v, want ErrBadVector", err)
	}

	upper[0] = lower[0] - 1
	if _, err := BoundsFromVectors(lower, upper); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("inverted interval error = %v, want ErrInvalidBounds", err)
	}
}

func TestDefaultStartValues(t *testing.T) {
	p := DefaultStart()
	want := Params{N0: 3e-3, RCore: 0.1, RScale: 0.6, Alpha: 0.5, Beta: 0.4, Epsilon: 1.2}
	if p != want {
		t.Errorf("DefaultStart() = %+v, want %+v", p, want)
	}
}

func TestDefaultBoundsShape(t *testing.T) {
	b := DefaultBounds()

	for name, iv := range map[string]Interval{
		"n0":     b.N0,
		"rCore":  b.RCore,
		"rScale": b.RScale,
		"alpha":  b.Alpha,
		"beta":   b.Beta,
	} {
		if iv.Lower != 0 {
			t.Errorf("%s lower = %v, want 0", name, iv.Lower)
		}
		if !math.IsInf(iv.Upper, 1) {
			t.Errorf("%s upper = %v, want +Inf", name, iv.Upper)
		}
	}

	if b.Epsilon.Lower != 0 || b.Epsilon.Upper != 5 {
		t.Errorf("epsilon interval = %+v, want [0, 5]", b.Epsilon)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("default bounds should validate, got %v", err)
	}
}

func TestMACSISBoundsValues(t *testing.T) {
	b := MACSISBounds()
	want := Bounds{
		N0:      Interval{9e-4, 9e-3},
		RCore:   Interval{0.01, 0.18},
		RScale:  Interval{0.5, 0.75},
		Alpha:   Interval{1.49999, 1.500001},
		Beta:    Interval{0.3, 0.6},
		Epsilon: Interval{2.0, 3.0},
	}
	if b != want {
		t.Errorf("MACSISBounds() = %+v, want %+v", b, want)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("MACSIS bounds should validate, got %v", err)
	}

	// the default start lands inside MACSIS only after clamping
	if b.Contains(DefaultStart()) {
		t.Error("DefaultStart should not sit inside the MACSIS box")
	}
	if !b.Contains(b.Clamp(DefaultStart())) {
		t.Error("clamped start should sit inside the MACSIS box")
	}
}

func TestBoundsClamp(t *testing.T) {
	b := MACSISBounds()
	p := Params{N0: 1, RCore: 0, RScale: 0.6, Alpha: 0.5, Beta: 0.45, Epsilon: 10}

	c := b.Clamp(p)
	if c.N0 != 9e-3 {
		t.Errorf("n0 clamped to %v, want 9e-3", c.N0)
	}
	if c.RCore != 0.01 {
		t.Errorf("rCore clamped to %v, want 0.01", c.RCore)
	}
	if c.RScale != 0.6 {
		t.Errorf("rScale changed to %v, want 0.6 untouched", c.RScale)
	}
	if c.Alpha != 1.49999 {
		t.Errorf("alpha clamped to %v, want 1.49999", c.Alpha)
	}
	if c.Epsilon != 3 {
		t.Errorf("epsilon clamped to %v, want 3", c.Epsilon)
	}
}

func TestBoundsValidateRejectsNaN(t *testing.T) {
	b := DefaultBounds()
	b.Beta = Interval{math.NaN(), 1}
	if err := b.Validate(); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("NaN edge error = %v, want ErrInvalidBounds", err)
	}
}
