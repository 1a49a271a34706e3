package vikhlinin

import "errors"

var (
	// ErrLengthMismatch reports radius and density series of different
	// lengths.
	ErrLengthMismatch = errors.New("vikhlinin: radius and density lengths differ")

	// ErrEmptyProfile reports an input profile with no data points.
	ErrEmptyProfile = errors.New("vikhlinin: empty profile")

	// ErrNonPositiveRadius reports a radius that is zero, negative or
	// not finite. The model is defined on r > 0 only.
	ErrNonPositiveRadius = errors.New("vikhlinin: non-positive radius")

	// ErrNonPositiveDensity reports a density that is zero, negative or
	// not finite. The objective takes log10 of every density.
	ErrNonPositiveDensity = errors.New("vikhlinin: non-positive density")

	// ErrInvalidBounds reports a parameter interval whose lower edge
	// lies above its upper edge.
	ErrInvalidBounds = errors.New("vikhlinin: invalid bounds")

	// ErrBadVector reports a parameter vector of the wrong length.
	ErrBadVector = errors.New("vikhlinin: parameter vector must have 6 entries")
)
