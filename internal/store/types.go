package store

import (
	"fmt"
	"math"
	"time"

	"github.com/clusterfit/vikhlinin"
)

// FitResult is the persisted outcome of one profile fit.
// All fields are serialized to JSON.
type FitResult struct {
	// ID is the unique identifier for this fit.
	ID string `json:"id"`

	// Fingerprint identifies the input payload (radii, densities and
	// their units); resubmissions of the same profile share it.
	Fingerprint string `json:"fingerprint"`

	// The input profile.
	Radii       []float64 `json:"radii"`
	RadiusUnit  string    `json:"radiusUnit"`
	Density     []float64 `json:"density"`
	DensityUnit string    `json:"densityUnit"`

	// Params holds the reported best-fit parameters. The three
	// dimensioned entries carry the same float32-rounded values the
	// fit report prints.
	Params FitParams `json:"params"`

	// DensityHSE is the fitted model curve at the input radii.
	DensityHSE []float64 `json:"densityHSE"`

	// Optimizer outcome.
	Residual   float64 `json:"residual"`
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Iterations int     `json:"iterations"`

	// CreatedAt records when the fit completed.
	CreatedAt time.Time `json:"createdAt"`
}

// FitParams mirrors the six named model parameters.
type FitParams struct {
	N0      float64 `json:"n0"`
	RCore   float64 `json:"rCore"`
	RScale  float64 `json:"rScale"`
	Alpha   float64 `json:"alpha"`
	Beta    float64 `json:"beta"`
	Epsilon float64 `json:"epsilon"`
}

// ResultInfo contains metadata about a stored result without the full
// profile arrays. Used for listing results efficiently.
type ResultInfo struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Points      int       `json:"points"`
	Success     bool      `json:"success"`
	Residual    float64   `json:"residual"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewResult snapshots a fitted profile into a persistable record. The
// recorded parameters are the unit-attached ones the profile reports,
// so a stored result reads back exactly like the fit report.
func NewResult(id string, p *vikhlinin.Profile) *FitResult {
	radii := append([]float64(nil), p.Radii.Values...)
	density := append([]float64(nil), p.DensityProfile.Values...)
	hse := append([]float64(nil), p.DensityProfileHSE.Values...)

	radiusUnit := p.Radii.Unit.String()
	densityUnit := p.DensityProfile.Unit.String()

	return &FitResult{
		ID:          id,
		Fingerprint: Fingerprint(radii, density, radiusUnit, densityUnit),
		Radii:       radii,
		RadiusUnit:  radiusUnit,
		Density:     density,
		DensityUnit: densityUnit,
		Params: FitParams{
			N0:      p.N0.Value,
			RCore:   p.RCore.Value,
			RScale:  p.RScale.Value,
			Alpha:   p.Alpha,
			Beta:    p.Beta,
			Epsilon: p.Epsilon,
		},
		DensityHSE: hse,
		Residual:   p.Residual,
		Success:    p.Success,
		Message:    p.Message,
		Iterations: p.NIterations,
		CreatedAt:  time.Now().UTC(),
	}
}

// ToInfo converts a full FitResult to ResultInfo (metadata only).
func (r *FitResult) ToInfo() ResultInfo {
	return ResultInfo{
		ID:          r.ID,
		Fingerprint: r.Fingerprint,
		Points:      len(r.Radii),
		Success:     r.Success,
		Residual:    r.Residual,
		CreatedAt:   r.CreatedAt,
	}
}

// Validate checks that the result is complete enough to persist.
func (r *FitResult) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if len(r.Radii) == 0 {
		return &ValidationError{Field: "Radii", Reason: "cannot be empty"}
	}
	if len(r.Density) != len(r.Radii) {
		return &ValidationError{
			Field:  "Density",
			Reason: fmt.Sprintf("length %d does not match %d radii", len(r.Density), len(r.Radii)),
		}
	}
	if len(r.DensityHSE) != 0 && len(r.DensityHSE) != len(r.Radii) {
		return &ValidationError{
			Field:  "DensityHSE",
			Reason: fmt.Sprintf("length %d does not match %d radii", len(r.DensityHSE), len(r.Radii)),
		}
	}
	if math.IsNaN(r.Residual) || r.Residual < 0 {
		return &ValidationError{Field: "Residual", Reason: "must be non-negative"}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.CreatedAt.IsZero() {
		return &ValidationError{Field: "CreatedAt", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents an invalid fit result field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
