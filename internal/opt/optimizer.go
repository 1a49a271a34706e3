package opt

import "errors"

// ErrBadBounds reports bound slices that are malformed or inverted.
var ErrBadBounds = errors.New("opt: invalid bounds")

// Optimizer defines a bounded minimization algorithm.
type Optimizer interface {
	// Minimize searches for the minimum of eval inside the box
	// [lower[i], upper[i]]. Infinite bound entries leave that side
	// open. start, lower and upper must share a length.
	Minimize(eval func([]float64) float64, start, lower, upper []float64) (*Result, error)
}

// Result reports the outcome of one minimization run.
type Result struct {
	// X is the best parameter vector found, clamped into the bounds.
	X []float64
	// F is the objective value at X.
	F float64
	// Iterations counts major optimizer iterations, not objective
	// evaluations.
	Iterations int
	// Converged is false when the run stopped on an iteration or
	// evaluation limit instead of a convergence criterion.
	Converged bool
	// Status is the optimizer's own description of why it stopped.
	Status string
	// Trace holds the objective evaluation history when the optimizer
	// was configured to record one.
	Trace []TraceEntry
}

// TraceEntry is one recorded objective evaluation.
type TraceEntry struct {
	Eval int     `json:"eval"`
	Cost float64 `json:"cost"`
}
