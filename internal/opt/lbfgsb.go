package opt

import (
	"fmt"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// Stopping criteria used when an LBFGSB is built with zero values.
const (
	DefaultMaxIterations = 10000
	DefaultFuncTol       = 1e-15
	DefaultGradTol       = 1e-5
)

// Number of consecutive stalled iterations before the function-value
// convergence criterion fires.
const convergeWindow = 20

// LBFGSB minimizes an objective under box bounds. It runs gonum's
// L-BFGS quasi-Newton method in the unconstrained coordinates of a
// boundTransform and differentiates the transformed objective with
// central finite differences.
type LBFGSB struct {
	// MaxIterations caps major iterations. Zero means DefaultMaxIterations.
	MaxIterations int
	// FuncTol declares convergence once the objective stops improving
	// by more than this. Zero means DefaultFuncTol.
	FuncTol float64
	// GradTol declares convergence once the gradient norm in the
	// transformed coordinates drops below this. Zero means
	// DefaultGradTol.
	GradTol float64
	// RecordTrace keeps every objective evaluation in Result.Trace.
	RecordTrace bool
}

// NewLBFGSB creates a bounded quasi-Newton optimizer with the given
// iteration cap and function tolerance.
func NewLBFGSB(maxIterations int, funcTol float64) *LBFGSB {
	return &LBFGSB{MaxIterations: maxIterations, FuncTol: funcTol}
}

// Minimize implements Optimizer.
func (l *LBFGSB) Minimize(eval func([]float64) float64, start, lower, upper []float64) (*Result, error) {
	dim := len(start)
	if dim == 0 {
		return nil, fmt.Errorf("opt: empty start vector")
	}
	if len(lower) != dim || len(upper) != dim {
		return nil, fmt.Errorf("%w: %d parameters with %d lower and %d upper bounds",
			ErrBadBounds, dim, len(lower), len(upper))
	}
	tr, err := newBoundTransform(lower, upper)
	if err != nil {
		return nil, err
	}

	maxIter := l.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	funcTol := l.FuncTol
	if funcTol <= 0 {
		funcTol = DefaultFuncTol
	}
	gradTol := l.GradTol
	if gradTol <= 0 {
		gradTol = DefaultGradTol
	}

	var trace []TraceEntry
	evals := 0
	objective := func(z []float64) float64 {
		x := make([]float64, dim)
		tr.toBounded(z, x)
		c := eval(x)
		evals++
		if l.RecordTrace {
			trace = append(trace, TraceEntry{Eval: evals, Cost: c})
		}
		return c
	}

	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, z []float64) {
			fd.Gradient(grad, objective, z, &fd.Settings{Formula: fd.Central})
		},
	}

	z0 := make([]float64, dim)
	tr.toInternal(start, z0)

	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: gradTol,
		Converger: &optimize.FunctionConverge{
			Absolute:   funcTol,
			Relative:   funcTol,
			Iterations: convergeWindow,
		},
	}

	res, optErr := optimize.Minimize(problem, z0, settings, &optimize.LBFGS{})
	if res == nil {
		return nil, fmt.Errorf("opt: minimize: %w", optErr)
	}

	x := make([]float64, dim)
	tr.toBounded(res.X, x)
	clampToBounds(x, lower, upper)

	out := &Result{
		X:          x,
		F:          res.F,
		Iterations: res.Stats.MajorIterations,
		Converged:  optErr == nil && convergedStatus(res.Status),
		Status:     res.Status.String(),
		Trace:      trace,
	}
	if optErr != nil {
		out.Status = optErr.Error()
	}
	return out, nil
}

// convergedStatus reports whether a terminal status is one of gonum's
// convergence criteria, as opposed to a resource limit or failure.
func convergedStatus(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	}
	return false
}
