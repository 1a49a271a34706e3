package vikhlinin

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/clusterfit/vikhlinin/internal/opt"
	"github.com/clusterfit/vikhlinin/units"
)

// CostSample is one objective evaluation recorded during the fit.
type CostSample struct {
	Eval int     `json:"eval"`
	Cost float64 `json:"cost"`
}

// Option configures a profile fit.
type Option func(*fitConfig)

type fitConfig struct {
	start  Params
	bounds Bounds
}

// WithStart overrides the default starting guess. A start outside the
// bounds is clamped onto the box before the fit.
func WithStart(p Params) Option {
	return func(c *fitConfig) { c.start = p }
}

// WithBounds overrides the default parameter box.
func WithBounds(b Bounds) Option {
	return func(c *fitConfig) { c.bounds = b }
}

// Profile is a radial gas-density profile together with its fitted
// model. NewProfile is the only constructor; every Profile in existence
// has been through the fit.
type Profile struct {
	// Inputs.
	Radii          units.Series
	DensityProfile units.Series
	Start          Params
	Bounds         Bounds

	// Fitted carries the best-fit parameters at full float64
	// precision. N0, RCore and RScale re-attach the input units to
	// float32 roundings of the same values.
	Fitted  Params
	N0      units.Quantity
	RCore   units.Quantity
	RScale  units.Quantity
	Alpha   float64
	Beta    float64
	Epsilon float64

	// DensityProfileHSE is the model curve evaluated at the input
	// radii with the full-precision fitted parameters.
	DensityProfileHSE units.Series

	// Optimizer outcome.
	Residual    float64
	Success     bool
	Message     string
	NIterations int
	History     []CostSample
}

// NewProfile fits the density model to the given radius and density
// series and returns the fitted profile.
//
// A fit that stops without meeting a convergence criterion still
// returns a usable profile: Success turns false, Message keeps the
// optimizer's reason, and a warning is logged. Errors are reserved for
// malformed inputs.
func NewProfile(radii, density units.Series, opts ...Option) (*Profile, error) {
	cfg := fitConfig{start: DefaultStart(), bounds: DefaultBounds()}
	for _, o := range opts {
		o(&cfg)
	}

	if err := validateSeries(radii, density); err != nil {
		return nil, err
	}
	if err := cfg.bounds.Validate(); err != nil {
		return nil, err
	}

	p := &Profile{
		Radii:          radii,
		DensityProfile: density,
		Start:          cfg.start,
		Bounds:         cfg.bounds,
	}
	if err := p.fit(); err != nil {
		return nil, err
	}
	return p, nil
}

func validateSeries(radii, density units.Series) error {
	if radii.Len() != density.Len() {
		return fmt.Errorf("%w: %d radii, %d densities", ErrLengthMismatch, radii.Len(), density.Len())
	}
	if radii.Len() == 0 {
		return ErrEmptyProfile
	}
	for i, r := range radii.Values {
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 1) {
			return fmt.Errorf("%w: %g at index %d", ErrNonPositiveRadius, r, i)
		}
	}
	for i, d := range density.Values {
		if d <= 0 || math.IsNaN(d) || math.IsInf(d, 1) {
			return fmt.Errorf("%w: %g at index %d", ErrNonPositiveDensity, d, i)
		}
	}
	return nil
}

// paramsAt reads a six-entry vector in the fixed parameter order.
func paramsAt(x []float64) Params {
	return Params{
		N0:      x[0],
		RCore:   x[1],
		RScale:  x[2],
		Alpha:   x[3],
		Beta:    x[4],
		Epsilon: x[5],
	}
}

// ssrLog is the fitting objective: the sum of squared residuals between
// the model's log10 density and the observed log10 density.
func ssrLog(x, radii, logDensity []float64) float64 {
	p := paramsAt(x)
	var sum float64
	for i, r := range radii {
		e := math.Log10(densityAt(r, p)) - logDensity[i]
		sum += e * e
	}
	return sum
}

func (p *Profile) fit() error {
	n := p.Radii.Len()
	if n < NumParams {
		slog.Warn("Fewer data points than free parameters; fit is underdetermined",
			"points", n, "parameters", NumParams)
	}

	logDensity := make([]float64, n)
	for i, d := range p.DensityProfile.Values {
		logDensity[i] = math.Log10(d)
	}

	start := p.Bounds.Clamp(p.Start).Vector()
	lower, upper := p.Bounds.Vectors()
	radii := p.Radii.Values

	optimizer := &opt.LBFGSB{RecordTrace: true}
	res, err := optimizer.Minimize(func(x []float64) float64 {
		return ssrLog(x, radii, logDensity)
	}, start, lower, upper)
	if err != nil {
		return fmt.Errorf("vikhlinin: density fit: %w", err)
	}

	if !res.Converged {
		slog.Warn("Fit optimization did not succeed. Try a different method or different options.",
			"status", res.Status, "iterations", res.Iterations)
	}

	fitted := paramsAt(res.X)
	p.Fitted = fitted
	p.N0 = units.Quantity{Value: float64(float32(fitted.N0)), Unit: p.DensityProfile.Unit}
	p.RCore = units.Quantity{Value: float64(float32(fitted.RCore)), Unit: p.Radii.Unit}
	p.RScale = units.Quantity{Value: float64(float32(fitted.RScale)), Unit: p.Radii.Unit}
	p.Alpha = fitted.Alpha
	p.Beta = fitted.Beta
	p.Epsilon = fitted.Epsilon
	p.DensityProfileHSE = units.Series{Values: Density(radii, fitted), Unit: p.DensityProfile.Unit}
	p.Residual = res.F
	p.Success = res.Converged
	p.Message = res.Status
	p.NIterations = res.Iterations
	p.History = historyFromTrace(res.Trace)
	return nil
}

func historyFromTrace(trace []opt.TraceEntry) []CostSample {
	if len(trace) == 0 {
		return nil
	}
	out := make([]CostSample, len(trace))
	for i, e := range trace {
		out[i] = CostSample{Eval: e.Eval, Cost: e.Cost}
	}
	return out
}
