package gofourpl

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Model is a fitted four-parameter logistic curve. It is immutable once Fit
// returns and safe for concurrent use.
type Model struct {
	x       []float64
	y       []float64
	initial Params
	params  Params
	result  Result
}

// Fit estimates a starting point from the observations and minimizes the
// residual sum of squares from there. The observations are copied.
//
// An optimizer that runs out of iterations is not an error: the best point
// found is kept and Result().Converged reports false.
func Fit(x, y []float64, opts ...Option) (*Model, error) {
	if err := validateObservations(x, y); err != nil {
		return nil, err
	}

	xs := make([]float64, len(x))
	ys := make([]float64, len(y))
	copy(xs, x)
	copy(ys, y)

	s := NewSolver(xs, ys)
	for _, opt := range opts {
		opt(s)
	}

	res, err := s.Solve()
	if err != nil {
		return nil, fmt.Errorf("gofourpl: fit: %w", err)
	}

	return &Model{
		x:       xs,
		y:       ys,
		initial: s.InitValues,
		params:  paramsFrom(res.Params),
		result:  res,
	}, nil
}

func (m *Model) Params() Params { return m.params }

// InitialParams is the starting point the optimizer was seeded with.
func (m *Model) InitialParams() Params { return m.initial }

// Result holds convergence diagnostics of the fit.
func (m *Model) Result() Result {
	res := m.result
	res.Params = m.params.Slice()
	return res
}

func (m *Model) X() []float64 { return append([]float64(nil), m.x...) }

func (m *Model) Y() []float64 { return append([]float64(nil), m.y...) }

// Predict evaluates the fitted curve at x. The result may be NaN for inputs
// outside the model's real domain.
func (m *Model) Predict(x float64) float64 {
	return Formula(x, m.params)
}

func (m *Model) PredictAll(xs []float64) []float64 {
	return FormulaAll(xs, m.params)
}

// InversePredict recovers the input that produces response y. Responses at
// or beyond the fitted asymptotes yield NaN or ±Inf rather than an error;
// use InversePredictChecked to get a *DomainError instead.
func (m *Model) InversePredict(y float64) float64 {
	return InverseFormula(y, m.params)
}

func (m *Model) InversePredictAll(ys []float64) []float64 {
	res := make([]float64, len(ys))
	for i, y := range ys {
		res[i] = InverseFormula(y, m.params)
	}
	return res
}

// InversePredictChecked is the strict form of InversePredict: it reports a
// *DomainError whenever the inversion is undefined or non-finite.
func (m *Model) InversePredictChecked(y float64) (float64, error) {
	p := m.params
	switch {
	case p.Hill() == 0:
		return math.NaN(), &DomainError{Op: "InversePredict", Y: y, Reason: "Hill coefficient is zero"}
	case y == p.Max():
		return math.Inf(1), &DomainError{Op: "InversePredict", Y: y, Reason: "response equals the upper asymptote"}
	}
	x := InverseFormula(y, p)
	if !isFinite(x) {
		return x, &DomainError{
			Op:     "InversePredict",
			Y:      y,
			Reason: fmt.Sprintf("response outside the fitted range (%v, %v)", p.Min(), p.Max()),
		}
	}
	return x, nil
}

// RSquared is 1 - var(residuals)/var(y) over the fitted observations.
func (m *Model) RSquared() float64 {
	residuals := make([]float64, len(m.y))
	Residuals(residuals, m.x, m.y, m.params)
	return 1 - stat.Variance(residuals, nil)/stat.Variance(m.y, nil)
}

// RSquaredString formats RSquared rounded to 5 decimal places, either as a
// sentence or as the bare number.
func (m *Model) RSquaredString(verbose bool) string {
	r2 := formatRounded(m.RSquared(), 5)
	if verbose {
		return "The R-squared value of the regression is " + r2 + "."
	}
	return r2
}

var parameterLabels = [4]string{"min: ", "max: ", "Hill coeff: ", "IC50: "}

// Parameters returns the fitted parameters as labeled strings rounded to two
// decimal places, in the order min, max, Hill coeff, IC50.
func (m *Model) Parameters() []string {
	res := make([]string, len(parameterLabels))
	for i, label := range parameterLabels {
		res[i] = label + formatRounded(m.params[i], 2)
	}
	return res
}

// Curve samples the fitted curve at n evenly spaced points across the
// observed input range, for plotting alongside the raw data.
func (m *Model) Curve(n int) (xs, ys []float64) {
	if n < 2 {
		n = 2
	}
	xs = floats.Span(make([]float64, n), floats.Min(m.x), floats.Max(m.x))
	return xs, FormulaAll(xs, m.params)
}
