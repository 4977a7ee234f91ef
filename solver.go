package gofourpl

import (
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Method names an optimization strategy.
type Method string

const (
	MethodPowell     Method = "powell"
	MethodNelderMead Method = "nelder-mead"
	MethodLBFGS      Method = "lbfgs"
	MethodBFGS       Method = "bfgs"
	MethodNewton     Method = "newton"
	MethodLM         Method = "levenberg-marquardt"
	// MethodAll runs every other method and keeps the lowest RSS.
	MethodAll Method = "all"
)

// Methods lists the individual strategies tried by MethodAll, in order.
var Methods = []Method{MethodPowell, MethodNelderMead, MethodLM, MethodBFGS, MethodLBFGS, MethodNewton}

// ParseMethod accepts a method name or one of its short aliases.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "powell":
		return MethodPowell, nil
	case "nelder-mead", "nm":
		return MethodNelderMead, nil
	case "lbfgs":
		return MethodLBFGS, nil
	case "bfgs":
		return MethodBFGS, nil
	case "newton":
		return MethodNewton, nil
	case "levenberg-marquardt", "lm":
		return MethodLM, nil
	case "all":
		return MethodAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Status values reported in Result.Status.
const (
	OK             = "OK"
	IterationLimit = "ITERATION_LIMIT"
	ERROR          = "ERROR"
)

// Result describes the outcome of a minimization. A run that hit its
// iteration budget still carries the best point found, with Converged false.
type Result struct {
	Method    Method
	Params    []float64
	Min       float64
	MinUnit   string
	Status    string
	Converged bool
	Iters     int
	FuncEval  int
	Runtime   float64 // seconds
}

// Minimizer searches for the point minimizing f, starting at x0.
type Minimizer interface {
	Minimize(f func([]float64) float64, x0 []float64) (Result, error)
}

// ResidualMinimizer is implemented by minimizers that work on the residual
// vector rather than on its sum of squares. The solver prefers this form when
// it is available.
type ResidualMinimizer interface {
	MinimizeResiduals(fn func(dst, x []float64), size int, x0 []float64) (Result, error)
}

const (
	DefaultTolerance        = 1e-10
	DefaultIterationsPerDim = 1000
)

// Settings are shared by every minimizer. Zero values select defaults.
type Settings struct {
	Tolerance     float64
	MaxIterations int
	Logger        *log.Logger
}

func (s Settings) tolerance() float64 {
	if s.Tolerance <= 0 {
		return DefaultTolerance
	}
	return s.Tolerance
}

func (s Settings) maxIterations(dim int) int {
	if s.MaxIterations <= 0 {
		return DefaultIterationsPerDim * dim
	}
	return s.MaxIterations
}

func (s Settings) logger() *log.Logger {
	if s.Logger == nil {
		return discard
	}
	return s.Logger
}

var discard = log.New(io.Discard, "", 0)

// NewMinimizer returns the minimizer implementing m. MethodAll is not a single
// minimizer and is handled by Solver.
func NewMinimizer(m Method, settings Settings) (Minimizer, error) {
	switch m {
	case MethodPowell:
		return &Powell{Settings: settings}, nil
	case MethodNelderMead, MethodLBFGS, MethodBFGS, MethodNewton:
		return &GonumMinimizer{Method: m, Settings: settings}, nil
	case MethodLM:
		return &LevenbergMarquardt{Settings: settings}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
}

// GonumMinimizer adapts the gonum optimize package. Gradient based methods
// get finite-difference gradients (and Hessians for Newton).
type GonumMinimizer struct {
	Method   Method
	Settings Settings
}

func (g *GonumMinimizer) Minimize(f func([]float64) float64, x0 []float64) (Result, error) {
	logger := g.Settings.logger()
	logger.Printf("%s: starting from %v", g.Method, x0)

	grad := func(grad, x []float64) {
		fd.Gradient(grad, f, x, &fd.Settings{
			Formula:    fd.Central,
			Concurrent: false,
		})
	}
	hess := func(h *mat.SymDense, x []float64) {
		fd.Hessian(h, f, x, nil)
	}

	problem := optimize.Problem{Func: f}
	var method optimize.Method
	switch g.Method {
	case MethodNelderMead:
		method = &optimize.NelderMead{}
	case MethodLBFGS:
		problem.Grad = grad
		method = &optimize.LBFGS{}
	case MethodBFGS:
		problem.Grad = grad
		method = &optimize.BFGS{}
	case MethodNewton:
		problem.Grad = grad
		problem.Hess = hess
		method = &optimize.Newton{}
	default:
		return Result{Status: ERROR, Min: math.Inf(1)}, fmt.Errorf("%w: %q", ErrUnknownMethod, g.Method)
	}

	settings := &optimize.Settings{
		MajorIterations: g.Settings.maxIterations(len(x0)),
		Converger: &optimize.FunctionConverge{
			Absolute:   powellTiny,
			Relative:   g.Settings.tolerance(),
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, method)
	if res == nil {
		logger.Printf("%s optimization failed: %v", g.Method, err)
		return Result{Method: g.Method, Status: ERROR, Min: math.Inf(1)}, fmt.Errorf("%w: %s: %v", ErrNoSolution, g.Method, err)
	}

	out := Result{
		Method:    g.Method,
		Params:    res.X,
		Min:       res.F,
		MinUnit:   "RSS",
		Status:    OK,
		Converged: err == nil && res.Status != optimize.IterationLimit,
		Iters:     res.MajorIterations,
		FuncEval:  res.FuncEvaluations,
		Runtime:   res.Runtime.Seconds(),
	}
	if err != nil {
		// Best effort: the location reached so far is still returned.
		logger.Printf("%s optimization stopped early: %v", g.Method, err)
		out.Status = ERROR
	} else if !out.Converged {
		out.Status = IterationLimit
	}
	return out, nil
}

// LevenbergMarquardt fits the residual vector directly.
type LevenbergMarquardt struct {
	Settings Settings
}

// Minimize treats sqrt(f) as a single residual; prefer MinimizeResiduals.
func (l *LevenbergMarquardt) Minimize(f func([]float64) float64, x0 []float64) (Result, error) {
	return l.MinimizeResiduals(func(dst, x []float64) {
		dst[0] = math.Sqrt(f(x))
		if !isFinite(dst[0]) {
			dst[0] = residualPenalty
		}
	}, 1, x0)
}

func (l *LevenbergMarquardt) MinimizeResiduals(fn func(dst, x []float64), size int, x0 []float64) (out Result, err error) {
	logger := l.Settings.logger()
	logger.Printf("%s: starting from %v", MethodLM, x0)

	init := make([]float64, len(x0))
	copy(init, x0)

	jac := lm.NumJac{Func: fn}
	problem := lm.LMProblem{
		Dim:        len(x0),
		Size:       size,
		Func:       fn,
		Jac:        jac.Jac,
		InitParams: init,
		Tau:        1e-3,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	// The solver panics on singular normal equations.
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("%s optimization panicked: %v", MethodLM, r)
			out = Result{Method: MethodLM, Status: ERROR, Min: math.Inf(1)}
			err = fmt.Errorf("%w: %s: %v", ErrNoSolution, MethodLM, r)
		}
	}()

	res, lmErr := lm.LM(problem, &lm.Settings{
		Iterations:   l.Settings.maxIterations(len(x0)),
		ObjectiveTol: 1e-16,
	})
	if lmErr != nil {
		logger.Printf("%s optimization failed: %v", MethodLM, lmErr)
		return Result{Method: MethodLM, Status: ERROR, Min: math.Inf(1)}, fmt.Errorf("%w: %s: %v", ErrNoSolution, MethodLM, lmErr)
	}

	dst := make([]float64, size)
	fn(dst, res.X)
	sum := 0.0
	for _, r := range dst {
		sum += r * r
	}

	out = Result{
		Method:    MethodLM,
		Params:    res.X,
		Min:       sum,
		MinUnit:   "RSS",
		Status:    OK,
		Converged: res.Status != optimize.IterationLimit,
	}
	if !out.Converged {
		out.Status = IterationLimit
	}
	return out, nil
}

// Solver fits the 4PL model to an observation set.
type Solver struct {
	X          []float64
	Y          []float64
	InitValues Params
	Method     Method
	// Minimizer, when set, replaces the minimizer selected by Method.
	Minimizer Minimizer
	Settings  Settings
	// Workers bounds how many methods MethodAll runs at once; zero runs
	// them all in parallel.
	Workers int
}

func NewSolver(x, y []float64) *Solver {
	return &Solver{X: x, Y: y, InitValues: InitialParams(x, y), Method: MethodPowell}
}

func (s *Solver) Solve() (Result, error) {
	if s.Minimizer != nil {
		return s.run(s.Minimizer)
	}
	if s.Method == MethodAll {
		return s.solveAll()
	}
	m, err := NewMinimizer(s.Method, s.Settings)
	if err != nil {
		return Result{Status: ERROR, Min: math.Inf(1)}, err
	}
	return s.run(m)
}

func (s *Solver) run(m Minimizer) (Result, error) {
	logger := s.Settings.logger()
	x0 := s.InitValues.Slice()
	logger.Printf("Using initial values: %v", x0)

	var (
		res Result
		err error
	)
	if rm, ok := m.(ResidualMinimizer); ok {
		res, err = rm.MinimizeResiduals(newResiduals(s.X, s.Y), len(s.X), x0)
	} else {
		res, err = m.Minimize(NewObjective(s.X, s.Y), x0)
	}
	if err != nil {
		return res, err
	}
	if len(res.Params) != len(x0) {
		return res, fmt.Errorf("%w: got %d parameters, want %d", ErrNoSolution, len(res.Params), len(x0))
	}

	// Report the same objective whichever method ran.
	res.Min = NewObjective(s.X, s.Y)(res.Params)
	res.MinUnit = "RSS"

	if res.Converged {
		logger.Printf("%s completed - RSS: %.14e, Params=%v", res.Method, res.Min, res.Params)
	} else {
		logger.Printf("%s did not converge (status %s, %d iterations), keeping best point - RSS: %.14e", res.Method, res.Status, res.Iters, res.Min)
	}
	return res, nil
}

func (s *Solver) solveAll() (Result, error) {
	logger := s.Settings.logger()
	logger.Printf("Running all optimization methods for comparison...")

	best := Result{Status: ERROR, Min: math.Inf(1)}
	var lastErr error
	for _, r := range s.runMethods(Methods, s.Workers) {
		if r.err != nil {
			logger.Printf("Method %s failed: %v", r.method, r.err)
			lastErr = r.err
			continue
		}
		// Ties go to the earlier method so the outcome does not depend on scheduling.
		if r.result.Min < best.Min {
			best = r.result
			logger.Printf("New best method: %s with RSS: %.12e", r.method, r.result.Min)
		}
	}

	if best.Params == nil {
		if lastErr == nil {
			lastErr = ErrNoSolution
		}
		return best, fmt.Errorf("all optimization methods failed: %w", lastErr)
	}
	return best, nil
}
