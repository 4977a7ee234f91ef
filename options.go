package gofourpl

import (
	"log"
)

// Option configures Fit.
type Option func(*Solver)

// WithMethod selects the optimization strategy. The default is MethodPowell.
func WithMethod(m Method) Option {
	return func(s *Solver) {
		s.Method = m
	}
}

// WithMinimizer plugs in any Minimizer, overriding WithMethod.
func WithMinimizer(m Minimizer) Option {
	return func(s *Solver) {
		s.Minimizer = m
	}
}

// WithTolerance sets the relative objective tolerance used as the stopping criterion.
func WithTolerance(tol float64) Option {
	return func(s *Solver) {
		s.Settings.Tolerance = tol
	}
}

func WithMaxIterations(n int) Option {
	return func(s *Solver) {
		s.Settings.MaxIterations = n
	}
}

// WithLogger enables progress logging. Fitting is silent by default.
func WithLogger(l *log.Logger) Option {
	return func(s *Solver) {
		s.Settings.Logger = l
	}
}

// WithInitialParams replaces the heuristic starting point.
func WithInitialParams(p Params) Option {
	return func(s *Solver) {
		s.InitValues = p
	}
}

// WithWorkers limits how many methods MethodAll runs concurrently.
func WithWorkers(n int) Option {
	return func(s *Solver) {
		s.Workers = n
	}
}
