package gofourpl

import (
	"errors"
	"fmt"
)

// MinObservations is the number of free parameters of the model, and thus the
// smallest observation set that can be fitted.
const MinObservations = 4

var (
	ErrLengthMismatch     = errors.New("gofourpl: x and y length mismatch")
	ErrTooFewObservations = errors.New("gofourpl: too few observations")
	ErrUnknownMethod      = errors.New("gofourpl: unknown optimization method")
	ErrNoSolution         = errors.New("gofourpl: optimizer produced no solution")

	// ErrDomain is wrapped by every *DomainError.
	ErrDomain = errors.New("gofourpl: value outside the invertible domain")
)

// DomainError is returned by the checked inverse prediction when the curve
// cannot be inverted at Y.
type DomainError struct {
	Op     string
	Y      float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("gofourpl: %s(%v): %s", e.Op, e.Y, e.Reason)
}

func (e *DomainError) Unwrap() error {
	return ErrDomain
}

func validateObservations(x, y []float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) < MinObservations {
		return fmt.Errorf("%w: got %d, need at least %d", ErrTooFewObservations, len(x), MinObservations)
	}
	return nil
}
