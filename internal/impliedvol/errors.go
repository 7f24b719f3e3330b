package impliedvol

import (
	"errors"
	"fmt"

	"github.com/contactkeval/option-impvol/internal/pricing"
)

var (
	// ErrOutOfBounds matches every *OutOfBoundsError.
	ErrOutOfBounds = errors.New("option price outside no-arbitrage bounds")
	// ErrNonConvergent matches every *NonConvergentError.
	ErrNonConvergent = errors.New("implied volatility did not converge")
	// ErrInvalidInput is returned for a non-positive guess, tolerance or bracket.
	ErrInvalidInput = errors.New("invalid implied volatility input")
)

// Bound says which side of the no-arbitrage interval a price violated.
type Bound string

const (
	Above Bound = "above"
	Below Bound = "below"
)

// OutOfBoundsError reports an observed price that no volatility can produce.
type OutOfBoundsError struct {
	Bound  Bound
	Price  float64
	Bounds pricing.PriceBounds
	IsCall bool
}

func (e *OutOfBoundsError) Error() string {
	kind := "put"
	if e.IsCall {
		kind = "call"
	}
	limit := e.Bounds.Upper
	if e.Bound == Below {
		limit = e.Bounds.Lower
	}
	return fmt.Sprintf("supplied %s price %g is %s the rational price bound %g", kind, e.Price, e.Bound, limit)
}

func (e *OutOfBoundsError) Is(target error) bool { return target == ErrOutOfBounds }

// NonConvergentError wraps the root-finder failure met while solving.
type NonConvergentError struct {
	Cause error
}

func (e *NonConvergentError) Error() string {
	return fmt.Sprintf("%v: %v", ErrNonConvergent, e.Cause)
}

func (e *NonConvergentError) Is(target error) bool { return target == ErrNonConvergent }

func (e *NonConvergentError) Unwrap() error { return e.Cause }
