// Package rootfind finds roots of scalar functions.
//
// Two strategies are provided:
//   - Bisect: bracketing, always converges once given a sign-changing bracket
//   - NewtonRaphson: derivative based, fast near the root but unguarded by a bracket
//
// Both bound their iteration count and report failures as *Error values that
// unwrap to one of the sentinel errors below.
package rootfind

import (
	"errors"
	"fmt"
)

// Func is a scalar function of one variable.
type Func func(x float64) float64

var (
	ErrNoSignChange   = errors.New("f(a) and f(b) must have opposite signs")
	ErrZeroDerivative = errors.New("derivative too close to zero")
	ErrMaxIterations  = errors.New("maximum iterations exceeded")
	ErrNotFinite      = errors.New("function evaluated to a non-finite value")
	ErrInvalidInput   = errors.New("invalid root-finding input")
)

// Method names the algorithm that produced an Error.
type Method string

const (
	MethodBisection Method = "bisection"
	MethodNewton    Method = "newton-raphson"
)

// Error describes a failed search.
type Error struct {
	Method     Method
	Iterations int     // iterations completed before the failure
	X          float64 // last point evaluated
	Err        error   // one of the sentinel errors
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v after %d iterations (x=%g)", e.Method, e.Err, e.Iterations, e.X)
}

func (e *Error) Unwrap() error { return e.Err }

// Solver holds the guards shared by both strategies.
type Solver struct {
	// MaxIterations caps the number of iterations. Zero means the per-method default.
	MaxIterations int
	// MinDerivative is the smallest |f'(x)| Newton-Raphson divides by.
	// Zero means DefaultMinDerivative.
	MinDerivative float64
}

const (
	DefaultBisectIterations = 200
	DefaultNewtonIterations = 100
	DefaultMinDerivative    = 1e-12
)

// Default is the Solver used by the package-level functions.
var Default = Solver{}

func (s Solver) maxIterations(m Method) int {
	if s.MaxIterations > 0 {
		return s.MaxIterations
	}
	if m == MethodBisection {
		return DefaultBisectIterations
	}
	return DefaultNewtonIterations
}

func (s Solver) minDerivative() float64 {
	if s.MinDerivative > 0 {
		return s.MinDerivative
	}
	return DefaultMinDerivative
}

// Bisect finds a root of f in [a, b] with Default guards.
func Bisect(f Func, a, b, xtol float64) (float64, error) {
	return Default.Bisect(f, a, b, xtol)
}

// NewtonRaphson finds a root of f starting at x0 with Default guards.
func NewtonRaphson(f, df Func, x0, xtol float64) (float64, error) {
	return Default.NewtonRaphson(f, df, x0, xtol)
}
