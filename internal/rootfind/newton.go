package rootfind

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-impvol/internal/logger"
)

// NewtonRaphson finds a root of f from the starting point x0, using df as the
// derivative of f. It stops once the Newton step |f(x)/df(x)| is at most xtol
// and returns the current x.
//
// The search fails with ErrZeroDerivative when |df(x)| drops below the
// solver's MinDerivative and with ErrMaxIterations when the step never gets
// small enough.
func (s Solver) NewtonRaphson(f, df Func, x0, xtol float64) (float64, error) {
	if f == nil || df == nil || !(xtol > 0) || !isFinite(x0) {
		return 0, &Error{Method: MethodNewton, X: x0,
			Err: fmt.Errorf("%w: need f, df, a finite start and xtol > 0 (x0=%g xtol=%g)", ErrInvalidInput, x0, xtol)}
	}

	maxIter := s.maxIterations(MethodNewton)
	minDeriv := s.minDerivative()

	x := x0
	for i := 0; ; i++ {
		fx, dfx := f(x), df(x)
		if !isFinite(fx) || !isFinite(dfx) {
			return 0, &Error{Method: MethodNewton, Iterations: i, X: x, Err: ErrNotFinite}
		}
		if math.Abs(dfx) < minDeriv {
			return 0, &Error{Method: MethodNewton, Iterations: i, X: x, Err: ErrZeroDerivative}
		}

		step := fx / dfx
		logger.Tracef("newton iter=%d x=%g f(x)=%g df(x)=%g step=%g", i, x, fx, dfx, step)
		if math.Abs(step) <= xtol {
			return x, nil
		}
		if i >= maxIter {
			return 0, &Error{Method: MethodNewton, Iterations: i, X: x, Err: ErrMaxIterations}
		}

		x -= step
		if !isFinite(x) {
			return 0, &Error{Method: MethodNewton, Iterations: i + 1, X: x, Err: ErrNotFinite}
		}
	}
}
