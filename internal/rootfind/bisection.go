package rootfind

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-impvol/internal/logger"
)

// Bisect finds a root of f between a and b to within xtol.
//
// f(a) and f(b) must have opposite signs; if either is exactly zero that
// endpoint is returned. The bracket is halved until its width is at most xtol
// and the final midpoint is returned.
func (s Solver) Bisect(f Func, a, b, xtol float64) (float64, error) {
	if f == nil || !(xtol > 0) || !isFinite(a) || !isFinite(b) {
		return 0, &Error{Method: MethodBisection, X: a,
			Err: fmt.Errorf("%w: need f, finite endpoints and xtol > 0 (a=%g b=%g xtol=%g)", ErrInvalidInput, a, b, xtol)}
	}

	fa, fb := f(a), f(b)
	if !isFinite(fa) {
		return 0, &Error{Method: MethodBisection, X: a, Err: ErrNotFinite}
	}
	if !isFinite(fb) {
		return 0, &Error{Method: MethodBisection, X: b, Err: ErrNotFinite}
	}

	switch {
	case fa == 0:
		return a, nil
	case fb == 0:
		return b, nil
	case math.Signbit(fa) == math.Signbit(fb):
		return 0, &Error{Method: MethodBisection, X: a, Err: ErrNoSignChange}
	}

	maxIter := s.maxIterations(MethodBisection)
	for i := 0; math.Abs(b-a) > xtol; i++ {
		if i >= maxIter {
			return 0, &Error{Method: MethodBisection, Iterations: i, X: (a + b) / 2, Err: ErrMaxIterations}
		}

		m := (a + b) / 2
		fm := f(m)
		logger.Tracef("bisection iter=%d a=%g b=%g m=%g f(m)=%g", i+1, a, b, m, fm)

		switch {
		case !isFinite(fm):
			return 0, &Error{Method: MethodBisection, Iterations: i + 1, X: m, Err: ErrNotFinite}
		case fm == 0:
			return m, nil
		case math.Signbit(fm) == math.Signbit(fa):
			a, fa = m, fm
		default:
			b = m
		}
	}

	return (a + b) / 2, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
