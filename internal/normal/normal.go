// Package normal supplies the standard normal distribution used by the pricer.
//
// Two implementations are provided:
//   - Gonum: backed by gonum's distuv.UnitNormal (the default)
//   - Erf:   closed form through math.Erf, kept as a dependency-free reference
//
// Both are stateless and safe for concurrent use.
package normal

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const sqrt2Pi = 2.5066282746310002

// Distribution is the part of a univariate distribution the pricer needs.
type Distribution interface {
	// CDF returns P(X <= x).
	CDF(x float64) float64
	// Prob returns the density at x.
	Prob(x float64) float64
}

// Gonum is the standard normal from gonum.org/v1/gonum/stat/distuv.
type Gonum struct{}

func (Gonum) CDF(x float64) float64  { return distuv.UnitNormal.CDF(x) }
func (Gonum) Prob(x float64) float64 { return distuv.UnitNormal.Prob(x) }

// Erf computes the standard normal through the error function.
type Erf struct{}

// CDF returns 0.5 * (1 + erf(x/√2)).
func (Erf) CDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// Prob returns exp(-x²/2) / √(2π).
func (Erf) Prob(x float64) float64 {
	return math.Exp(-0.5*x*x) / sqrt2Pi
}

// Standard is the distribution used when callers do not pick one.
var Standard Distribution = Gonum{}
