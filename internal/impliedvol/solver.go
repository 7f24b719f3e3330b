// Package impliedvol recovers the Black-Scholes volatility implied by an
// observed option price.
//
// A price is first checked against the Merton no-arbitrage bounds; only a
// price inside them is handed to the root-finder.
package impliedvol

import (
	"errors"
	"fmt"
	"math"

	"github.com/contactkeval/option-impvol/internal/logger"
	"github.com/contactkeval/option-impvol/internal/pricing"
	"github.com/contactkeval/option-impvol/internal/rootfind"
)

// Method selects the root-finding strategy.
type Method string

const (
	Newton    Method = "newton"
	Bisection Method = "bisection"
)

// ParseMethod maps a method name to a Method. The empty string means Newton.
func ParseMethod(name string) (Method, error) {
	switch Method(name) {
	case "", Newton:
		return Newton, nil
	case Bisection:
		return Bisection, nil
	}
	return "", fmt.Errorf("%w: unknown method %q", ErrInvalidInput, name)
}

// Pricer is what the solver needs from a Black-Scholes pricer.
type Pricer interface {
	Price(c pricing.OptionContract, m pricing.MarketParameters) (float64, error)
	Vega(c pricing.OptionContract, m pricing.MarketParameters) (float64, error)
	Bounds(c pricing.OptionContract, rate float64) (pricing.PriceBounds, error)
}

const (
	DefaultBracketLow  = 1e-6
	DefaultBracketHigh = 5.0
)

// Solver inverts the pricer. The zero value uses pricing.DefaultPricer,
// rootfind.Default guards and Newton-Raphson.
type Solver struct {
	Pricer     Pricer
	RootFinder rootfind.Solver
	Method     Method

	// BracketLow and BracketHigh bound the volatility search for Bisection.
	BracketLow, BracketHigh float64
}

// Default is the Solver used by ImpliedVolatility.
var Default = Solver{}

func (s Solver) pricer() Pricer {
	if s.Pricer == nil {
		return pricing.DefaultPricer
	}
	return s.Pricer
}

func (s Solver) bracket() (lo, hi float64) {
	lo, hi = s.BracketLow, s.BracketHigh
	if lo <= 0 {
		lo = DefaultBracketLow
	}
	if hi <= 0 {
		hi = DefaultBracketHigh
	}
	return lo, hi
}

// ImpliedVolatility returns the volatility at which the Black-Scholes price
// of the option equals price, searching with Newton-Raphson from
// initialGuess until the step is at most xtol.
func ImpliedVolatility(price, S, K, r, t, q float64, isCall bool, initialGuess, xtol float64) (float64, error) {
	c := pricing.OptionContract{Spot: S, Strike: K, Maturity: t, Dividend: q, IsCall: isCall}
	return Default.Solve(price, c, r, initialGuess, xtol)
}

// Solve returns the volatility implied by price for contract c at rate r.
//
// Errors:
//   - wrapping pricing.ErrDomain for an invalid contract
//   - wrapping ErrInvalidInput for a bad guess, tolerance or method
//   - *OutOfBoundsError when price violates the no-arbitrage bounds
//   - *NonConvergentError when the root-finder fails
func (s Solver) Solve(price float64, c pricing.OptionContract, r, initialGuess, xtol float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: price must be finite, got %g", ErrInvalidInput, price)
	}
	if !(xtol > 0) {
		return 0, fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidInput, xtol)
	}

	method, err := ParseMethod(string(s.Method))
	if err != nil {
		return 0, err
	}
	if method == Newton && (!(initialGuess > 0) || math.IsInf(initialGuess, 0)) {
		return 0, fmt.Errorf("%w: initial guess must be positive, got %g", ErrInvalidInput, initialGuess)
	}

	p := s.pricer()
	bounds, err := p.Bounds(c, r)
	if err != nil {
		return 0, err
	}
	switch {
	case price > bounds.Upper:
		return 0, &OutOfBoundsError{Bound: Above, Price: price, Bounds: bounds, IsCall: c.IsCall}
	case price < bounds.Lower:
		return 0, &OutOfBoundsError{Bound: Below, Price: price, Bounds: bounds, IsCall: c.IsCall}
	}

	// A pricer failure inside the search (e.g. Newton stepping to σ ≤ 0)
	// shows up to the root-finder as NaN; keep the reason for the caller.
	var domainErr error
	f := func(sigma float64) float64 {
		v, err := p.Price(c, pricing.MarketParameters{Rate: r, Volatility: sigma})
		if err != nil {
			domainErr = err
			return math.NaN()
		}
		return v - price
	}
	df := func(sigma float64) float64 {
		v, err := p.Vega(c, pricing.MarketParameters{Rate: r, Volatility: sigma})
		if err != nil {
			domainErr = err
			return math.NaN()
		}
		return v
	}

	var sigma float64
	switch method {
	case Bisection:
		lo, hi := s.bracket()
		if lo >= hi {
			return 0, fmt.Errorf("%w: empty volatility bracket [%g, %g]", ErrInvalidInput, lo, hi)
		}
		sigma, err = s.RootFinder.Bisect(f, lo, hi, xtol)
	default:
		sigma, err = s.RootFinder.NewtonRaphson(f, df, initialGuess, xtol)
	}
	if err != nil {
		if domainErr != nil {
			err = errors.Join(err, domainErr)
		}
		logger.Debugf("implied vol failed method=%s price=%g: %v", method, price, err)
		return 0, &NonConvergentError{Cause: err}
	}

	logger.Debugf("implied vol method=%s price=%g sigma=%g", method, price, sigma)
	return sigma, nil
}

// ATM returns the mean of the volatilities implied separately by a call and
// a put on the same strike and expiry.
func (s Solver) ATM(S, K, r, t, q, callPrice, putPrice, initialGuess, xtol float64) (float64, error) {
	c := pricing.OptionContract{Spot: S, Strike: K, Maturity: t, Dividend: q, IsCall: true}
	callVol, err := s.Solve(callPrice, c, r, initialGuess, xtol)
	if err != nil {
		return 0, fmt.Errorf("call leg: %w", err)
	}

	c.IsCall = false
	putVol, err := s.Solve(putPrice, c, r, initialGuess, xtol)
	if err != nil {
		return 0, fmt.Errorf("put leg: %w", err)
	}

	return (callVol + putVol) / 2, nil
}
