package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/contactkeval/option-impvol/internal/normal"
)

// ErrDomain is wrapped by every error caused by contract or market
// parameters outside the domain of the Black-Scholes formula.
var ErrDomain = errors.New("black-scholes domain error")

// OptionContract describes a European option on a dividend paying underlying.
type OptionContract struct {
	Spot     float64 `json:"spot" yaml:"spot"`         // S, price of the underlying
	Strike   float64 `json:"strike" yaml:"strike"`     // K
	Maturity float64 `json:"maturity" yaml:"maturity"` // t, in years
	Dividend float64 `json:"dividend" yaml:"dividend"` // q, continuous annual yield
	IsCall   bool    `json:"is_call" yaml:"is_call"`
}

// MarketParameters holds the rate and volatility the contract is priced under.
type MarketParameters struct {
	Rate       float64 `json:"rate" yaml:"rate"`             // r, continuously compounded
	Volatility float64 `json:"volatility" yaml:"volatility"` // σ, annualised
}

// Pricer evaluates Black-Scholes prices against a standard normal distribution.
// The zero value uses normal.Standard.
type Pricer struct {
	Normal normal.Distribution
}

// DefaultPricer backs the package-level functions.
var DefaultPricer = Pricer{Normal: normal.Standard}

func (p Pricer) dist() normal.Distribution {
	if p.Normal == nil {
		return normal.Standard
	}
	return p.Normal
}

// Validate reports the first contract parameter outside the formula's domain.
func (c OptionContract) Validate() error {
	switch {
	case !(c.Spot > 0) || math.IsInf(c.Spot, 0):
		return fmt.Errorf("%w: spot must be positive and finite, got %g", ErrDomain, c.Spot)
	case !(c.Strike > 0) || math.IsInf(c.Strike, 0):
		return fmt.Errorf("%w: strike must be positive and finite, got %g", ErrDomain, c.Strike)
	case !(c.Maturity > 0) || math.IsInf(c.Maturity, 0):
		return fmt.Errorf("%w: time to maturity must be positive and finite, got %g", ErrDomain, c.Maturity)
	case !(c.Dividend >= 0) || math.IsInf(c.Dividend, 0):
		return fmt.Errorf("%w: dividend yield must be non-negative, got %g", ErrDomain, c.Dividend)
	}
	return nil
}

func (m MarketParameters) validate() error {
	if math.IsNaN(m.Rate) || math.IsInf(m.Rate, 0) {
		return fmt.Errorf("%w: rate must be finite, got %g", ErrDomain, m.Rate)
	}
	if !(m.Volatility > 0) || math.IsInf(m.Volatility, 0) {
		return fmt.Errorf("%w: volatility must be positive and finite, got %g", ErrDomain, m.Volatility)
	}
	return nil
}

// d1d2 returns the two standardised moneyness terms of the formula.
func d1d2(c OptionContract, m MarketParameters) (d1, d2 float64) {
	volSqrtT := m.Volatility * math.Sqrt(c.Maturity)
	d1 = (math.Log(c.Spot/c.Strike) + (m.Rate-c.Dividend+0.5*m.Volatility*m.Volatility)*c.Maturity) / volSqrtT
	d2 = d1 - volSqrtT
	return d1, d2
}

// Price returns the Black-Scholes value of the contract.
func (p Pricer) Price(c OptionContract, m MarketParameters) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if err := m.validate(); err != nil {
		return 0, err
	}

	n := p.dist()
	d1, d2 := d1d2(c, m)
	fwdSpot := c.Spot * math.Exp(-c.Dividend*c.Maturity)
	pvStrike := c.Strike * math.Exp(-m.Rate*c.Maturity)

	if c.IsCall {
		return fwdSpot*n.CDF(d1) - pvStrike*n.CDF(d2), nil
	}
	return pvStrike*n.CDF(-d2) - fwdSpot*n.CDF(-d1), nil
}

// Vega returns ∂price/∂σ, which is the same for calls and puts:
// S·e^(−qt)·φ(d1)·√t.
func (p Pricer) Vega(c OptionContract, m MarketParameters) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if err := m.validate(); err != nil {
		return 0, err
	}

	d1, _ := d1d2(c, m)
	return c.Spot * math.Exp(-c.Dividend*c.Maturity) * p.dist().Prob(d1) * math.Sqrt(c.Maturity), nil
}

// BlackScholesPrice calculates the price of a European option.
//
// Parameters:
//   - S: spot price of the underlying
//   - K: strike
//   - sigma: annual volatility
//   - r: risk-free rate
//   - t: time to maturity in years
//   - q: continuous dividend yield
//   - isCall: true for a call, false for a put
//
// An error wrapping ErrDomain is returned when sigma, t, S or K is not positive.
func BlackScholesPrice(S, K, sigma, r, t, q float64, isCall bool) (float64, error) {
	return DefaultPricer.Price(
		OptionContract{Spot: S, Strike: K, Maturity: t, Dividend: q, IsCall: isCall},
		MarketParameters{Rate: r, Volatility: sigma},
	)
}

// BlackScholesVega calculates the sensitivity of the option price to a unit
// change in volatility.
func BlackScholesVega(S, K, sigma, r, t, q float64) (float64, error) {
	return DefaultPricer.Vega(
		OptionContract{Spot: S, Strike: K, Maturity: t, Dividend: q},
		MarketParameters{Rate: r, Volatility: sigma},
	)
}
