package pricing

import "math"

// PriceBounds is the interval a European option price must lie in to rule
// out riskless arbitrage (Merton, 1973).
type PriceBounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether price lies in the closed interval.
func (b PriceBounds) Contains(price float64) bool {
	return price >= b.Lower && price <= b.Upper
}

// Bounds returns the no-arbitrage interval for the contract at rate r:
//
//	call: [max(0, S·e^(−qt) − K·e^(−rt)), S·e^(−qt)]
//	put:  [max(0, K·e^(−rt) − S·e^(−qt)), K·e^(−rt)]
//
// With q = 0 the call interval is [S − K·e^(−rt), S] floored at zero. The put
// is capped at K·e^(−rt) rather than K since a European put cannot be worth
// more than the discounted strike.
func (p Pricer) Bounds(c OptionContract, r float64) (PriceBounds, error) {
	if err := c.Validate(); err != nil {
		return PriceBounds{}, err
	}
	if err := (MarketParameters{Rate: r, Volatility: 1}).validate(); err != nil {
		return PriceBounds{}, err
	}

	fwdSpot := c.Spot * math.Exp(-c.Dividend*c.Maturity)
	pvStrike := c.Strike * math.Exp(-r*c.Maturity)

	if c.IsCall {
		return PriceBounds{Lower: math.Max(0, fwdSpot-pvStrike), Upper: fwdSpot}, nil
	}
	return PriceBounds{Lower: math.Max(0, pvStrike-fwdSpot), Upper: pvStrike}, nil
}

// ParityGap returns call − put − (S·e^(−qt) − K·e^(−rt)), which is zero for
// prices consistent with put-call parity.
func ParityGap(c OptionContract, r, callPrice, putPrice float64) float64 {
	return callPrice - putPrice - (c.Spot*math.Exp(-c.Dividend*c.Maturity) - c.Strike*math.Exp(-r*c.Maturity))
}
