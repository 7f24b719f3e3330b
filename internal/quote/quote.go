// Package quote implies volatilities from market quotes fetched through a
// data.Provider.
package quote

import (
	"errors"
	"fmt"
	"time"

	"github.com/contactkeval/option-impvol/internal/data"
	"github.com/contactkeval/option-impvol/internal/impliedvol"
	"github.com/contactkeval/option-impvol/internal/logger"
	"github.com/contactkeval/option-impvol/internal/pricing"
)

// ErrExpired is returned when the quote time is not before expiry.
var ErrExpired = errors.New("option has expired")

// Request identifies one listed option observed at a point in time.
type Request struct {
	Underlying string    `json:"underlying" binding:"required"`
	Strike     float64   `json:"strike" binding:"required,gt=0"`
	Expiry     time.Time `json:"expiry" binding:"required"`
	IsCall     bool      `json:"is_call"`
	At         time.Time `json:"at"`
}

// Result is a solved quote: the inputs the solver saw and its answer.
type Result struct {
	Underlying string    `json:"underlying"`
	Symbol     string    `json:"symbol"`
	Strike     float64   `json:"strike"`
	Expiry     time.Time `json:"expiry"`
	At         time.Time `json:"at"`
	IsCall     bool      `json:"is_call"`
	Spot       float64   `json:"spot"`
	Price      float64   `json:"price"`
	Maturity   float64   `json:"maturity"`
	Rate       float64   `json:"rate"`
	Dividend   float64   `json:"dividend"`
	ImpliedVol float64   `json:"implied_vol"`
	Vega       float64   `json:"vega"`
}

// Service fetches spot and option prices and solves for implied volatility.
//
// A zero InitialGuess seeds each search with the underlying's realised
// volatility over the last HistoryDays days.
type Service struct {
	Provider     data.Provider
	Solver       impliedvol.Solver
	Rate         float64
	Dividend     float64
	InitialGuess float64
	Tolerance    float64

	// Now stamps requests that carry no quote time. Defaults to time.Now.
	Now func() time.Time
}

func optionType(isCall bool) string {
	if isCall {
		return "call"
	}
	return "put"
}

// ImpliedVol solves one request. Solver errors keep their identity, so
// errors.Is(err, impliedvol.ErrOutOfBounds) still holds.
func (s *Service) ImpliedVol(req Request) (Result, error) {
	at := req.At
	if at.IsZero() {
		at = time.Now()
		if s.Now != nil {
			at = s.Now()
		}
	}
	optType := optionType(req.IsCall)
	symbol := data.OptionSymbolFromParts(req.Underlying, req.Expiry, optType, req.Strike)

	t := data.YearsBetween(at, req.Expiry)
	if t <= 0 {
		return Result{}, fmt.Errorf("%s at %s: %w", symbol, at.Format(time.RFC3339), ErrExpired)
	}

	spot, err := s.Provider.GetSpotPrice(req.Underlying, at)
	if err != nil {
		return Result{}, fmt.Errorf("spot for %s: %w", req.Underlying, err)
	}
	price, err := s.Provider.GetOptionPrice(req.Underlying, req.Strike, req.Expiry, optType, at)
	if err != nil {
		return Result{}, fmt.Errorf("price for %s: %w", symbol, err)
	}

	guess := s.InitialGuess
	if guess <= 0 {
		guess = s.seedGuess(req.Underlying, at)
	}

	c := pricing.OptionContract{Spot: spot, Strike: req.Strike, Maturity: t, Dividend: s.Dividend, IsCall: req.IsCall}
	vol, err := s.Solver.Solve(price, c, s.Rate, guess, s.Tolerance)
	if err != nil {
		logger.Debugf("quote %s spot=%g price=%g t=%g: %v", symbol, spot, price, t, err)
		return Result{}, fmt.Errorf("%s: %w", symbol, err)
	}
	vega, err := pricing.DefaultPricer.Vega(c, pricing.MarketParameters{Rate: s.Rate, Volatility: vol})
	if err != nil {
		return Result{}, fmt.Errorf("vega for %s: %w", symbol, err)
	}

	logger.Infof("quote %s spot=%.4f price=%.4f iv=%.6f", symbol, spot, price, vol)
	return Result{
		Underlying: req.Underlying,
		Symbol:     symbol,
		Strike:     req.Strike,
		Expiry:     req.Expiry,
		At:         at,
		IsCall:     req.IsCall,
		Spot:       spot,
		Price:      price,
		Maturity:   t,
		Rate:       s.Rate,
		Dividend:   s.Dividend,
		ImpliedVol: vol,
		Vega:       vega,
	}, nil
}

// Strip solves a call and a put at each strike for one expiry. Legs that
// fail are logged and left out.
func (s *Service) Strip(underlying string, strikes []float64, expiry, at time.Time) []Result {
	var out []Result
	for _, k := range strikes {
		for _, isCall := range []bool{true, false} {
			res, err := s.ImpliedVol(Request{Underlying: underlying, Strike: k, Expiry: expiry, IsCall: isCall, At: at})
			if err != nil {
				logger.Errorf("strip %s: %v", underlying, err)
				continue
			}
			out = append(out, res)
		}
	}
	return out
}
