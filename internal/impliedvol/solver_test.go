package impliedvol

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/contactkeval/option-impvol/internal/pricing"
	"github.com/contactkeval/option-impvol/internal/rootfind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingPricer records how often the search evaluates the model.
type countingPricer struct {
	pricing.Pricer
	prices, vegas int
}

func (p *countingPricer) Price(c pricing.OptionContract, m pricing.MarketParameters) (float64, error) {
	p.prices++
	return p.Pricer.Price(c, m)
}

func (p *countingPricer) Vega(c pricing.OptionContract, m pricing.MarketParameters) (float64, error) {
	p.vegas++
	return p.Pricer.Vega(c, m)
}

func modelPrice(t *testing.T, S, K, sigma, r, tm, q float64, isCall bool) float64 {
	t.Helper()
	p, err := pricing.BlackScholesPrice(S, K, sigma, r, tm, q, isCall)
	require.NoError(t, err)
	return p
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	const r = 0.05
	for _, isCall := range []bool{true, false} {
		for _, K := range []float64{90, 100, 110} {
			for _, sigma := range []float64{0.1, 0.3, 0.6} {
				for _, tm := range []float64{0.25, 1} {
					for _, q := range []float64{0, 0.03} {
						name := fmt.Sprintf("call=%v/K=%v/vol=%v/t=%v/q=%v", isCall, K, sigma, tm, q)
						t.Run(name, func(t *testing.T) {
							C := modelPrice(t, 100, K, sigma, r, tm, q, isCall)
							got, err := ImpliedVolatility(C, 100, K, r, tm, q, isCall, 1.2*sigma, 1e-7)
							require.NoError(t, err)
							require.InDelta(t, sigma, got, 1e-5)
						})
					}
				}
			}
		}
	}
}

func TestImpliedVolatilityWorkedScenario(t *testing.T) {
	price := modelPrice(t, 100, 100, 0.25, 0.05, 0.1, 0.02, false)

	vol, err := ImpliedVolatility(price, 100, 100, 0.05, 0.1, 0.02, false, 0.5, 1e-5)
	require.NoError(t, err)
	require.InDelta(t, 0.25, vol, 1e-4)
}

func TestImpliedVolatilityOutOfBounds(t *testing.T) {
	type testCase struct {
		name   string
		price  float64
		c      pricing.OptionContract
		bound  Bound
		prefix string
	}

	for _, tc := range []testCase{
		{
			name:  "call above spot",
			price: 101,
			c:     pricing.OptionContract{Spot: 100, Strike: 100, Maturity: 1, IsCall: true},
			bound: Above, prefix: "supplied call price 101 is above",
		},
		{
			name:  "call below intrinsic",
			price: 20,
			c:     pricing.OptionContract{Spot: 100, Strike: 80, Maturity: 1, IsCall: true},
			bound: Below, prefix: "supplied call price 20 is below",
		},
		{
			name:  "put above discounted strike",
			price: 99,
			c:     pricing.OptionContract{Spot: 100, Strike: 100, Maturity: 1},
			bound: Above, prefix: "supplied put price 99 is above",
		},
		{
			name:  "negative put",
			price: -0.5,
			c:     pricing.OptionContract{Spot: 100, Strike: 100, Maturity: 1},
			bound: Below, prefix: "supplied put price -0.5 is below",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			spy := &countingPricer{Pricer: pricing.DefaultPricer}
			s := Solver{Pricer: spy}

			_, err := s.Solve(tc.price, tc.c, 0.05, 0.5, 1e-7)
			require.ErrorIs(t, err, ErrOutOfBounds)

			var oob *OutOfBoundsError
			require.True(t, errors.As(err, &oob))
			assert.Equal(t, tc.bound, oob.Bound)
			assert.Contains(t, err.Error(), tc.prefix)

			assert.Zero(t, spy.prices, "no root-finding should happen")
			assert.Zero(t, spy.vegas, "no root-finding should happen")
		})
	}
}

func TestImpliedVolatilityAtBoundIsAccepted(t *testing.T) {
	// S is a legal call price but no finite volatility reaches it.
	_, err := ImpliedVolatility(100, 100, 100, 0.05, 1, 0, true, 0.5, 1e-7)
	require.ErrorIs(t, err, ErrNonConvergent)
	require.False(t, errors.Is(err, ErrOutOfBounds))
}

func TestImpliedVolatilityNonConvergent(t *testing.T) {
	C := modelPrice(t, 100, 100, 0.2, 0.05, 1, 0, true)
	c := pricing.OptionContract{Spot: 100, Strike: 100, Maturity: 1, IsCall: true}

	t.Run("iteration cap", func(t *testing.T) {
		s := Solver{RootFinder: rootfind.Solver{MaxIterations: 1}}
		_, err := s.Solve(C, c, 0.05, 0.5, 1e-8)
		require.ErrorIs(t, err, ErrNonConvergent)
		require.ErrorIs(t, err, rootfind.ErrMaxIterations)

		var nc *NonConvergentError
		require.True(t, errors.As(err, &nc))
		var rfErr *rootfind.Error
		require.True(t, errors.As(nc.Cause, &rfErr))
		assert.Equal(t, rootfind.MethodNewton, rfErr.Method)
	})

	t.Run("step to negative volatility", func(t *testing.T) {
		_, err := Default.Solve(C, c, 0.05, 3.0, 1e-8)
		require.ErrorIs(t, err, ErrNonConvergent)
		require.ErrorIs(t, err, rootfind.ErrNotFinite)
		require.ErrorIs(t, err, pricing.ErrDomain)
	})

	t.Run("vega floor", func(t *testing.T) {
		s := Solver{RootFinder: rootfind.Solver{MinDerivative: 1e6}}
		_, err := s.Solve(C, c, 0.05, 0.5, 1e-8)
		require.ErrorIs(t, err, rootfind.ErrZeroDerivative)
	})
}

func TestBisectionMethod(t *testing.T) {
	s := Solver{Method: Bisection}
	for _, isCall := range []bool{true, false} {
		for _, sigma := range []float64{0.05, 0.4, 1.5} {
			c := pricing.OptionContract{Spot: 100, Strike: 95, Maturity: 0.5, Dividend: 0.01, IsCall: isCall}
			C := modelPrice(t, c.Spot, c.Strike, sigma, 0.03, c.Maturity, c.Dividend, isCall)

			got, err := s.Solve(C, c, 0.03, 0, 1e-10)
			require.NoError(t, err)
			require.InDelta(t, sigma, got, 1e-8)
		}
	}

	// volatility above the bracket leaves no sign change
	c := pricing.OptionContract{Spot: 100, Strike: 100, Maturity: 1, IsCall: true}
	C := modelPrice(t, 100, 100, 6, 0.05, 1, 0, true)
	_, err := s.Solve(C, c, 0.05, 0, 1e-8)
	require.ErrorIs(t, err, ErrNonConvergent)
	require.ErrorIs(t, err, rootfind.ErrNoSignChange)

	_, err = Solver{Method: Bisection, BracketLow: 2, BracketHigh: 1}.Solve(10, c, 0.05, 0, 1e-8)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSolveInvalidInput(t *testing.T) {
	c := pricing.OptionContract{Spot: 100, Strike: 100, Maturity: 1, IsCall: true}

	_, err := Default.Solve(10, c, 0.05, 0.5, 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Default.Solve(10, c, 0.05, 0, 1e-7)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Solver{Method: "secant"}.Solve(10, c, 0.05, 0.5, 1e-7)
	require.ErrorIs(t, err, ErrInvalidInput)

	c.Maturity = 0
	_, err = Default.Solve(10, c, 0.05, 0.5, 1e-7)
	require.ErrorIs(t, err, pricing.ErrDomain)
}

func TestATM(t *testing.T) {
	call := modelPrice(t, 100, 100, 0.3, 0.02, 0.5, 0, true)
	put := modelPrice(t, 100, 100, 0.3, 0.02, 0.5, 0, false)

	vol, err := Default.ATM(100, 100, 0.02, 0.5, 0, call, put, 0.2, 1e-8)
	require.NoError(t, err)
	require.InDelta(t, 0.3, vol, 1e-6)

	_, err = Default.ATM(100, 100, 0.02, 0.5, 0, call, 150, 0.2, 1e-8)
	require.ErrorIs(t, err, ErrOutOfBounds)
	require.Contains(t, err.Error(), "put leg")
}

func TestSolverIsSafeForConcurrentUse(t *testing.T) {
	s := Solver{}
	c := pricing.OptionContract{Spot: 100, Strike: 105, Maturity: 0.75, IsCall: true}

	var wg sync.WaitGroup
	results := make([]float64, 16)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sigma := 0.1 + 0.05*float64(i)
			C, err := pricing.BlackScholesPrice(c.Spot, c.Strike, sigma, 0.01, c.Maturity, 0, true)
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = s.Solve(C, c, 0.01, sigma, 1e-9)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		require.NoError(t, errs[i])
		require.InDelta(t, 0.1+0.05*float64(i), got, 1e-7)
	}
}
