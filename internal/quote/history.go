package quote

import (
	"fmt"
	"math"
	"time"

	"github.com/contactkeval/option-impvol/internal/logger"
	"gonum.org/v1/gonum/stat"
)

const (
	// FallbackVolatility seeds the search when there is too little history.
	FallbackVolatility = 0.30
	// HistoryDays is the calendar-day lookback used to seed the search.
	HistoryDays = 30

	tradingDays = 252.0
	minGuessVol = 0.01
	maxGuessVol = 3.0
)

// AnnualizedVolatility is the sample standard deviation of daily log returns
// scaled by sqrt(252). Fewer than three closes give FallbackVolatility.
func AnnualizedVolatility(closes []float64) float64 {
	if len(closes) < 3 {
		return FallbackVolatility
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		rets = append(rets, math.Log(closes[i]/closes[i-1]))
	}
	return stat.StdDev(rets, nil) * math.Sqrt(tradingDays)
}

// HistoricalVol returns the annualised close-to-close volatility of
// underlying over the days calendar days up to asOf.
func (s *Service) HistoricalVol(underlying string, asOf time.Time, days int) (float64, error) {
	bars, err := s.Provider.GetBars(underlying, asOf.AddDate(0, 0, -days), asOf, 1, "day")
	if err != nil {
		return 0, fmt.Errorf("history for %s: %w", underlying, err)
	}
	closes := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			closes = append(closes, b.Close)
		}
	}
	return AnnualizedVolatility(closes), nil
}

// seedGuess picks the Newton starting point when the service has none:
// realised volatility clamped to a sane range, or FallbackVolatility if the
// history lookup fails.
func (s *Service) seedGuess(underlying string, at time.Time) float64 {
	hv, err := s.HistoricalVol(underlying, at, HistoryDays)
	if err != nil {
		logger.Debugf("seed guess for %s: %v", underlying, err)
		return FallbackVolatility
	}
	return math.Min(math.Max(hv, minGuessVol), maxGuessVol)
}
