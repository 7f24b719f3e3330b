package quote

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/contactkeval/option-impvol/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnualizedVolatility(t *testing.T) {
	a := math.Log(1.01)
	assert.InDelta(t, a*math.Sqrt2*math.Sqrt(252), AnnualizedVolatility([]float64{100, 101, 100}), 1e-12)

	assert.Equal(t, FallbackVolatility, AnnualizedVolatility(nil))
	assert.Equal(t, FallbackVolatility, AnnualizedVolatility([]float64{100, 101}))
	assert.InDelta(t, 0, AnnualizedVolatility([]float64{100, 110, 121, 133.1}), 1e-12)
}

func TestHistoricalVolFromSyntheticBars(t *testing.T) {
	cfg := data.SyntheticConfig{Spot: 100, Volatility: 0.4, Seed: 3}
	svc := syntheticService(cfg)

	hv, err := svc.HistoricalVol("XYZ", tradeTime, 365)
	require.NoError(t, err)
	// roughly 250 daily returns; the estimate lands well inside a factor of two
	assert.Greater(t, hv, 0.2)
	assert.Less(t, hv, 0.8)
}

func TestImpliedVolSeedsGuessFromHistory(t *testing.T) {
	cfg := data.SyntheticConfig{Spot: 100, Volatility: 0.32, Rate: 0.03}
	svc := syntheticService(cfg)
	svc.InitialGuess = 0

	res, err := svc.ImpliedVol(Request{Underlying: "XYZ", Strike: 100, Expiry: expiry, IsCall: true, At: tradeTime})
	require.NoError(t, err)
	assert.InDelta(t, 0.32, res.ImpliedVol, 1e-7)
}

// noHistory prices like the synthetic market but has no bars.
type noHistory struct{ data.Provider }

func (noHistory) GetBars(string, time.Time, time.Time, int, string) ([]data.Bar, error) {
	return nil, errors.New("no bars")
}

func TestSeedGuessFallsBack(t *testing.T) {
	svc := &Service{Provider: noHistory{data.NewSyntheticProvider(data.DefaultSyntheticConfig)}}
	assert.Equal(t, FallbackVolatility, svc.seedGuess("XYZ", tradeTime))
}
