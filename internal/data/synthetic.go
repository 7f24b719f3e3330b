package data

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/contactkeval/option-impvol/internal/logger"
	"github.com/contactkeval/option-impvol/internal/pricing"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticConfig parameterises the synthetic market.
type SyntheticConfig struct {
	Spot       float64 `yaml:"spot"`
	Volatility float64 `yaml:"volatility"`
	Rate       float64 `yaml:"rate"`
	Dividend   float64 `yaml:"dividend"`
	// Noise is the standard deviation of the additive error on option prices.
	Noise float64 `yaml:"noise"`
	Seed  uint64  `yaml:"seed"`
}

// DefaultSyntheticConfig is a flat 25% vol market around 100.
var DefaultSyntheticConfig = SyntheticConfig{Spot: 100, Volatility: 0.25, Rate: 0.05, Dividend: 0.02, Seed: 1}

// synthDataProvider implements Data Provider generating synthetic data.
// Option prices are Black-Scholes prices at the configured volatility, so the
// implied volatility of a noiseless quote is exactly that volatility.
type synthDataProvider struct {
	cfg    SyntheticConfig
	pricer pricing.Pricer

	mu     sync.Mutex
	normal distuv.Normal
}

func NewSyntheticProvider(cfg SyntheticConfig) Provider {
	if cfg.Spot <= 0 {
		cfg.Spot = DefaultSyntheticConfig.Spot
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = DefaultSyntheticConfig.Volatility
	}
	return &synthDataProvider{
		cfg:    cfg,
		pricer: pricing.DefaultPricer,
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(cfg.Seed)},
	}
}

// Secondary is always nil: the synthetic market answers every lookup.
func (synthDataProv *synthDataProvider) Secondary() Provider {
	return nil
}

func (synthDataProv *synthDataProvider) draw() float64 {
	synthDataProv.mu.Lock()
	defer synthDataProv.mu.Unlock()
	return synthDataProv.normal.Rand()
}

func (synthDataProv *synthDataProvider) GetSpotPrice(underlying string, asOf time.Time) (float64, error) {
	return synthDataProv.cfg.Spot, nil
}

// GetBars walks a lognormal path from the configured spot, one bar per
// weekday, with daily moves scaled from the configured volatility.
func (synthDataProv *synthDataProvider) GetBars(underlying string, fromDate, toDate time.Time, timespan int, multiplier string) ([]Bar, error) {
	if multiplier != "" && multiplier != "day" {
		return nil, fmt.Errorf("synthetic provider only generates daily bars, got %q", multiplier)
	}
	if timespan < 1 {
		timespan = 1
	}

	dailyVol := synthDataProv.cfg.Volatility / math.Sqrt(252)
	price := synthDataProv.cfg.Spot
	var out []Bar
	for cur := fromDate; !cur.After(toDate); cur = cur.AddDate(0, 0, timespan) {
		if cur.Weekday() == time.Saturday || cur.Weekday() == time.Sunday {
			continue
		}
		open := price
		close := open * math.Exp(dailyVol*synthDataProv.draw()-0.5*dailyVol*dailyVol)
		wick := dailyVol * open * math.Abs(synthDataProv.draw()) / 2
		out = append(out, Bar{
			Date:  cur,
			Open:  open,
			High:  math.Max(open, close) + wick,
			Low:   math.Min(open, close) - wick,
			Close: close,
			Vol:   math.Round(3000 + 1000*math.Abs(synthDataProv.draw())),
		})
		price = close
	}
	logger.Tracef("synthetic bars for %s: %d", underlying, len(out))
	return out, nil
}

// GetOptionPrice prices the option at the configured volatility, adding
// Gaussian noise when configured. Noisy prices are floored at zero.
func (synthDataProv *synthDataProvider) GetOptionPrice(underlying string, strike float64, expiryDate time.Time, optionType string, tradeDateTime time.Time) (float64, error) {
	isCall, err := IsCallType(optionType)
	if err != nil {
		return 0, err
	}

	c := pricing.OptionContract{
		Spot:     synthDataProv.cfg.Spot,
		Strike:   strike,
		Maturity: YearsBetween(tradeDateTime, expiryDate),
		Dividend: synthDataProv.cfg.Dividend,
		IsCall:   isCall,
	}
	price, err := synthDataProv.pricer.Price(c, pricing.MarketParameters{Rate: synthDataProv.cfg.Rate, Volatility: synthDataProv.cfg.Volatility})
	if err != nil {
		return 0, fmt.Errorf("synthetic price for %s: %w", OptionSymbolFromParts(underlying, expiryDate, optionType, strike), err)
	}
	if synthDataProv.cfg.Noise > 0 {
		price = math.Max(0, price+synthDataProv.cfg.Noise*synthDataProv.draw())
	}
	return price, nil
}
