// Package data provides market data provider implementations.
//
// This file contains a Massive-backed Provider that retrieves underlying and
// option aggregates over the Massive HTTP API.
//
// Design notes:
//   - Uses raw HTTP calls instead of the official Massive SDK
//   - Retries on rate limiting (HTTP 429) a bounded number of times
//   - Delegates to a secondary provider when one is configured and a lookup fails
package data

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/contactkeval/option-impvol/internal/logger"
)

const (
	defaultMassiveBaseURL = "https://api.massive.com"
	maxRateLimitRetries   = 3
)

// massiveDataProvider implements the Provider interface using Massive APIs.
type massiveDataProvider struct {
	// APIKey used for authenticating requests with Massive.
	APIKey string

	// Client is the HTTP client used to make API requests.
	Client *http.Client

	// BaseURL is the root endpoint for Massive APIs.
	BaseURL string

	// secondary is an optional fallback provider.
	secondary Provider

	// sleep waits out a rate limit; replaced in tests.
	sleep func(time.Duration)
}

// massiveAggsResp is the aggregates (bars) response body.
type massiveAggsResp struct {
	Ticker  string `json:"ticker"`
	Status  string `json:"status"`
	Results []struct {
		Open      float64 `json:"o"`
		Close     float64 `json:"c"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Volume    float64 `json:"v"`
		Timestamp int64   `json:"t"` // epoch millis
	} `json:"results"`
}

// NewMassiveDataProvider constructs a Massive-backed data provider with an
// HTTP client tuned for the aggregates endpoints.
func NewMassiveDataProvider(apiKey string) *massiveDataProvider {
	logger.Infof("initializing Massive data provider")

	return &massiveDataProvider{
		APIKey: apiKey,
		Client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		BaseURL: defaultMassiveBaseURL,
		sleep:   time.Sleep,
	}
}

// WithSecondary sets the provider consulted when a Massive lookup fails.
func (massiveDataProv *massiveDataProvider) WithSecondary(p Provider) *massiveDataProvider {
	massiveDataProv.secondary = p
	return massiveDataProv
}

// Secondary returns the configured secondary Provider, if any.
func (massiveDataProv *massiveDataProvider) Secondary() Provider {
	return massiveDataProv.secondary
}

// GetBars retrieves OHLCV bars for the given ticker and time range.
//
// Parameters:
//   - underlying: ticker symbol, or an O: option symbol
//   - fromDate, toDate: range, inclusive
//   - timespan: number of multiplier units per bar
//   - multiplier: aggregation unit (e.g., "day", "minute")
func (massiveDataProv *massiveDataProvider) GetBars(
	underlying string,
	fromDate, toDate time.Time,
	timespan int,
	multiplier string,
) ([]Bar, error) {

	logger.Debugf(
		"fetching bars: %s from=%s to=%s span=%d%s",
		underlying, fromDate.Format(time.DateOnly), toDate.Format(time.DateOnly), timespan, multiplier,
	)

	from, to := fromDate.Format(time.DateOnly), toDate.Format(time.DateOnly)
	if multiplier == "minute" {
		// minute aggregates accept epoch millis for intraday windows
		from, to = fmt.Sprint(fromDate.UnixMilli()), fmt.Sprint(toDate.UnixMilli())
	}

	u, err := url.Parse(fmt.Sprintf(
		"%s/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		massiveDataProv.BaseURL, url.PathEscape(underlying), timespan, multiplier, from, to,
	))
	if err != nil {
		return nil, fmt.Errorf("building bars url: %w", err)
	}
	query := u.Query()
	query.Set("adjusted", "true")
	query.Set("sort", "asc")
	query.Set("limit", "50000")
	query.Set("apiKey", massiveDataProv.APIKey)
	u.RawQuery = query.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+massiveDataProv.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := massiveDataProv.processGetRequest(req)
	if err != nil {
		logger.Errorf("bars request failed for %s: %v", underlying, err)
		return nil, fmt.Errorf("massive api request failed: %w", err)
	}
	defer resp.Body.Close()

	var body massiveAggsResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing massive response: %w", err)
	}

	logger.Tracef("bars received: %d records", len(body.Results))

	out := make([]Bar, 0, len(body.Results))
	for _, r := range body.Results {
		out = append(out, Bar{
			Date:  time.UnixMilli(r.Timestamp).UTC(),
			Open:  r.Open,
			High:  r.High,
			Low:   r.Low,
			Close: r.Close,
			Vol:   r.Volume,
		})
	}
	return out, nil
}

// GetSpotPrice returns the last daily close of underlying on or before asOf,
// looking back one week to skip weekends and holidays.
func (massiveDataProv *massiveDataProvider) GetSpotPrice(underlying string, asOf time.Time) (float64, error) {
	bars, err := massiveDataProv.GetBars(underlying, asOf.AddDate(0, 0, -7), asOf, 1, "day")
	if err == nil && len(bars) > 0 {
		return bars[len(bars)-1].Close, nil
	}
	if massiveDataProv.secondary != nil {
		logger.Tracef("delegating spot lookup for %s to secondary provider", underlying)
		return massiveDataProv.secondary.GetSpotPrice(underlying, asOf)
	}
	if err != nil {
		return 0, fmt.Errorf("fetch spot bars: %w", err)
	}
	return 0, fmt.Errorf("no daily bars for %s up to %s", underlying, asOf.Format(time.DateOnly))
}

// GetOptionPrice retrieves the price of an option at a specific date and time.
// It uses the close of the last minute bar in the five minutes before
// tradeDateTime and, failing that, the open of the first bar in the five
// minutes after.
func (massiveDataProv *massiveDataProvider) GetOptionPrice(
	underlying string,
	strike float64,
	expiryDate time.Time,
	optType string,
	tradeDateTime time.Time,
) (float64, error) {

	symbol := OptionSymbolFromParts(underlying, expiryDate, optType, strike)
	logger.Debugf("option price lookup: %s at %s", symbol, tradeDateTime.Format(time.RFC3339))

	bars, err := massiveDataProv.GetBars(symbol, tradeDateTime.Add(-5*time.Minute), tradeDateTime, 1, "minute")
	if err != nil {
		return massiveDataProv.optionFallback(underlying, strike, expiryDate, optType, tradeDateTime, err)
	}
	if len(bars) != 0 {
		return bars[len(bars)-1].Close, nil
	}

	logger.Tracef("no bars before trade time, trying forward window")
	bars, err = massiveDataProv.GetBars(symbol, tradeDateTime, tradeDateTime.Add(5*time.Minute), 1, "minute")
	if err != nil {
		return massiveDataProv.optionFallback(underlying, strike, expiryDate, optType, tradeDateTime, err)
	}
	if len(bars) == 0 {
		return massiveDataProv.optionFallback(underlying, strike, expiryDate, optType, tradeDateTime,
			fmt.Errorf("no option bars found for %s on %s", symbol, tradeDateTime.Format("2006-01-02 15:04")))
	}
	return bars[0].Open, nil
}

func (massiveDataProv *massiveDataProvider) optionFallback(
	underlying string,
	strike float64,
	expiryDate time.Time,
	optType string,
	tradeDateTime time.Time,
	cause error,
) (float64, error) {
	if massiveDataProv.secondary != nil {
		logger.Tracef("delegating option price to secondary provider: %v", cause)
		return massiveDataProv.secondary.GetOptionPrice(underlying, strike, expiryDate, optType, tradeDateTime)
	}
	return 0, fmt.Errorf("fetch option bars: %w", cause)
}

// processGetRequest executes an HTTP GET request with rate-limit handling.
//
// Behavior:
//   - Retries up to maxRateLimitRetries times on HTTP 429
//   - Sleeps until the next minute boundary between retries
//   - Returns the response on success (<400)
//   - Returns an error carrying the API message for other status codes
func (massiveDataProv *massiveDataProvider) processGetRequest(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := massiveDataProv.Client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 400 {
			return resp, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			resp.Body.Close()

			now := time.Now()
			wait := time.Until(now.Truncate(time.Minute).Add(time.Minute))
			logger.Infof("rate limit hit, sleeping for %s", wait)
			massiveDataProv.sleep(wait)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		var dbg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &dbg)
		return nil, fmt.Errorf("massive returned status %d: %s", resp.StatusCode, dbg.Message)
	}
}
