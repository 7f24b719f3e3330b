package data

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Provider supplies the market observations needed to imply a volatility.
type Provider interface {
	Secondary() Provider
	GetBars(underlying string, fromDate, toDate time.Time, timespan int, multiplier string) ([]Bar, error)
	GetSpotPrice(underlying string, asOf time.Time) (float64, error)
	GetOptionPrice(underlying string, strike float64, expiryDate time.Time, optType string, tradeDateTime time.Time) (float64, error)
}

// Bar simplified OHLC
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
	Vol   float64
}

// YearsBetween returns the ACT/365 year fraction from from to to.
func YearsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / (365.0 * 24.0)
}

// IsCallType reports whether optType names a call ("call"/"c"), and fails
// for anything that is neither a call nor a put.
func IsCallType(optType string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(optType)) {
	case "call", "c":
		return true, nil
	case "put", "p":
		return false, nil
	}
	return false, fmt.Errorf("unknown option type %q", optType)
}

// OptionSymbolFromParts: OCC-like formatter
func OptionSymbolFromParts(underlying string, expiryDate time.Time, optionType string, strike float64) string {
	// OCC: <root><YYMMDD><C|P><strike*1000 padded to 8 digits>
	expDt := expiryDate.UTC().Format("060102")
	optType := "C"
	if isCall, err := IsCallType(optionType); err == nil && !isCall {
		optType = "P"
	}
	strikeInt := int(math.Round(strike * 1000))
	return fmt.Sprintf("O:%s%s%s%08d", strings.ToUpper(underlying), expDt, optType, strikeInt)
}
