// Package report renders solved quotes as JSON or CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/contactkeval/option-impvol/internal/quote"
	"github.com/shopspring/decimal"
)

const (
	priceDecimals = 4
	volDecimals   = 6
)

var csvHeaders = []string{"symbol", "underlying", "type", "strike", "expiry", "quote_time", "spot", "price", "maturity", "rate", "dividend", "implied_vol", "vega"}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// WriteCSV writes a header and one row per result. Prices are fixed to four
// decimals, volatilities and year fractions to six.
func WriteCSV(w io.Writer, results ...quote.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return err
	}
	for _, r := range results {
		optType := "put"
		if r.IsCall {
			optType = "call"
		}
		row := []string{
			r.Symbol,
			r.Underlying,
			optType,
			fixed(r.Strike, priceDecimals),
			r.Expiry.Format(time.DateOnly),
			r.At.Format(time.RFC3339),
			fixed(r.Spot, priceDecimals),
			fixed(r.Price, priceDecimals),
			fixed(r.Maturity, volDecimals),
			fixed(r.Rate, volDecimals),
			fixed(r.Dividend, volDecimals),
			fixed(r.ImpliedVol, volDecimals),
			fixed(r.Vega, priceDecimals),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFiles writes quotes.json and quotes.csv into outdir.
func WriteFiles(results []quote.Result, outdir string) error {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return err
	}
	for name, write := range map[string]func(io.Writer) error{
		"quotes.json": func(w io.Writer) error { return WriteJSON(w, results) },
		"quotes.csv":  func(w io.Writer) error { return WriteCSV(w, results...) },
	} {
		f, err := os.Create(filepath.Join(outdir, name))
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
