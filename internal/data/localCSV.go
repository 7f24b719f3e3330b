package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/contactkeval/option-impvol/internal/logger"
)

// localFileDataProvider implements Data Provider from local CSV files.
//
// Layout under dir:
//
//	bars/<UNDERLYING>.csv  date,open,high,low,close,volume (date as YYYY-MM-DD)
//	options.csv            symbol,timestamp,price (OCC symbol, RFC3339 timestamp)
type localFileDataProvider struct {
	dir       string
	secondary Provider

	loadOnce sync.Once
	loadErr  error
	quotes   map[string][]optionQuote
}

type optionQuote struct {
	at    time.Time
	price float64
}

// NewLocalFileDataProvider convenience constructor.
func NewLocalFileDataProvider(dir string, secondary Provider) *localFileDataProvider {
	return &localFileDataProvider{dir: dir, secondary: secondary}
}

func (localFileDataProv *localFileDataProvider) Secondary() Provider {
	return localFileDataProv.secondary
}

func (localFileDataProv *localFileDataProvider) GetBars(underlying string, fromDate, toDate time.Time, timespan int, multiplier string) ([]Bar, error) {
	bars, err := localFileDataProv.readBars(underlying)
	if err != nil {
		if localFileDataProv.secondary != nil {
			return localFileDataProv.secondary.GetBars(underlying, fromDate, toDate, timespan, multiplier)
		}
		return nil, err
	}

	from := fromDate.Truncate(24 * time.Hour)
	out := bars[:0]
	for _, b := range bars {
		if b.Date.Before(from) || b.Date.After(toDate) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (localFileDataProv *localFileDataProvider) GetSpotPrice(underlying string, asOf time.Time) (float64, error) {
	bars, err := localFileDataProv.GetBars(underlying, asOf.AddDate(0, 0, -7), asOf, 1, "day")
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		if localFileDataProv.secondary != nil {
			return localFileDataProv.secondary.GetSpotPrice(underlying, asOf)
		}
		return 0, fmt.Errorf("no local bars for %s up to %s", underlying, asOf.Format(time.DateOnly))
	}
	return bars[len(bars)-1].Close, nil
}

// GetOptionPrice returns the latest recorded quote at or before tradeDateTime.
func (localFileDataProv *localFileDataProvider) GetOptionPrice(underlying string, strike float64, expiryDate time.Time, optType string, tradeDateTime time.Time) (float64, error) {
	localFileDataProv.loadOnce.Do(func() {
		localFileDataProv.quotes, localFileDataProv.loadErr = readOptionQuotes(filepath.Join(localFileDataProv.dir, "options.csv"))
	})

	symbol := OptionSymbolFromParts(underlying, expiryDate, optType, strike)
	if localFileDataProv.loadErr == nil {
		var (
			best  optionQuote
			found bool
		)
		for _, q := range localFileDataProv.quotes[symbol] {
			if q.at.After(tradeDateTime) {
				continue
			}
			if !found || q.at.After(best.at) {
				best, found = q, true
			}
		}
		if found {
			return best.price, nil
		}
	}

	if localFileDataProv.secondary != nil {
		return localFileDataProv.secondary.GetOptionPrice(underlying, strike, expiryDate, optType, tradeDateTime)
	}
	if localFileDataProv.loadErr != nil {
		return 0, localFileDataProv.loadErr
	}
	return 0, fmt.Errorf("no local quote for %s at or before %s", symbol, tradeDateTime.Format(time.RFC3339))
}

func (localFileDataProv *localFileDataProvider) readBars(underlying string) ([]Bar, error) {
	path := filepath.Join(localFileDataProv.dir, "bars", strings.ToUpper(underlying)+".csv")
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(records))
	for i, row := range records {
		if len(row) < 6 {
			logger.Tracef("%s:%d: short row skipped", path, i+1)
			continue
		}
		date, err := time.Parse(time.DateOnly, strings.TrimSpace(row[0]))
		if err != nil {
			// header or malformed date
			continue
		}
		var vals [5]float64
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(strings.TrimSpace(row[j+1]), 64); err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %w", path, i+1, j+2, err)
			}
		}
		bars = append(bars, Bar{Date: date, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Vol: vals[4]})
	}
	return bars, nil
}

func readOptionQuotes(path string) (map[string][]optionQuote, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	quotes := make(map[string][]optionQuote)
	for i, row := range records {
		if len(row) < 3 {
			continue
		}
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(row[1]))
		if err != nil {
			// header or malformed timestamp
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: price: %w", path, i+1, err)
		}
		symbol := strings.TrimSpace(row[0])
		quotes[symbol] = append(quotes[symbol], optionQuote{at: at, price: price})
	}
	logger.Debugf("loaded local option quotes for %d symbols from %s", len(quotes), path)
	return quotes, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var records [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		records = append(records, row)
	}
	return records, nil
}
