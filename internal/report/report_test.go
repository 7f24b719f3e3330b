package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contactkeval/option-impvol/internal/quote"
	"github.com/contactkeval/option-impvol/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() quote.Result {
	return quote.Result{
		Underlying: "SPY",
		Symbol:     "O:SPY250117P00580000",
		Strike:     580,
		Expiry:     time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC),
		At:         time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC),
		Spot:       581.39,
		Price:      7.254999,
		Maturity:   0.04,
		Rate:       0.05,
		ImpliedVol: 0.1234567,
		Vega:       31.4159,
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeaders, rows[0])
	assert.Equal(t, []string{
		"O:SPY250117P00580000", "SPY", "put", "580.0000", "2025-01-17", "2025-01-02T15:00:00Z",
		"581.3900", "7.2550", "0.040000", "0.050000", "0.000000", "0.123457", "31.4159",
	}, rows[1])
}

func TestWriteCSVGolden(t *testing.T) {
	call := sampleResult()
	call.Symbol = "O:SPY250117C00590000"
	call.IsCall = true
	call.Strike = 590
	call.Price = 3.1
	call.ImpliedVol = 0.118
	call.Vega = 28.5

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult(), call))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	testutil.CompareWithGolden(t, "strip_csv", rows)
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf))
	assert.Equal(t, "symbol,underlying,type,strike,expiry,quote_time,spot,price,maturity,rate,dividend,implied_vol,vega\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []quote.Result{sampleResult()}))

	var got []quote.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "O:SPY250117P00580000", got[0].Symbol)
	assert.Contains(t, buf.String(), `"implied_vol": 0.1234567`)
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteFiles([]quote.Result{sampleResult()}, dir))

	for _, name := range []string{"quotes.json", "quotes.csv"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}
