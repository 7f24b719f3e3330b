package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contactkeval/option-impvol/internal/impliedvol"
	"github.com/contactkeval/option-impvol/internal/rootfind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"IMPVOL_INITIAL_GUESS", "IMPVOL_TOLERANCE", "IMPVOL_MAX_ITERATIONS", "IMPVOL_MIN_VEGA",
		"IMPVOL_METHOD", "IMPVOL_RISK_FREE_RATE", "IMPVOL_DIVIDEND_YIELD", "IMPVOL_DATA_DIR",
		"MASSIVE_API_KEY", "POLYGON_API_KEY", "MASSIVE_BASE_URL", "PORT", "LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Solver.InitialGuess)
	assert.Equal(t, 1e-5, cfg.Solver.Tolerance)
	assert.Equal(t, "newton", cfg.Solver.Method)
	assert.Equal(t, 0.05, cfg.Market.RiskFreeRate)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Massive.APIKey)
}

func TestLoadEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("IMPVOL_TOLERANCE", "1e-8")
	t.Setenv("IMPVOL_MAX_ITERATIONS", "50")
	t.Setenv("IMPVOL_RISK_FREE_RATE", "not-a-number")
	t.Setenv("POLYGON_API_KEY", "poly")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1e-8, cfg.Solver.Tolerance)
	assert.Equal(t, 50, cfg.Solver.MaxIterations)
	assert.Equal(t, 0.05, cfg.Market.RiskFreeRate, "unparsable values fall back to the default")
	assert.Equal(t, "poly", cfg.Massive.APIKey)
	assert.Equal(t, "9090", cfg.Server.Port)

	t.Setenv("MASSIVE_API_KEY", "massive")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "massive", cfg.Massive.APIKey)
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")

	path := writeConfig(t, `
solver:
  tolerance: 1.0e-9
  method: bisection
  bracket_high: 3
market:
  risk_free_rate: 0
  dividend_yield: 0.015
logging:
  level: debug
massive:
  api_key: YOUR_MASSIVE_API_KEY
data:
  synthetic:
    volatility: 0.4
    noise: 0.01
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1e-9, cfg.Solver.Tolerance)
	assert.Equal(t, 0.5, cfg.Solver.InitialGuess, "keys missing from the file keep their default")
	assert.Equal(t, "bisection", cfg.Solver.Method)
	assert.Equal(t, 3.0, cfg.Solver.BracketHigh)
	assert.Equal(t, 0.0, cfg.Market.RiskFreeRate, "an explicit zero rate applies")
	assert.Equal(t, 0.015, cfg.Market.DividendYield)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Empty(t, cfg.Massive.APIKey, "placeholder key is ignored")
	assert.Equal(t, 0.4, cfg.Data.Synthetic.Volatility)
	assert.Equal(t, 100.0, cfg.Data.Synthetic.Spot)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "solver:\n  tolerence: 1\n"))
	require.Error(t, err, "unknown keys are rejected")

	_, err = Load(writeConfig(t, "solver:\n  method: secant\n"))
	require.ErrorIs(t, err, impliedvol.ErrInvalidInput)

	t.Setenv("IMPVOL_METHOD", "brent")
	_, err = Load("")
	require.ErrorIs(t, err, impliedvol.ErrInvalidInput)
}

func TestSolverFromConfig(t *testing.T) {
	cfg := &Config{Solver: SolverConfig{
		MaxIterations: 25,
		MinVega:       1e-10,
		Method:        "bisection",
		BracketLow:    0.01,
		BracketHigh:   2,
	}}

	s, err := cfg.SolverFromConfig()
	require.NoError(t, err)
	assert.Equal(t, impliedvol.Solver{
		RootFinder:  rootfind.Solver{MaxIterations: 25, MinDerivative: 1e-10},
		Method:      impliedvol.Bisection,
		BracketLow:  0.01,
		BracketHigh: 2,
	}, s)

	cfg.Solver.Method = "halley"
	_, err = cfg.SolverFromConfig()
	require.Error(t, err)
}

func TestProviderWithoutKeyIsSynthetic(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	prov := cfg.Provider()
	spot, err := prov.GetSpotPrice("SPY", time.Now())
	require.NoError(t, err)
	assert.Equal(t, cfg.Data.Synthetic.Spot, spot)
	assert.Nil(t, prov.Secondary())
}
