// Package config loads application settings from the environment, overlaid
// by an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/contactkeval/option-impvol/internal/data"
	"github.com/contactkeval/option-impvol/internal/impliedvol"
	"github.com/contactkeval/option-impvol/internal/logger"
	"github.com/contactkeval/option-impvol/internal/rootfind"
	"gopkg.in/yaml.v2"
)

// DefaultFile is read when Load is given no path and the file exists.
const DefaultFile = "config.yaml"

// SolverConfig controls the implied volatility search.
type SolverConfig struct {
	InitialGuess  float64 `yaml:"initial_guess"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	MinVega       float64 `yaml:"min_vega"`
	Method        string  `yaml:"method"` // newton or bisection
	BracketLow    float64 `yaml:"bracket_low"`
	BracketHigh   float64 `yaml:"bracket_high"`
}

// MarketConfig holds the rates applied when a request leaves them out.
type MarketConfig struct {
	RiskFreeRate  float64 `yaml:"risk_free_rate"`
	DividendYield float64 `yaml:"dividend_yield"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// MassiveConfig represents Massive API configuration
type MassiveConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// DataConfig selects where quotes come from. LocalDir, when set, is consulted
// before Massive or the synthetic market.
type DataConfig struct {
	LocalDir  string               `yaml:"local_dir"`
	Synthetic data.SyntheticConfig `yaml:"synthetic"`
}

type Config struct {
	Solver  SolverConfig  `yaml:"solver"`
	Market  MarketConfig  `yaml:"market"`
	Logging logger.Config `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Massive MassiveConfig `yaml:"massive"`
	Data    DataConfig    `yaml:"data"`
}

// Load builds the configuration from environment defaults and then applies
// the YAML file at path. An empty path reads DefaultFile if it exists.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Solver: SolverConfig{
			InitialGuess:  getEnvFloat("IMPVOL_INITIAL_GUESS", 0.5),
			Tolerance:     getEnvFloat("IMPVOL_TOLERANCE", 1e-5),
			MaxIterations: getEnvInt("IMPVOL_MAX_ITERATIONS", 0),
			MinVega:       getEnvFloat("IMPVOL_MIN_VEGA", rootfind.DefaultMinDerivative),
			Method:        getEnv("IMPVOL_METHOD", string(impliedvol.Newton)),
			BracketLow:    getEnvFloat("IMPVOL_BRACKET_LOW", impliedvol.DefaultBracketLow),
			BracketHigh:   getEnvFloat("IMPVOL_BRACKET_HIGH", impliedvol.DefaultBracketHigh),
		},
		Market: MarketConfig{
			RiskFreeRate:  getEnvFloat("IMPVOL_RISK_FREE_RATE", 0.05),
			DividendYield: getEnvFloat("IMPVOL_DIVIDEND_YIELD", 0),
		},
		Logging: logger.Config{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Massive: MassiveConfig{
			APIKey:  getEnv("MASSIVE_API_KEY", os.Getenv("POLYGON_API_KEY")),
			BaseURL: getEnv("MASSIVE_BASE_URL", ""),
		},
		Data: DataConfig{
			LocalDir:  getEnv("IMPVOL_DATA_DIR", ""),
			Synthetic: data.DefaultSyntheticConfig,
		},
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		envKey := cfg.Massive.APIKey
		// Keys missing from the file keep their environment value.
		if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if cfg.Massive.APIKey == "YOUR_MASSIVE_API_KEY" {
			cfg.Massive.APIKey = envKey
		}
	}

	if _, err := impliedvol.ParseMethod(cfg.Solver.Method); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SolverFromConfig builds the implied volatility solver described by the
// solver section.
func (c *Config) SolverFromConfig() (impliedvol.Solver, error) {
	method, err := impliedvol.ParseMethod(c.Solver.Method)
	if err != nil {
		return impliedvol.Solver{}, err
	}
	return impliedvol.Solver{
		RootFinder: rootfind.Solver{
			MaxIterations: c.Solver.MaxIterations,
			MinDerivative: c.Solver.MinVega,
		},
		Method:      method,
		BracketLow:  c.Solver.BracketLow,
		BracketHigh: c.Solver.BracketHigh,
	}, nil
}

// Provider picks the data source: Massive when an API key is configured,
// otherwise the synthetic market. A local directory, if set, is tried first.
func (c *Config) Provider() data.Provider {
	var prov data.Provider
	if c.Massive.APIKey != "" {
		massive := data.NewMassiveDataProvider(c.Massive.APIKey)
		if c.Massive.BaseURL != "" {
			massive.BaseURL = c.Massive.BaseURL
		}
		prov = massive
	} else {
		logger.Infof("no Massive API key configured, using synthetic market data")
		prov = data.NewSyntheticProvider(c.Data.Synthetic)
	}
	if c.Data.LocalDir != "" {
		prov = data.NewLocalFileDataProvider(c.Data.LocalDir, prov)
	}
	return prov
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
