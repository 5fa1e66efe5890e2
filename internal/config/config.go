// Package config loads the exchange core configuration from a YAML file
// with .env and environment-variable overrides. Fee rates and liquidity
// floors are configuration, not compiled-in constants, so the same core can
// run under different fee/floor regimes.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Market  MarketConfig  `yaml:"market"`
	Risk    RiskConfig    `yaml:"risk"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// MarketConfig controls pricing parameters.
type MarketConfig struct {
	FeeRate        string `yaml:"fee_rate"`        // fraction of cash taken as fee, e.g. "0.02"
	LiquidityFloor string `yaml:"liquidity_floor"` // minimum seed reserve per outcome
}

// RiskConfig controls position limits.
type RiskConfig struct {
	MaxPerMarket string `yaml:"max_per_market"` // max shares held in one market
	MaxTotal     string `yaml:"max_total"`      // max shares held across the book
}

// StorageConfig controls persistence backends.
type StorageConfig struct {
	DatabaseURL     string `yaml:"database_url"` // empty → in-memory store
	RedisURL        string `yaml:"redis_url"`    // empty → no cache layer
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// LogConfig controls the format and level of logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads configuration from the YAML file at path (missing file is fine,
// defaults apply) and the .env file if present. Environment variables
// override both.
func Load(path string) (*Config, error) {
	// Load .env if present (silence the error if there is no file).
	_ = godotenv.Load()

	var cfg Config
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if _, err := decimal.NewFromString(cfg.Market.FeeRate); err != nil {
		return nil, fmt.Errorf("config.Load: fee_rate %q: %w", cfg.Market.FeeRate, err)
	}
	if _, err := decimal.NewFromString(cfg.Market.LiquidityFloor); err != nil {
		return nil, fmt.Errorf("config.Load: liquidity_floor %q: %w", cfg.Market.LiquidityFloor, err)
	}

	return &cfg, nil
}

// FeeRate returns the fee rate as a decimal.
func (c *Config) FeeRate() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Market.FeeRate)
	return d
}

// LiquidityFloor returns the per-outcome seed reserve as a decimal.
func (c *Config) LiquidityFloor() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Market.LiquidityFloor)
	return d
}

// MaxPerMarket returns the per-market share cap as a decimal.
func (c *Config) MaxPerMarket() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Risk.MaxPerMarket)
	return d
}

// MaxTotal returns the whole-book share cap as a decimal.
func (c *Config) MaxTotal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Risk.MaxTotal)
	return d
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Storage.RedisURL = v
	}
	if v := os.Getenv("FEE_RATE"); v != "" {
		cfg.Market.FeeRate = v
	}
	if v := os.Getenv("LIQUIDITY_FLOOR"); v != "" {
		cfg.Market.LiquidityFloor = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Market.FeeRate == "" {
		cfg.Market.FeeRate = "0.02"
	}
	if cfg.Market.LiquidityFloor == "" {
		cfg.Market.LiquidityFloor = "500"
	}
	if cfg.Risk.MaxPerMarket == "" {
		cfg.Risk.MaxPerMarket = "10000"
	}
	if cfg.Risk.MaxTotal == "" {
		cfg.Risk.MaxTotal = "50000"
	}
	if cfg.Storage.CacheTTLSeconds <= 0 {
		cfg.Storage.CacheTTLSeconds = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
