// Package config loads the knobs enumerated in spec.md §6: a YAML file
// (grounded on newplayman-market-maker-go/config/load.go) supplies
// defaults, environment variables (loaded via .env by godotenv, as the
// teacher's cmd/api/main.go does) override them field by field.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is every runtime knob the core reads. Field names track spec.md
// §6 verbatim so the mapping between doc and code is obvious.
type Config struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	HTTPPort       string `yaml:"http_port"`
	APIKey         string `yaml:"api_key"`
	APIKeyDisabled bool   `yaml:"api_key_disabled"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsAddr string `yaml:"metrics_addr"`

	CommissionRate decimal.Decimal `yaml:"commission_rate"`
	CashAsset      string          `yaml:"cash_asset"`

	TickLoopSec   int `yaml:"tick_loop_sec"`
	PruneEveryMin int `yaml:"prune_every_min"`

	StaleAfterH  int `yaml:"stale_after_h"`
	ExpireAfterH int `yaml:"expire_after_h"`

	MinTimeAnswerOrderMarket time.Duration `yaml:"-"`
	MaxTimeAnswerOrderMarket time.Duration `yaml:"-"`
	MinTimeAnswerOrderMarketSec float64 `yaml:"min_time_answer_order_market"`
	MaxTimeAnswerOrderMarketSec float64 `yaml:"max_time_answer_order_market"`

	SigmaFillMarketOrder decimal.Decimal `yaml:"sigma_fill_market_order"`

	// StaleTickerMaxAge is the optional staleness horizon from spec.md
	// §4.2/§9 Open Question (b); zero disables the check (default policy).
	StaleTickerMaxAge time.Duration `yaml:"-"`
	StaleTickerMaxAgeSec float64 `yaml:"stale_ticker_max_age_sec"`
}

// Default returns the documented spec.md §6 defaults.
func Default() Config {
	return Config{
		RedisAddr:                   "localhost:6379",
		RedisDB:                     0,
		HTTPPort:                    "8000",
		APIKey:                      "invalid-key",
		LogLevel:                    "info",
		LogFormat:                   "json",
		MetricsAddr:                 ":9090",
		CommissionRate:              decimal.NewFromFloat(0.00075),
		CashAsset:                   "USDT",
		TickLoopSec:                 30,
		PruneEveryMin:               60,
		StaleAfterH:                 24,
		ExpireAfterH:                24,
		MinTimeAnswerOrderMarketSec: 3,
		MaxTimeAnswerOrderMarketSec: 5,
		SigmaFillMarketOrder:        decimal.NewFromFloat(0.1),
		StaleTickerMaxAgeSec:        0,
	}
}

// Load builds a Config by layering: built-in defaults < YAML file at path
// (if non-empty and present) < environment variables (loaded from .env if
// present, then read via os.Getenv) — the same precedence order the
// market-maker-go config loader documents.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnvOverrides(&cfg)
	cfg.derive()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	intv := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	floatv := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	decv := func(key string, dst *decimal.Decimal) {
		if v := os.Getenv(key); v != "" {
			if d, err := decimal.NewFromString(v); err == nil {
				*dst = d
			}
		}
	}
	boolv := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "1" || v == "true" || v == "yes"
		}
	}

	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	intv("REDIS_DB", &cfg.RedisDB)
	str("PORT", &cfg.HTTPPort)
	str("API_KEY", &cfg.APIKey)
	boolv("TEST_ENV", &cfg.APIKeyDisabled)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("METRICS_ADDR", &cfg.MetricsAddr)
	decv("COMMISSION_RATE", &cfg.CommissionRate)
	str("CASH_ASSET", &cfg.CashAsset)
	intv("TICK_LOOP_SEC", &cfg.TickLoopSec)
	intv("PRUNE_EVERY_MIN", &cfg.PruneEveryMin)
	intv("STALE_AFTER_H", &cfg.StaleAfterH)
	intv("EXPIRE_AFTER_H", &cfg.ExpireAfterH)
	floatv("MIN_TIME_ANSWER_ORDER_MARKET", &cfg.MinTimeAnswerOrderMarketSec)
	floatv("MAX_TIME_ANSWER_ORDER_MARKET", &cfg.MaxTimeAnswerOrderMarketSec)
	decv("SIGMA_FILL_MARKET_ORDER", &cfg.SigmaFillMarketOrder)
	floatv("STALE_TICKER_MAX_AGE_SEC", &cfg.StaleTickerMaxAgeSec)
}

func (cfg *Config) derive() {
	cfg.MinTimeAnswerOrderMarket = secondsToDuration(cfg.MinTimeAnswerOrderMarketSec)
	cfg.MaxTimeAnswerOrderMarket = secondsToDuration(cfg.MaxTimeAnswerOrderMarketSec)
	cfg.StaleTickerMaxAge = secondsToDuration(cfg.StaleTickerMaxAgeSec)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ExpireAfter returns the OPEN-order expiry threshold as a Duration.
func (cfg Config) ExpireAfter() time.Duration { return time.Duration(cfg.ExpireAfterH) * time.Hour }

// StaleAfter returns the terminal-order deletion threshold as a Duration.
func (cfg Config) StaleAfter() time.Duration { return time.Duration(cfg.StaleAfterH) * time.Hour }

// TickInterval returns the tick-loop scheduler interval as a Duration.
func (cfg Config) TickInterval() time.Duration { return time.Duration(cfg.TickLoopSec) * time.Second }

// PruneInterval returns the prune-loop scheduler interval as a Duration.
func (cfg Config) PruneInterval() time.Duration { return time.Duration(cfg.PruneEveryMin) * time.Minute }

// Validate rejects configurations that would make the engine's
// invariants impossible to hold.
func (cfg Config) Validate() error {
	if cfg.MinTimeAnswerOrderMarketSec < 0 || cfg.MaxTimeAnswerOrderMarketSec < cfg.MinTimeAnswerOrderMarketSec {
		return fmt.Errorf("config: invalid market order latency window [%v,%v]",
			cfg.MinTimeAnswerOrderMarketSec, cfg.MaxTimeAnswerOrderMarketSec)
	}
	if cfg.CommissionRate.IsNegative() {
		return fmt.Errorf("config: commission_rate must be >= 0")
	}
	if cfg.SigmaFillMarketOrder.IsNegative() {
		return fmt.Errorf("config: sigma_fill_market_order must be >= 0")
	}
	if cfg.CashAsset == "" {
		return fmt.Errorf("config: cash_asset must not be empty")
	}
	return nil
}
