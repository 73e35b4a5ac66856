// Package config loads the tradewind YAML configuration and applies
// environment variable overrides.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for tradewind.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Backtest BacktestConfig `yaml:"backtest"`
	Screener ScreenerConfig `yaml:"screener"`
	Capture  CaptureConfig  `yaml:"capture"`
}

// Storage holds paths and backend selection for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`    // parquet bar dataset root
	LedgerDir  string `yaml:"ledger_dir"`  // CSV ledger files
	SQLitePath string `yaml:"sqlite_path"` // ledger database (backend: sqlite)
	Backend    string `yaml:"backend"`     // "csv" (default) or "sqlite"
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BacktestConfig defines simulation parameters.
type BacktestConfig struct {
	StartDate         string  `yaml:"start_date"`
	EndDate           string  `yaml:"end_date"`
	LookbackYears     int     `yaml:"lookback_years"`
	StartingBalance   float64 `yaml:"starting_balance"`
	FeeFraction       float64 `yaml:"fee_fraction"`
	InitialStopLoss   float64 `yaml:"initial_stop_loss_fraction"`
	TrailingStopLoss  float64 `yaml:"trailing_stop_loss_fraction"`
	ReserveFraction   float64 `yaml:"reserve_fraction"`
	MaxPendingAgeDays int     `yaml:"max_pending_age_days"` // 0 = retry forever
}

// ScreenerConfig defines candidate selection parameters.
type ScreenerConfig struct {
	UniverseFile        string  `yaml:"universe_file"`
	Benchmark           string  `yaml:"benchmark"`
	PerformanceQuantile float64 `yaml:"performance_quantile"` // top percent kept, e.g. 30
}

// CaptureConfig holds parameters for the daily-bar capture job.
type CaptureConfig struct {
	StartDate       string `yaml:"start_date"`
	BatchSize       int    `yaml:"batch_size"`
	MaxWorkers      int    `yaml:"max_workers"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into
// a Config struct, applies defaults, and then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyDefaults fills in zero-valued fields that have sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "csv"
	}
	if cfg.Backtest.LookbackYears == 0 {
		cfg.Backtest.LookbackYears = 1
	}
	if cfg.Backtest.StartingBalance == 0 {
		cfg.Backtest.StartingBalance = 1000
	}
	if cfg.Backtest.FeeFraction == 0 {
		cfg.Backtest.FeeFraction = 0.05
	}
	if cfg.Backtest.InitialStopLoss == 0 {
		cfg.Backtest.InitialStopLoss = 0.9
	}
	if cfg.Backtest.TrailingStopLoss == 0 {
		cfg.Backtest.TrailingStopLoss = 0.8
	}
	if cfg.Backtest.ReserveFraction == 0 {
		cfg.Backtest.ReserveFraction = 0.5
	}
	if cfg.Screener.Benchmark == "" {
		cfg.Screener.Benchmark = "SPY"
	}
	if cfg.Screener.PerformanceQuantile == 0 {
		cfg.Screener.PerformanceQuantile = 30
	}
	if cfg.Capture.BatchSize == 0 {
		cfg.Capture.BatchSize = 500
	}
	if cfg.Capture.MaxWorkers == 0 {
		cfg.Capture.MaxWorkers = 4
	}
	if cfg.Capture.RateLimitPerMin == 0 {
		cfg.Capture.RateLimitPerMin = 200
	}
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("LEDGER_DIR"); v != "" {
		cfg.Storage.LedgerDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
