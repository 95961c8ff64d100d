// Package config loads the YAML configuration shared by the backtest
// commands and applies environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Svanik-yan/trading-backtest/internal/backtest"
	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/store"
	"github.com/Svanik-yan/trading-backtest/internal/strategy"
	"github.com/Svanik-yan/trading-backtest/internal/util"
)

// DefaultPath is the configuration file read when BACKTEST_CONFIG is unset.
const DefaultPath = "config/backtest.yaml"

// Data sources a backtest can read bars from.
const (
	SourceParquet = store.SourceParquet
	SourceQuotes  = store.SourceQuotes
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Tushare  Tushare        `yaml:"tushare"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Backtest BacktestConfig `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	QuoteDir   string `yaml:"quote_dir"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port, defaulting the port to 8080.
func (s Server) Addr() string {
	port := s.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", s.Host, port)
}

// Tushare holds the credential and endpoint for the Tushare Pro API.
type Tushare struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"` // trading API, used for the market calendar
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls data gathering for each market.
type GatherConfig struct {
	USDaily GatherJobConfig `yaml:"us_daily"`
	CNDaily GatherJobConfig `yaml:"cn_daily"`
}

// GatherJobConfig holds parameters for a single data gathering job.
type GatherJobConfig struct {
	StartDate       string   `yaml:"start_date"`
	Symbols         []string `yaml:"symbols"`
	BatchSize       int      `yaml:"batch_size"`
	MaxWorkers      int      `yaml:"max_workers"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
}

// BacktestConfig holds the defaults for a backtest run. The API decodes
// request bodies into the same struct.
type BacktestConfig struct {
	InitialCapital float64            `yaml:"initial_capital" json:"initial_capital"`
	StartDate      string             `yaml:"start_date" json:"start_date"`
	EndDate        string             `yaml:"end_date" json:"end_date"`
	CommissionRate float64            `yaml:"commission_rate" json:"commission_rate"`
	SlippageRate   float64            `yaml:"slippage_rate" json:"slippage_rate"`
	Strategy       string             `yaml:"strategy" json:"strategy"`
	Params         map[string]float64 `yaml:"params" json:"params,omitempty"`
	Symbol         string             `yaml:"symbol" json:"symbol"`
	Market         string             `yaml:"market" json:"market"`
	Source         string             `yaml:"source" json:"-"`
}

// RunConfig converts the section to an engine Config, parsing the dates.
func (b BacktestConfig) RunConfig() (backtest.Config, error) {
	cfg := backtest.Config{
		InitialCapital: b.InitialCapital,
		CommissionRate: b.CommissionRate,
		SlippageRate:   b.SlippageRate,
	}
	var err error
	if b.StartDate != "" {
		if cfg.StartDate, err = util.ParseDate(b.StartDate); err != nil {
			return cfg, fmt.Errorf("%w: start_date: %v", backtest.ErrInvalidConfig, err)
		}
	}
	if b.EndDate != "" {
		if cfg.EndDate, err = util.ParseDate(b.EndDate); err != nil {
			return cfg, fmt.Errorf("%w: end_date: %v", backtest.ErrInvalidConfig, err)
		}
	}
	return cfg, nil
}

// Request builds a runner request from the section. A bare CN code such as
// 600000 is expanded to its exchange-suffixed form.
func (b BacktestConfig) Request() (backtest.Request, error) {
	cfg, err := b.RunConfig()
	if err != nil {
		return backtest.Request{}, err
	}
	symbol := b.Symbol
	if b.Market == string(domain.MarketCN) {
		symbol = domain.NormalizeCNSymbol(symbol)
	}
	return backtest.Request{
		Strategy: b.Strategy,
		Params:   strategy.Params(b.Params),
		Symbol:   symbol,
		Market:   b.Market,
		Config:   cfg,
	}, nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/backtest.db",
			QuoteDir:   "data/quotes",
		},
		Server:  Server{Port: 8080},
		Tushare: Tushare{BaseURL: "https://api.tushare.pro"},
		Alpaca:  Alpaca{BaseURL: "https://paper-api.alpaca.markets", Feed: "sip"},
		Logging: Logging{Level: "info", Format: "json"},
		Gather: GatherConfig{
			CNDaily: GatherJobConfig{RateLimitPerMin: 200},
			USDaily: GatherJobConfig{BatchSize: 100, MaxWorkers: 4, RateLimitPerMin: 200},
		},
		Backtest: BacktestConfig{
			InitialCapital: 100000,
			CommissionRate: 0.0003,
			Strategy:       "ma-trend",
			Market:         "cn",
			Source:         SourceParquet,
		},
	}
}

// Path returns BACKTEST_CONFIG when set, DefaultPath otherwise.
func Path() string {
	if v := os.Getenv("BACKTEST_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path on top of
// Default(), and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default() with
// environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	cfg = Default()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("QUOTE_DIR"); v != "" {
		cfg.Storage.QuoteDir = v
	}

	if v := os.Getenv("TUSHARE_TOKEN"); v != "" {
		cfg.Tushare.Token = v
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

	// Standard Alpaca env vars (highest priority, the names the SDK reads).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
