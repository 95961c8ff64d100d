package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/backtest"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backtest.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "QUOTE_DIR", "TUSHARE_TOKEN",
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_BASE_URL", "ALPACA_DATA_URL",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/bt/data"
  sqlite_path: "/tmp/bt/bt.db"
  quote_dir: "/tmp/bt/quotes"
server:
  host: "127.0.0.1"
  port: 9000
tushare:
  token: "yaml-token"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
logging:
  level: "debug"
  format: "text"
gather:
  us_daily:
    start_date: "2020-01-01"
    symbols: [AAPL, MSFT]
    rate_limit_per_min: 100
  cn_daily:
    start_date: "20200101"
    rate_limit_per_min: 60
backtest:
  initial_capital: 50000
  start_date: "2021-01-04"
  end_date: "20211231"
  commission_rate: 0.001
  slippage_rate: 0.0005
  strategy: sma-cross
  params:
    short: 3
    long: 10
  symbol: 600000.SH
  market: cn
  source: quotes
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/bt/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/bt/data")
	}
	if cfg.Storage.QuoteDir != "/tmp/bt/quotes" {
		t.Errorf("Storage.QuoteDir = %q, want %q", cfg.Storage.QuoteDir, "/tmp/bt/quotes")
	}

	// -- Server --
	if got := cfg.Server.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Server.Addr() = %q, want %q", got, "127.0.0.1:9000")
	}

	// -- Credentials --
	if cfg.Tushare.Token != "yaml-token" {
		t.Errorf("Tushare.Token = %q, want %q", cfg.Tushare.Token, "yaml-token")
	}
	if cfg.Tushare.BaseURL != "https://api.tushare.pro" {
		t.Errorf("Tushare.BaseURL = %q, want the default", cfg.Tushare.BaseURL)
	}
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}

	// -- Gather --
	if got := cfg.Gather.USDaily.Symbols; len(got) != 2 || got[1] != "MSFT" {
		t.Errorf("Gather.USDaily.Symbols = %v, want [AAPL MSFT]", got)
	}
	if cfg.Gather.USDaily.BatchSize != 100 {
		t.Errorf("Gather.USDaily.BatchSize = %d, want default 100", cfg.Gather.USDaily.BatchSize)
	}
	if cfg.Gather.CNDaily.RateLimitPerMin != 60 {
		t.Errorf("Gather.CNDaily.RateLimitPerMin = %d, want 60", cfg.Gather.CNDaily.RateLimitPerMin)
	}

	// -- Backtest --
	req, err := cfg.Backtest.Request()
	if err != nil {
		t.Fatalf("Request(): %v", err)
	}
	if req.Strategy != "sma-cross" || req.Symbol != "600000.SH" || req.Market != "cn" {
		t.Errorf("request = %+v", req)
	}
	if req.Params.Int("short", 0) != 3 || req.Params.Int("long", 0) != 10 {
		t.Errorf("params = %v, want short=3 long=10", req.Params)
	}
	wantStart := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)
	if !req.Config.StartDate.Equal(wantStart) || !req.Config.EndDate.Equal(wantEnd) {
		t.Errorf("window = %v..%v, want %v..%v", req.Config.StartDate, req.Config.EndDate, wantStart, wantEnd)
	}
	if req.Config.InitialCapital != 50000 || req.Config.CommissionRate != 0.001 || req.Config.SlippageRate != 0.0005 {
		t.Errorf("run config = %+v", req.Config)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("request from config does not validate: %v", err)
	}
	if cfg.Backtest.Source != SourceQuotes {
		t.Errorf("Backtest.Source = %q, want %q", cfg.Backtest.Source, SourceQuotes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
tushare:
  token: "yaml-token"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("TUSHARE_TOKEN", "env-token")
	t.Setenv("QUOTE_DIR", "/env/quotes")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Tushare.Token != "env-token" {
		t.Errorf("Tushare.Token = %q, want %q (env override)", cfg.Tushare.Token, "env-token")
	}
	if cfg.Storage.QuoteDir != "/env/quotes" {
		t.Errorf("Storage.QuoteDir = %q, want %q (env override)", cfg.Storage.QuoteDir, "/env/quotes")
	}

	// The SDK's canonical names win over ours.
	t.Setenv("APCA_API_KEY_ID", "apca-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "apca-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "apca-key")
	}
}

func TestLoadOrDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Backtest.InitialCapital != 100000 || cfg.Backtest.Strategy != "ma-trend" {
		t.Errorf("defaults = %+v", cfg.Backtest)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want env override warn", cfg.Logging.Level)
	}

	bad := writeConfig(t, "backtest: [not, a, map]\n")
	if _, err := LoadOrDefault(bad); err == nil {
		t.Error("LoadOrDefault on malformed YAML succeeded, want error")
	}
}

func TestPath(t *testing.T) {
	t.Setenv("BACKTEST_CONFIG", "")
	if got := Path(); got != DefaultPath {
		t.Errorf("Path() = %q, want %q", got, DefaultPath)
	}
	t.Setenv("BACKTEST_CONFIG", "/etc/bt.yaml")
	if got := Path(); got != "/etc/bt.yaml" {
		t.Errorf("Path() = %q, want /etc/bt.yaml", got)
	}
}

func TestRunConfigBadDate(t *testing.T) {
	_, err := BacktestConfig{InitialCapital: 1, StartDate: "01/02/2020"}.RunConfig()
	if !errors.Is(err, backtest.ErrInvalidConfig) {
		t.Errorf("RunConfig error = %v, want ErrInvalidConfig", err)
	}
}

func TestRequestNormalizesCNSymbol(t *testing.T) {
	tests := []struct {
		market, symbol, want string
	}{
		{"cn", "600000", "600000.SH"},
		{"cn", "000001", "000001.SZ"},
		{"cn", "600000.SH", "600000.SH"},
		{"us", "aapl", "aapl"},
	}
	for _, tt := range tests {
		b := Default().Backtest
		b.Market, b.Symbol = tt.market, tt.symbol
		req, err := b.Request()
		if err != nil {
			t.Fatalf("Request(): %v", err)
		}
		if req.Symbol != tt.want {
			t.Errorf("%s %q: symbol = %q, want %q", tt.market, tt.symbol, req.Symbol, tt.want)
		}
	}
}
