package api

import (
	"github.com/Svanik-yan/trading-backtest/internal/backtest"
	"github.com/Svanik-yan/trading-backtest/internal/config"
	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

// BacktestRequest is the body of POST /api/v1/backtests. Fields left out
// of the body take the server's configured defaults, except params, which
// are only ever taken from the request.
type BacktestRequest = config.BacktestConfig

// CompareRequest is the body of POST /api/v1/backtests/compare: the shared
// run settings plus the strategies to run side by side.
type CompareRequest struct {
	config.BacktestConfig
	Strategies []string `json:"strategies"`
}

// BacktestResponse is returned by POST /api/v1/backtests.
type BacktestResponse struct {
	RunID  string           `json:"run_id"`
	Result *backtest.Result `json:"result"`
}

// CompareResponse is returned by POST /api/v1/backtests/compare. Results
// are in the order the strategies were requested.
type CompareResponse struct {
	RunID   string             `json:"run_id"`
	Results []*backtest.Result `json:"results"`
}

// StrategiesResponse lists the registered strategy names.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// SymbolsResponse lists the symbols stored for a market.
type SymbolsResponse struct {
	Market  string   `json:"market"`
	Symbols []string `json:"symbols"`
}

// InstrumentsResponse lists the stored instrument reference for a market.
type InstrumentsResponse struct {
	Market      string              `json:"market"`
	Instruments []domain.Instrument `json:"instruments"`
}

// BarsResponse is returned by GET /api/v1/bars.
type BarsResponse struct {
	Symbol string       `json:"symbol"`
	Market string       `json:"market"`
	Bars   []domain.Bar `json:"bars"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
