package client

import "time"

// BacktestRequest is the body of a backtest run. Zero-valued fields take the
// server's configured defaults.
type BacktestRequest struct {
	Strategy       string             `json:"strategy,omitempty"`
	Params         map[string]float64 `json:"params,omitempty"`
	Symbol         string             `json:"symbol,omitempty"`
	Market         string             `json:"market,omitempty"`
	StartDate      string             `json:"start_date,omitempty"` // YYYY-MM-DD or YYYYMMDD
	EndDate        string             `json:"end_date,omitempty"`
	InitialCapital float64            `json:"initial_capital,omitempty"`
	CommissionRate float64            `json:"commission_rate,omitempty"`
	SlippageRate   float64            `json:"slippage_rate,omitempty"`
}

type compareRequest struct {
	BacktestRequest
	Strategies []string `json:"strategies"`
}

// Bar is one daily OHLCV bar.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount"`
}

// Trade is one simulated fill.
type Trade struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Side     string    `json:"side"`
	Price    float64   `json:"price"`
	Quantity int64     `json:"quantity"`
	Amount   float64   `json:"amount"`
	Fee      float64   `json:"fee"`
}

// Position is a holding left open at the end of a run.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	Cost     float64 `json:"cost"`
	Value    float64 `json:"value"`
	Profit   float64 `json:"profit"`
}

// EquityPoint is the end-of-day portfolio value.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// RoundTrip is a closed buy/sell pair matched first-in first-out.
type RoundTrip struct {
	Symbol     string    `json:"symbol"`
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	Quantity   int64     `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Profit     float64   `json:"profit"`
}

// Result is the performance report of one run. A ProfitFactor of -1 means
// there were winning round trips and no losing ones.
type Result struct {
	Strategy  string        `json:"strategy"`
	Trades    []Trade       `json:"trades"`
	Positions []Position    `json:"positions"`
	Cash      float64       `json:"cash"`
	Equity    []EquityPoint `json:"equity_curve"`

	TotalValue   float64 `json:"total_value"`
	TotalProfit  float64 `json:"total_profit"`
	ProfitRatio  float64 `json:"profit_ratio"`
	AnnualReturn float64 `json:"annual_return"`

	MaxDrawdown          float64 `json:"max_drawdown"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	SortinoRatio         float64 `json:"sortino_ratio"`
	CalmarRatio          float64 `json:"calmar_ratio"`
	Volatility           float64 `json:"volatility"`
	VaR95                float64 `json:"var_95"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`

	RoundTrips    []RoundTrip `json:"round_trips"`
	TradeCount    int         `json:"trade_count"`
	WinRate       float64     `json:"win_rate"`
	AvgWinAmount  float64     `json:"avg_win_amount"`
	AvgLossAmount float64     `json:"avg_loss_amount"`
	MaxSingleWin  float64     `json:"max_single_win"`
	MaxSingleLoss float64     `json:"max_single_loss"`
	ProfitFactor  float64     `json:"profit_factor"`
}

// Run is a server response for a single backtest.
type Run struct {
	RunID  string  `json:"run_id"`
	Result *Result `json:"result"`
}

// Comparison is a server response for a multi-strategy comparison.
type Comparison struct {
	RunID   string    `json:"run_id"`
	Results []*Result `json:"results"`
}
