// Package domain defines the value types shared across the backtesting
// toolkit: daily bars, indicator rows, trades, positions and equity points.
package domain

import (
	"encoding/json"
	"time"
)

// Market identifies the exchange group a symbol trades on.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Bar is one daily OHLCV bar. Bars are immutable once loaded.
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

// Indicator is the per-day fundamental/technical row aligned to a Bar by
// (Symbol, Date).
type Indicator struct {
	Symbol       string    `json:"symbol"`
	Date         time.Time `json:"date"`
	TurnoverRate float64   `json:"turnover_rate"`
	VolumeRatio  float64   `json:"volume_ratio"`
	PE           float64   `json:"pe"`
	PB           float64   `json:"pb"`
}

// Trade is one executed fill in the trade log.
type Trade struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Side     Side      `json:"side"`
	Price    float64   `json:"price"`
	Quantity int64     `json:"quantity"`
	Amount   float64   `json:"amount"` // price * quantity
	Fee      float64   `json:"fee"`    // commission + slippage charged on the fill
}

// Position is an open holding in one symbol. Cost is the cumulative cash
// outflow including fees; Value is Quantity marked at the last seen price.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	Cost     float64 `json:"cost"`
	Value    float64 `json:"value"`
}

// Profit returns the unrealised profit of the position.
func (p Position) Profit() float64 {
	return p.Value - p.Cost
}

// MarshalJSON includes the derived profit alongside the stored fields.
func (p Position) MarshalJSON() ([]byte, error) {
	type position Position
	return json.Marshal(struct {
		position
		Profit float64 `json:"profit"`
	}{position(p), p.Profit()})
}

// EquityPoint is the end-of-day portfolio value.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Instrument describes a listed security.
type Instrument struct {
	Symbol   string `json:"symbol"` // exchange-qualified, e.g. 600000.SH
	Code     string `json:"code"`   // bare code, e.g. 600000
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Market   Market `json:"market"`
	ListDate string `json:"list_date"`
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
