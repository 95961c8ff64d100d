// Package store defines storage interfaces for the market data the backtester
// consumes (daily bars, indicator rows, instrument lists) and their on-disk
// implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

// ErrNotFound is returned when the requested data source does not exist.
var ErrNotFound = errors.New("not found")

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market.
	WriteBars(ctx context.Context, market string, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// IndicatorStore persists and retrieves per-day indicator rows.
type IndicatorStore interface {
	// WriteIndicators inserts or replaces indicator rows keyed by
	// (symbol, date).
	WriteIndicators(ctx context.Context, inds []domain.Indicator) error

	// ReadIndicators returns rows for symbol within [start, end] ordered by
	// date.
	ReadIndicators(ctx context.Context, symbol string, start, end time.Time) ([]domain.Indicator, error)
}

// InstrumentStore persists the listing reference for a market.
type InstrumentStore interface {
	// SaveInstruments inserts or replaces instruments keyed by symbol.
	SaveInstruments(ctx context.Context, instruments []domain.Instrument) error

	// ListInstruments returns all instruments of the market sorted by symbol.
	ListInstruments(ctx context.Context, market domain.Market) ([]domain.Instrument, error)
}
