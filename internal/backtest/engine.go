package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/strategy"
)

// Engine replays bars through a strategy and fills its signals against a
// fresh Ledger. An Engine holds no per-run state and may run concurrently.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates an Engine. A nil logger uses slog.Default().
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log.With("component", "engine")}
}

type barKey struct {
	symbol string
	date   string
}

func keyOf(symbol string, t time.Time) barKey {
	return barKey{symbol: symbol, date: t.Format(time.DateOnly)}
}

// Run simulates strat over bars. Bars must be strictly ascending by date.
// Each bar is evaluated only when an indicator row with the same symbol and
// date exists; other bars are skipped and produce no equity point. Buys and
// sells fill at the bar's close.
func (e *Engine) Run(ctx context.Context, bars []domain.Bar, inds []domain.Indicator, cfg Config, strat strategy.Strategy) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateBars(bars); err != nil {
		return nil, err
	}
	if strat == nil {
		return nil, fmt.Errorf("%w: no strategy", ErrInvalidConfig)
	}
	if err := strat.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing strategy %s: %w", strat.Name(), err)
	}

	index := make(map[barKey]domain.Indicator, len(inds))
	for _, ind := range inds {
		index[keyOf(ind.Symbol, ind.Date)] = ind
	}

	ledger := NewLedger(cfg.InitialCapital)
	var trades []domain.Trade
	equity := make([]domain.EquityPoint, 0, len(bars))
	var skipped, dropped int

	for _, bar := range bars {
		ind, ok := index[keyOf(bar.Symbol, bar.Date)]
		if !ok {
			skipped++
			continue
		}

		ledger.mark(bar.Symbol, bar.Close)

		sig := strat.OnBar(bar, ind)
		if err := sig.Validate(); err != nil {
			e.log.Warn("ignoring invalid signal", "strategy", strat.Name(), "date", bar.Date.Format(time.DateOnly), "error", err)
			sig = strategy.Hold()
		}

		var (
			tr     domain.Trade
			filled bool
		)
		switch sig.Action {
		case strategy.ActionBuy:
			tr, filled = ledger.buy(bar.Symbol, bar.Date, bar.Close, sig.Quantity, cfg)
		case strategy.ActionSell:
			tr, filled = ledger.sell(bar.Symbol, bar.Date, bar.Close, sig.Quantity, cfg)
		}
		if filled {
			trades = append(trades, tr)
			if fo, ok := strat.(strategy.FillObserver); ok {
				fo.OnFill(tr)
			}
			e.log.Debug("fill",
				"side", tr.Side,
				"symbol", tr.Symbol,
				"date", tr.Date.Format(time.DateOnly),
				"price", tr.Price,
				"qty", tr.Quantity,
				"cash", ledger.Cash(),
			)
		} else if sig.Action != strategy.ActionHold {
			dropped++
		}

		equity = append(equity, domain.EquityPoint{Date: bar.Date, Value: ledger.Equity()})
	}

	e.log.Debug("run complete",
		"strategy", strat.Name(),
		"bars", len(bars),
		"skipped", skipped,
		"dropped", dropped,
		"trades", len(trades),
	)

	return Summarize(strat.Name(), trades, ledger.Positions(), ledger.Cash(), equity, cfg), nil
}

// validateBars checks bars are strictly ascending by date with positive
// closes.
func validateBars(bars []domain.Bar) error {
	for i, b := range bars {
		if !(b.Close > 0) {
			return fmt.Errorf("%w: bar %s %s has non-positive close %v",
				ErrInvalidConfig, b.Symbol, b.Date.Format(time.DateOnly), b.Close)
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return fmt.Errorf("%w: bars not in ascending date order at %s",
				ErrInvalidConfig, b.Date.Format(time.DateOnly))
		}
	}
	return nil
}
