package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/indicators"
	"github.com/Svanik-yan/trading-backtest/internal/store"
	"github.com/Svanik-yan/trading-backtest/internal/strategy"
)

// Request describes one backtest: which strategy to run, on which symbol,
// with which run parameters.
type Request struct {
	Strategy string          `json:"strategy"`
	Params   strategy.Params `json:"params,omitempty"`
	Symbol   string          `json:"symbol"`
	Market   string          `json:"market"`
	Config   Config          `json:"config"`
}

// Validate checks the request before any data is loaded.
func (r Request) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}
	if r.Config.StartDate.IsZero() || r.Config.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidConfig)
	}
	return r.Config.Validate()
}

// Inputs are the bars and aligned indicator rows loaded for a request.
type Inputs struct {
	Bars       []domain.Bar
	Indicators []domain.Indicator
}

// Runner loads market data for a request, resolves the strategy from a
// registry, and runs the Engine.
type Runner struct {
	bars       store.BarStore
	indicators store.IndicatorStore
	registry   *strategy.Registry
	engine     *Engine
	log        *slog.Logger
}

// NewRunner creates a Runner. indicatorStore may be nil. When it is nil, or
// holds no rows for the requested symbol and window, indicator rows are
// derived from the bars themselves.
func NewRunner(barStore store.BarStore, indicatorStore store.IndicatorStore, registry *strategy.Registry, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		bars:       barStore,
		indicators: indicatorStore,
		registry:   registry,
		engine:     NewEngine(log),
		log:        log.With("component", "runner"),
	}
}

// Registry returns the strategy registry the runner resolves names from.
func (r *Runner) Registry() *strategy.Registry { return r.registry }

// Load reads bars and indicators for symbol within [start, end]
// concurrently. Bars are sorted ascending with duplicate dates dropped.
func (r *Runner) Load(ctx context.Context, symbol, market string, start, end time.Time) (*Inputs, error) {
	var (
		bars []domain.Bar
		inds []domain.Indicator
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bars, err = r.bars.ReadBars(gctx, symbol, market, start, end)
		if err != nil {
			return fmt.Errorf("reading bars for %s: %w", symbol, err)
		}
		return nil
	})
	if r.indicators != nil {
		g.Go(func() error {
			var err error
			inds, err = r.indicators.ReadIndicators(gctx, symbol, start, end)
			if err != nil {
				return fmt.Errorf("reading indicators for %s: %w", symbol, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNoData, err)
		}
		return nil, err
	}

	bars = normalizeBars(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s between %s and %s", ErrNoData, market, symbol,
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	if len(inds) == 0 {
		inds = indicators.Derive(bars)
	}
	return &Inputs{Bars: bars, Indicators: inds}, nil
}

// Run executes a single backtest.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	strat, err := r.registry.New(req.Strategy, req.Params)
	if err != nil {
		return nil, err
	}
	in, err := r.Load(ctx, req.Symbol, req.Market, req.Config.StartDate, req.Config.EndDate)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := r.engine.Run(ctx, in.Bars, in.Indicators, req.Config, strat)
	if err != nil {
		return nil, err
	}
	r.log.Info("backtest finished",
		"strategy", req.Strategy,
		"symbol", req.Symbol,
		"bars", len(in.Bars),
		"trades", len(res.Trades),
		"totalValue", res.TotalValue,
		"elapsed", time.Since(started),
	)
	return res, nil
}

// Compare runs each named strategy over the same inputs concurrently and
// returns the results in the order of names. req.Strategy is ignored.
func (r *Runner) Compare(ctx context.Context, req Request, names []string) ([]*Result, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no strategies to compare", ErrInvalidConfig)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	strats := make([]strategy.Strategy, len(names))
	for i, name := range names {
		s, err := r.registry.New(name, req.Params)
		if err != nil {
			return nil, err
		}
		strats[i] = s
	}

	in, err := r.Load(ctx, req.Symbol, req.Market, req.Config.StartDate, req.Config.EndDate)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range strats {
		g.Go(func() error {
			res, err := r.engine.Run(gctx, in.Bars, in.Indicators, req.Config, s)
			if err != nil {
				return fmt.Errorf("running %s: %w", names[i], err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// normalizeBars sorts bars ascending by date and keeps the first bar of any
// duplicated date.
func normalizeBars(bars []domain.Bar) []domain.Bar {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	out := bars[:0]
	for i, b := range bars {
		if i > 0 && domain.SameDay(b.Date, out[len(out)-1].Date) {
			continue
		}
		out = append(out, b)
	}
	return out
}
