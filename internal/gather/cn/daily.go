package cn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/gather"
	"github.com/Svanik-yan/trading-backtest/internal/store"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*DailyGatherer)(nil)

// DailyGathererConfig wires a DailyGatherer.
type DailyGathererConfig struct {
	Client      *TushareClient
	Bars        store.BarStore
	Indicators  store.IndicatorStore  // optional
	Instruments store.InstrumentStore // optional
	// Symbols restricts the run; empty means every listed instrument.
	Symbols     []string
	StartDate   string
	EndDate     string // empty means the last weekday
	ProgressDir string // empty disables resume tracking
	Log         *slog.Logger
}

// DailyGatherer downloads daily bars and indicator rows for China A-shares
// from Tushare and persists them: bars to a BarStore under market "cn",
// indicator rows to an IndicatorStore, and the instrument list to an
// InstrumentStore.
type DailyGatherer struct {
	cfg DailyGathererConfig
	log *slog.Logger
	now func() time.Time
}

// NewDailyGatherer creates a DailyGatherer.
func NewDailyGatherer(cfg DailyGathererConfig) *DailyGatherer {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &DailyGatherer{
		cfg: cfg,
		log: log.With("gatherer", "cn-daily"),
		now: time.Now,
	}
}

// Name returns the gatherer identifier.
func (g *DailyGatherer) Name() string { return "cn-daily" }

// Run gathers every outstanding symbol. A symbol that fails is logged and
// skipped; the run then reports an error and is not marked completed, so
// the next run retries only the failures.
func (g *DailyGatherer) Run(ctx context.Context) error {
	rng, err := gather.ParseRange(g.cfg.StartDate, g.cfg.EndDate, g.now())
	if err != nil {
		return err
	}
	endStr := rng.End.Format(time.DateOnly)

	var progress *gather.Progress
	if g.cfg.ProgressDir != "" {
		progress, err = gather.OpenProgress(g.cfg.ProgressDir)
		if err != nil {
			return err
		}
		defer progress.Close()

		fresh, err := progress.Begin(endStr)
		if err != nil {
			return fmt.Errorf("starting progress: %w", err)
		}
		if !fresh {
			g.log.Info("already completed", "endDate", endStr)
			return nil
		}
	}

	symbols, err := g.symbols(ctx)
	if err != nil {
		return err
	}

	g.log.Info("starting cn-daily",
		"start", rng.Start.Format(time.DateOnly),
		"end", endStr,
		"symbols", len(symbols),
	)

	var gathered, skipped, failed int
	runStart := time.Now()
	for i, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		if progress != nil && progress.IsDone(sym) {
			skipped++
			continue
		}

		n, err := g.gatherSymbol(ctx, sym, rng)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			g.log.Error("symbol failed", "symbol", sym, "err", err)
			continue
		}
		gathered++
		if progress != nil {
			if err := progress.MarkDone(sym); err != nil {
				return err
			}
		}
		if (i+1)%100 == 0 {
			g.log.Info("progress", "done", i+1, "total", len(symbols),
				"elapsed", time.Since(runStart).Round(time.Second))
		}
		g.log.Debug("symbol done", "symbol", sym, "bars", n)
	}

	g.log.Info("complete",
		"gathered", gathered,
		"skipped", skipped,
		"failed", failed,
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	if failed > 0 {
		return fmt.Errorf("cn-daily: %d of %d symbols failed", failed, len(symbols))
	}
	if progress != nil {
		if err := progress.MarkCompleted(endStr); err != nil {
			return fmt.Errorf("marking completed: %w", err)
		}
	}
	return nil
}

// symbols returns the configured symbols, or the listed instruments. The
// instrument list is saved whenever it is fetched.
func (g *DailyGatherer) symbols(ctx context.Context) ([]string, error) {
	if len(g.cfg.Symbols) > 0 && g.cfg.Instruments == nil {
		return normalize(g.cfg.Symbols), nil
	}

	instruments, err := g.cfg.Client.StockBasic(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing instruments: %w", err)
	}
	if g.cfg.Instruments != nil {
		if err := g.cfg.Instruments.SaveInstruments(ctx, instruments); err != nil {
			return nil, fmt.Errorf("saving instruments: %w", err)
		}
	}
	if len(g.cfg.Symbols) > 0 {
		return normalize(g.cfg.Symbols), nil
	}

	out := make([]string, len(instruments))
	for i, in := range instruments {
		out[i] = in.Symbol
	}
	return out, nil
}

func (g *DailyGatherer) gatherSymbol(ctx context.Context, sym string, rng gather.DateRange) (int, error) {
	bars, err := g.cfg.Client.Daily(ctx, sym, rng.Start, rng.End)
	if err != nil {
		return 0, err
	}
	if len(bars) > 0 {
		if err := g.cfg.Bars.WriteBars(ctx, string(domain.MarketCN), bars); err != nil {
			return 0, fmt.Errorf("writing bars: %w", err)
		}
	}

	if g.cfg.Indicators != nil {
		inds, err := g.cfg.Client.DailyBasic(ctx, sym, rng.Start, rng.End)
		if err != nil {
			return 0, err
		}
		if err := g.cfg.Indicators.WriteIndicators(ctx, inds); err != nil {
			return 0, fmt.Errorf("writing indicators: %w", err)
		}
	}
	return len(bars), nil
}

func normalize(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = domain.NormalizeCNSymbol(s)
	}
	return out
}
