// Package us gathers US equity daily bars from the Alpaca market data API.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/sync/errgroup"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/gather"
	"github.com/Svanik-yan/trading-backtest/internal/store"
	"github.com/Svanik-yan/trading-backtest/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*DailyBarGatherer)(nil)
var _ BarsClient = (*marketdata.Client)(nil)

// BarsClient is the part of the Alpaca market data client the gatherer uses.
type BarsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// NewMarketDataClient creates an Alpaca market data client. An empty
// dataURL uses the SDK default.
func NewMarketDataClient(apiKey, apiSecret, dataURL string) *marketdata.Client {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return marketdata.NewClient(opts)
}

// DailyBarGathererConfig wires a DailyBarGatherer.
type DailyBarGathererConfig struct {
	Client          BarsClient
	Store           store.BarStore
	Symbols         []string
	BatchSize       int // symbols per API call
	MaxWorkers      int // concurrent API calls
	RateLimitPerMin int
	StartDate       string
	EndDate         string // empty means the last weekday
	Feed            string // "sip" when empty
	ProgressDir     string // empty disables resume tracking
	Log             *slog.Logger
}

// DailyBarGatherer fetches daily OHLCV bars for a configured symbol list and
// writes them to a BarStore under market "us".
type DailyBarGatherer struct {
	cfg        DailyBarGathererConfig
	limiter    *util.RateLimiter
	retryDelay time.Duration
	nyc        *time.Location
	log        *slog.Logger
	now        func() time.Time
}

// NewDailyBarGatherer creates a DailyBarGatherer, filling in defaults for
// unset batch size, worker count and feed.
func NewDailyBarGatherer(cfg DailyBarGathererConfig) *DailyBarGatherer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.Feed == "" {
		cfg.Feed = "sip"
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	nyc, err := time.LoadLocation("America/New_York")
	if err != nil {
		nyc = time.UTC
	}
	return &DailyBarGatherer{
		cfg:        cfg,
		limiter:    util.NewRateLimiter(cfg.RateLimitPerMin),
		retryDelay: time.Second,
		nyc:        nyc,
		log:        log.With("gatherer", "us-daily"),
		now:        time.Now,
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "us-daily" }

// Run fetches bars for every outstanding symbol in batches and writes them to
// the store. It is resumable and idempotent within a day when a progress
// directory is configured. Failed batches are logged, left unmarked, and
// reported as an error once every batch has been attempted.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
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

	var remaining []string
	for _, sym := range g.cfg.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || (progress != nil && progress.IsDone(sym)) {
			continue
		}
		remaining = append(remaining, sym)
	}

	var batches [][]string
	for i := 0; i < len(remaining); i += g.cfg.BatchSize {
		batches = append(batches, remaining[i:min(i+g.cfg.BatchSize, len(remaining))])
	}

	g.log.Info("starting us-daily",
		"start", rng.Start.Format(time.DateOnly),
		"end", endStr,
		"symbols", len(g.cfg.Symbols),
		"remaining", len(remaining),
		"batches", len(batches),
	)

	var (
		totalBars atomic.Int64
		failed    atomic.Int64
		runStart  = time.Now()
	)

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.MaxWorkers)
	for i, batch := range batches {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			label := fmt.Sprintf("%d/%d", i+1, len(batches))

			bars, err := g.fetch(ectx, batch, rng)
			if err == nil && len(bars) > 0 {
				err = g.cfg.Store.WriteBars(ectx, string(domain.MarketUS), bars)
			}
			if err != nil {
				if ectx.Err() != nil {
					return ectx.Err()
				}
				failed.Add(1)
				g.log.Error("batch failed", "batch", label, "err", err)
				return nil
			}
			if progress != nil {
				if err := progress.MarkDone(batch...); err != nil {
					return err
				}
			}
			totalBars.Add(int64(len(bars)))
			g.log.Info("batch done",
				"batch", label,
				"bars", len(bars),
				"elapsed", time.Since(runStart).Round(time.Second),
			)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	g.log.Info("complete",
		"bars", totalBars.Load(),
		"failedBatches", failed.Load(),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("us-daily: %d of %d batches failed", n, len(batches))
	}
	if progress != nil {
		if err := progress.MarkCompleted(endStr); err != nil {
			return fmt.Errorf("marking completed: %w", err)
		}
	}
	return nil
}

// fetch gets daily bars for a batch of symbols in a single API call.
func (g *DailyBarGatherer) fetch(ctx context.Context, symbols []string, rng gather.DateRange) ([]domain.Bar, error) {
	var multi map[string][]marketdata.Bar
	err := util.Retry(ctx, 3, g.retryDelay, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var err error
		multi, err = g.cfg.Client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     rng.Start,
			// End is exclusive on the API side.
			End:  rng.End.AddDate(0, 0, 1),
			Feed: marketdata.Feed(g.cfg.Feed),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multi {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol: strings.ToUpper(symbol),
				Date:   util.Midnight(ab.Timestamp.In(g.nyc)),
				Open:   ab.Open,
				High:   ab.High,
				Low:    ab.Low,
				Close:  ab.Close,
				Volume: float64(ab.Volume),
				Amount: ab.VWAP * float64(ab.Volume),
			})
		}
	}
	return bars, nil
}
