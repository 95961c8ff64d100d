package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/config"
	"github.com/Svanik-yan/trading-backtest/internal/gather/us"
	"github.com/Svanik-yan/trading-backtest/internal/store"
	"github.com/Svanik-yan/trading-backtest/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.Path(), "config file")
	start := flag.String("start", "", "first trade date (default from config)")
	end := flag.String("end", "", "last trade date (default: latest settled session)")
	symbols := flag.String("symbols", "", "comma-separated symbols (default from config)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	job := cfg.Gather.USDaily
	if *start != "" {
		job.StartDate = *start
	}
	if *symbols != "" {
		job.Symbols = strings.Split(*symbols, ",")
	}
	if len(job.Symbols) == 0 {
		log.Fatal("no symbols configured: set gather.us_daily.symbols or pass -symbols")
	}
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("Alpaca credentials missing: set ALPACA_API_KEY and ALPACA_API_SECRET")
	}

	endDate := *end
	if endDate == "" {
		day, err := us.LatestFinishedTradingDay(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		if err != nil {
			logger.Warn("trading calendar unavailable, using last weekday", "error", err)
		} else {
			endDate = day.Format(time.DateOnly)
		}
	}

	gatherer := us.NewDailyBarGatherer(us.DailyBarGathererConfig{
		Client:          us.NewMarketDataClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL),
		Store:           store.NewParquetStore(cfg.Storage.DataDir),
		Symbols:         job.Symbols,
		BatchSize:       job.BatchSize,
		MaxWorkers:      job.MaxWorkers,
		RateLimitPerMin: job.RateLimitPerMin,
		StartDate:       job.StartDate,
		EndDate:         endDate,
		Feed:            cfg.Alpaca.Feed,
		ProgressDir:     filepath.Join(cfg.Storage.DataDir, "progress", "us-daily"),
		Log:             logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting gatherer", "name", gatherer.Name(), "symbols", len(job.Symbols), "end", endDate)
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("gatherer error: %v", err)
	}
}
