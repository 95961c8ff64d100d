package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Svanik-yan/trading-backtest/internal/config"
	"github.com/Svanik-yan/trading-backtest/internal/gather/cn"
	"github.com/Svanik-yan/trading-backtest/internal/store"
	"github.com/Svanik-yan/trading-backtest/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.Path(), "config file")
	start := flag.String("start", "", "first trade date (default from config)")
	end := flag.String("end", "", "last trade date (default: last weekday)")
	symbols := flag.String("symbols", "", "comma-separated symbols (default from config, else all listed)")
	quotes := flag.Bool("quotes", false, "write raw quote files instead of parquet")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	job := cfg.Gather.CNDaily
	if *start != "" {
		job.StartDate = *start
	}
	if *symbols != "" {
		job.Symbols = strings.Split(*symbols, ",")
	}

	var bars store.BarStore = store.NewParquetStore(cfg.Storage.DataDir)
	if *quotes {
		bars = store.NewQuoteFileStore(cfg.Storage.QuoteDir)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
		log.Fatalf("creating database directory: %v", err)
	}
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening %s: %v", cfg.Storage.SQLitePath, err)
	}
	defer db.Close()

	client := cn.NewTushareClient(cfg.Tushare.Token, cfg.Tushare.BaseURL, job.RateLimitPerMin)
	gatherer := cn.NewDailyGatherer(cn.DailyGathererConfig{
		Client:      client,
		Bars:        bars,
		Indicators:  db,
		Instruments: db,
		Symbols:     job.Symbols,
		StartDate:   job.StartDate,
		EndDate:     *end,
		ProgressDir: filepath.Join(cfg.Storage.DataDir, "progress", "cn-daily"),
		Log:         logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting gatherer", "name", gatherer.Name(), "quotes", *quotes)
	if err := gatherer.Run(ctx); err != nil {
		db.Close()
		log.Fatalf("gatherer error: %v", err)
	}
}
