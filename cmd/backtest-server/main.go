package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/Svanik-yan/trading-backtest/internal/api"
	"github.com/Svanik-yan/trading-backtest/internal/backtest"
	"github.com/Svanik-yan/trading-backtest/internal/config"
	"github.com/Svanik-yan/trading-backtest/internal/store"
	"github.com/Svanik-yan/trading-backtest/internal/strategy/builtins"
	"github.com/Svanik-yan/trading-backtest/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.Path(), "config file")
	addr := flag.String("addr", "", "listen address (default from config)")
	flag.Parse()

	// Load config.
	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Create stores and server.
	stores, err := store.OpenSet(cfg.Backtest.Source, cfg.Storage.DataDir, cfg.Storage.QuoteDir, cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening stores: %v", err)
	}
	defer stores.Close()

	runner := backtest.NewRunner(stores.Bars, stores.Indicators, builtins.NewRegistry(), logger)
	srv := api.NewServer(runner, stores.Bars, api.Options{
		Instruments: stores.Instruments,
		Defaults:    cfg.Backtest,
		Log:         logger,
	})

	listen := *addr
	if listen == "" {
		listen = cfg.Server.Addr()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("backtest server starting", "addr", listen, "source", cfg.Backtest.Source, "dataDir", cfg.Storage.DataDir)
	if err := srv.ListenAndServe(ctx, listen); err != nil {
		logger.Error("HTTP server error", "error", err)
		stores.Close()
		log.Fatalf("server: %v", err)
	}
}
