// Package api serves backtests, stored market data and Prometheus metrics
// over HTTP/JSON.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Svanik-yan/trading-backtest/internal/backtest"
	"github.com/Svanik-yan/trading-backtest/internal/config"
	"github.com/Svanik-yan/trading-backtest/internal/store"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// serve context is cancelled.
const shutdownTimeout = 5 * time.Second

// Options configures optional Server dependencies.
type Options struct {
	// Instruments backs GET /api/v1/instruments; nil disables the route.
	Instruments store.InstrumentStore
	// Defaults fill in request fields the client leaves out.
	Defaults config.BacktestConfig
	Log      *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	runner      *backtest.Runner
	bars        store.BarStore
	instruments store.InstrumentStore
	defaults    config.BacktestConfig
	registry    *prometheus.Registry
	metrics     *Metrics
	log         *slog.Logger
}

// NewServer creates a Server that runs backtests with runner and serves bars
// from bars. Each Server has its own metrics registry.
func NewServer(runner *backtest.Runner, bars store.BarStore, opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{
		runner:      runner,
		bars:        bars,
		instruments: opts.Instruments,
		defaults:    opts.Defaults,
		registry:    reg,
		metrics:     NewMetrics(reg),
		log:         log.With("component", "api"),
	}
}

// RegisterRoutes adds the API routes to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	s.handle(mux, "GET /healthz", s.handleHealth)
	s.handle(mux, "GET /api/v1/strategies", s.handleStrategies)
	s.handle(mux, "GET /api/v1/symbols", s.handleSymbols)
	s.handle(mux, "GET /api/v1/instruments", s.handleInstruments)
	s.handle(mux, "GET /api/v1/bars", s.handleBars)
	s.handle(mux, "POST /api/v1/backtests", s.handleBacktest)
	s.handle(mux, "POST /api/v1/backtests/compare", s.handleCompare)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

// handle registers h under pattern, counting responses by status code.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	counter := s.metrics.requestTotal.MustCurryWith(prometheus.Labels{"route": pattern})
	mux.Handle(pattern, promhttp.InstrumentHandlerCounter(counter, h))
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
