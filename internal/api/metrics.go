package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Svanik-yan/trading-backtest/internal/backtest"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	tradesTotal  *prometheus.CounterVec
	requestTotal *prometheus.CounterVec
}

// NewMetrics registers the server collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_runs_total",
				Help: "Total number of backtest runs by strategy and outcome",
			},
			[]string{"strategy", "status"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backtest_run_duration_seconds",
				Help:    "Backtest run duration in seconds, including data loading",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"strategy"},
		),
		tradesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_trades_total",
				Help: "Total number of simulated fills by strategy and side",
			},
			[]string{"strategy", "side"},
		),
		requestTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_http_requests_total",
				Help: "Total number of API requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
}

// ObserveRun records the outcome of one strategy run.
func (m *Metrics) ObserveRun(name string, res *backtest.Result, err error, elapsed time.Duration) {
	if name == "" {
		name = "unknown"
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(name, status).Inc()
	m.runDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if res == nil {
		return
	}
	for _, t := range res.Trades {
		m.tradesTotal.WithLabelValues(name, string(t.Side)).Inc()
	}
}
