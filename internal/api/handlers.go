package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Svanik-yan/trading-backtest/internal/backtest"
	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/store"
	"github.com/Svanik-yan/trading-backtest/internal/strategy"
	"github.com/Svanik-yan/trading-backtest/internal/util"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, StrategiesResponse{Strategies: s.runner.Registry().List()})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	market := s.market(r.URL.Query().Get("market"))
	symbols, err := s.bars.ListSymbols(r.Context(), market)
	if err != nil {
		s.fail(w, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, SymbolsResponse{Market: market, Symbols: symbols})
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	if s.instruments == nil {
		writeError(w, http.StatusNotFound, "instrument reference not configured")
		return
	}
	market := s.market(r.URL.Query().Get("market"))
	list, err := s.instruments.ListInstruments(r.Context(), domain.Market(market))
	if err != nil {
		s.fail(w, err)
		return
	}
	if list == nil {
		list = []domain.Instrument{}
	}
	writeJSON(w, InstrumentsResponse{Market: market, Instruments: list})
}

// handleBars serves GET /api/v1/bars?symbol=&market=&start=&end=. Missing
// dates fall back to the configured backtest window, and the end date
// further to the last weekday.
func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	market := s.market(q.Get("market"))

	startStr := firstNonEmpty(q.Get("start"), s.defaults.StartDate)
	if startStr == "" {
		writeError(w, http.StatusBadRequest, "start date required")
		return
	}
	start, err := util.ParseDate(startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end := util.LastWeekday(time.Now())
	if endStr := firstNonEmpty(q.Get("end"), s.defaults.EndDate); endStr != "" {
		if end, err = util.ParseDate(endStr); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if market == string(domain.MarketCN) {
		symbol = domain.NormalizeCNSymbol(symbol)
	}
	bars, err := s.bars.ReadBars(r.Context(), symbol, market, start, end)
	if err != nil {
		s.fail(w, err)
		return
	}
	if bars == nil {
		bars = []domain.Bar{}
	}
	writeJSON(w, BarsResponse{Symbol: symbol, Market: market, Bars: bars})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	body := s.defaults
	body.Params = nil
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, err)
		return
	}
	req, err := body.Request()
	if err != nil {
		s.fail(w, err)
		return
	}

	runID := uuid.NewString()
	log := s.log.With("run", runID, "strategy", req.Strategy, "symbol", req.Symbol)
	w.Header().Set("X-Run-ID", runID)

	started := time.Now()
	res, err := s.runner.Run(r.Context(), req)
	s.metrics.ObserveRun(req.Strategy, res, err, time.Since(started))
	if err != nil {
		log.Warn("backtest failed", "error", err)
		s.fail(w, err)
		return
	}
	log.Info("backtest served", "trades", res.TradeCount, "totalValue", res.TotalValue)
	writeJSON(w, BacktestResponse{RunID: runID, Result: res})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	body := CompareRequest{BacktestConfig: s.defaults}
	body.Params = nil
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, err)
		return
	}
	req, err := body.Request()
	if err != nil {
		s.fail(w, err)
		return
	}

	runID := uuid.NewString()
	log := s.log.With("run", runID, "symbol", req.Symbol)
	w.Header().Set("X-Run-ID", runID)

	started := time.Now()
	results, err := s.runner.Compare(r.Context(), req, body.Strategies)
	elapsed := time.Since(started)
	for i, name := range body.Strategies {
		var res *backtest.Result
		if err == nil {
			res = results[i]
		}
		s.metrics.ObserveRun(name, res, err, elapsed)
	}
	if err != nil {
		log.Warn("comparison failed", "strategies", body.Strategies, "error", err)
		s.fail(w, err)
		return
	}
	log.Info("comparison served", "strategies", body.Strategies)
	writeJSON(w, CompareResponse{RunID: runID, Results: results})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) market(m string) string {
	if m != "" {
		return m
	}
	if s.defaults.Market != "" {
		return s.defaults.Market
	}
	return string(domain.MarketCN)
}

// decodeBody decodes a JSON body over the values already in v. An empty
// body leaves v unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decoding request body: %v", backtest.ErrInvalidConfig, err)
	}
	return nil
}

// statusFor maps an error to the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, backtest.ErrInvalidConfig),
		errors.Is(err, strategy.ErrUnknownStrategy),
		errors.Is(err, strategy.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, backtest.ErrNoData), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
