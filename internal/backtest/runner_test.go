package backtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/store"
	"github.com/Svanik-yan/trading-backtest/internal/strategy"
	"github.com/Svanik-yan/trading-backtest/internal/strategy/builtins"
)

// memBars is an in-memory BarStore keyed by market then symbol.
type memBars map[string]map[string][]domain.Bar

func (m memBars) WriteBars(_ context.Context, market string, bars []domain.Bar) error {
	if m[market] == nil {
		m[market] = make(map[string][]domain.Bar)
	}
	for _, b := range bars {
		m[market][b.Symbol] = append(m[market][b.Symbol], b)
	}
	return nil
}

func (m memBars) ReadBars(_ context.Context, symbol, market string, start, end time.Time) ([]domain.Bar, error) {
	all, ok := m[market][symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, store.ErrNotFound)
	}
	var out []domain.Bar
	for _, b := range all {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m memBars) ListSymbols(_ context.Context, market string) ([]string, error) {
	var out []string
	for s := range m[market] {
		out = append(out, s)
	}
	return out, nil
}

type memIndicators []domain.Indicator

func (m memIndicators) WriteIndicators(context.Context, []domain.Indicator) error { return nil }

func (m memIndicators) ReadIndicators(_ context.Context, symbol string, start, end time.Time) ([]domain.Indicator, error) {
	var out []domain.Indicator
	for _, ind := range m {
		if ind.Symbol == symbol && !ind.Date.Before(start) && !ind.Date.After(end) {
			out = append(out, ind)
		}
	}
	return out, nil
}

var runnerCloses = []float64{
	10, 10.2, 10.1, 9.8, 9.5, 9.9, 10.4, 10.8, 11.1, 10.7,
	10.2, 9.7, 9.4, 9.9, 10.6, 11.2, 11.5, 11.1, 10.4, 10.1,
}

func newTestRunner(t *testing.T, withIndicators bool) *Runner {
	t.Helper()
	bars, inds := series(runnerCloses...)
	// Feed the store out of order with a duplicate to exercise normalisation.
	shuffled := append([]domain.Bar{bars[len(bars)-1], bars[0]}, bars[1:len(bars)-1]...)
	shuffled = append(shuffled, bars[3])

	bs := memBars{}
	if err := bs.WriteBars(context.Background(), "cn", shuffled); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	var is store.IndicatorStore
	if withIndicators {
		is = memIndicators(inds)
	}
	return NewRunner(bs, is, builtins.NewRegistry(), nil)
}

func testRequest(name string) Request {
	return Request{
		Strategy: name,
		Params:   strategy.Params{"short": 2, "long": 4},
		Symbol:   sym,
		Market:   "cn",
		Config: Config{
			InitialCapital: 100000,
			StartDate:      day0,
			EndDate:        day0.AddDate(0, 0, len(runnerCloses)),
			CommissionRate: 0.0003,
		},
	}
}

func TestRunnerLoadNormalizes(t *testing.T) {
	r := newTestRunner(t, true)
	in, err := r.Load(context.Background(), sym, "cn", day0, day0.AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(in.Bars) != len(runnerCloses) {
		t.Fatalf("got %d bars, want %d", len(in.Bars), len(runnerCloses))
	}
	if err := validateBars(in.Bars); err != nil {
		t.Errorf("loaded bars are not strictly ascending: %v", err)
	}
	if len(in.Indicators) != len(runnerCloses) {
		t.Errorf("got %d indicators, want %d", len(in.Indicators), len(runnerCloses))
	}
}

func TestRunnerRun(t *testing.T) {
	r := newTestRunner(t, true)
	res, err := r.Run(context.Background(), testRequest("sma-cross"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Strategy != "sma-cross" {
		t.Errorf("strategy = %q, want sma-cross", res.Strategy)
	}
	if len(res.Equity) != len(runnerCloses) {
		t.Errorf("got %d equity points, want %d", len(res.Equity), len(runnerCloses))
	}
	if len(res.Trades) == 0 {
		t.Error("expected trades")
	}
}

func TestRunnerDerivesIndicators(t *testing.T) {
	r := newTestRunner(t, false)
	res, err := r.Run(context.Background(), testRequest("ma-trend"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Equity) != len(runnerCloses) {
		t.Errorf("got %d equity points, want every bar evaluated (%d)", len(res.Equity), len(runnerCloses))
	}
}

func TestRunnerDerivesWhenStoreIsEmpty(t *testing.T) {
	bars, _ := series(runnerCloses...)
	bs := memBars{}
	if err := bs.WriteBars(context.Background(), "cn", bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	r := NewRunner(bs, memIndicators(nil), builtins.NewRegistry(), nil)
	in, err := r.Load(context.Background(), sym, "cn", day0, day0.AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(in.Indicators) != len(in.Bars) {
		t.Errorf("got %d indicators for %d bars", len(in.Indicators), len(in.Bars))
	}
}

func TestRunnerErrors(t *testing.T) {
	r := newTestRunner(t, true)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"unknown strategy", func(q *Request) { q.Strategy = "nope" }, strategy.ErrUnknownStrategy},
		{"unknown symbol", func(q *Request) { q.Symbol = "000001.SZ" }, ErrNoData},
		{"empty window", func(q *Request) {
			q.Config.StartDate = day0.AddDate(2, 0, 0)
			q.Config.EndDate = day0.AddDate(3, 0, 0)
		}, ErrNoData},
		{"missing symbol", func(q *Request) { q.Symbol = "" }, ErrInvalidConfig},
		{"missing dates", func(q *Request) { q.Config.StartDate = time.Time{} }, ErrInvalidConfig},
		{"zero capital", func(q *Request) { q.Config.InitialCapital = 0 }, ErrInvalidConfig},
		{"bad params", func(q *Request) { q.Params = strategy.Params{"short": 30, "long": 10} }, strategy.ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest("sma-cross")
			tt.mutate(&req)
			_, err := r.Run(ctx, req)
			if err == nil {
				t.Fatal("Run succeeded, want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Run error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunnerCompare(t *testing.T) {
	r := newTestRunner(t, true)
	ctx := context.Background()
	names := []string{"sma-cross", "ma-trend", "macd", "rsi"}

	results, err := r.Compare(ctx, testRequest(""), names)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(results) != len(names) {
		t.Fatalf("got %d results, want %d", len(results), len(names))
	}
	for i, name := range names {
		if results[i].Strategy != name {
			t.Errorf("results[%d].Strategy = %q, want %q", i, results[i].Strategy, name)
		}
		single, err := r.Run(ctx, testRequest(name))
		if err != nil {
			t.Fatalf("Run %s: %v", name, err)
		}
		if !reflect.DeepEqual(single, results[i]) {
			t.Errorf("%s: compared result differs from a single run", name)
		}
	}

	if _, err := r.Compare(ctx, testRequest(""), nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Compare with no names: error = %v, want ErrInvalidConfig", err)
	}
	if _, err := r.Compare(ctx, testRequest(""), []string{"sma-cross", "bogus"}); !errors.Is(err, strategy.ErrUnknownStrategy) {
		t.Errorf("Compare with unknown name: error = %v, want ErrUnknownStrategy", err)
	}
}
