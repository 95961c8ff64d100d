package builtins

import (
	"context"
	"fmt"
	"math"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/indicators"
	"github.com/Svanik-yan/trading-backtest/internal/strategy"
)

var (
	_ strategy.Strategy     = (*MATrend)(nil)
	_ strategy.FillObserver = (*MATrend)(nil)
)

// MATrend follows the relation of two moving averages taken over the closes
// before the current bar: it goes long while the short MA is above the long
// one and exits when it falls below. Unlike SMACross it does not wait for a
// crossing, so it enters on the first bar the trend condition holds. The
// position flag follows fills: a buy the engine could not afford is retried
// on the next bar the condition holds.
type MATrend struct {
	shortPeriod int
	longPeriod  int
	closes      []float64
	long        bool
}

// NewMATrend creates an MATrend with the given periods (5 and 20 by default).
func NewMATrend(short, long int) (*MATrend, error) {
	if short <= 0 || long <= 0 || short >= long {
		return nil, fmt.Errorf("ma-trend: need 0 < short < long, got short=%d long=%d", short, long)
	}
	return &MATrend{shortPeriod: short, longPeriod: long}, nil
}

// Name returns "ma-trend".
func (m *MATrend) Name() string { return "ma-trend" }

// Init clears the price history and the position flag.
func (m *MATrend) Init(_ context.Context) error {
	m.closes = make([]float64, 0, m.longPeriod)
	m.long = false
	return nil
}

// OnBar decides from the averages of prior closes, then records this close.
func (m *MATrend) OnBar(bar domain.Bar, _ domain.Indicator) strategy.Signal {
	short := indicators.Mean(m.closes, m.shortPeriod)
	long := indicators.Mean(m.closes, m.longPeriod)

	m.closes = append(m.closes, bar.Close)
	if len(m.closes) > m.longPeriod {
		m.closes = m.closes[1:]
	}

	if math.IsNaN(long) {
		return strategy.Hold()
	}
	switch {
	case short > long && !m.long:
		return strategy.Buy(0)
	case short < long && m.long:
		return strategy.Sell(0)
	}
	return strategy.Hold()
}

// OnFill sets the position flag from an executed trade.
func (m *MATrend) OnFill(tr domain.Trade) {
	m.long = tr.Side == domain.SideBuy
}
