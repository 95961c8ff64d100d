package builtins

import (
	"context"
	"fmt"
	"math"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/indicators"
	"github.com/Svanik-yan/trading-backtest/internal/strategy"
)

var _ strategy.Strategy = (*RSIReversion)(nil)

// RSIReversion buys when the RSI drops below the oversold threshold and
// sells when it rises above the overbought one.
type RSIReversion struct {
	period     int
	oversold   float64
	overbought float64
	closes     []float64
}

// NewRSIReversion creates an RSIReversion strategy.
func NewRSIReversion(period int, oversold, overbought float64) (*RSIReversion, error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi: period must be positive, got %d", period)
	}
	if oversold < 0 || overbought > 100 || oversold >= overbought {
		return nil, fmt.Errorf("rsi: need 0 <= oversold < overbought <= 100, got %v/%v", oversold, overbought)
	}
	return &RSIReversion{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}, nil
}

// Name returns "rsi".
func (r *RSIReversion) Name() string { return "rsi" }

// Init clears the price history.
func (r *RSIReversion) Init(_ context.Context) error {
	r.closes = make([]float64, 0, r.period+1)
	return nil
}

// OnBar computes the RSI over the trailing window ending at this bar.
func (r *RSIReversion) OnBar(bar domain.Bar, _ domain.Indicator) strategy.Signal {
	r.closes = append(r.closes, bar.Close)
	if len(r.closes) > r.period+1 {
		r.closes = r.closes[1:]
	}

	rsi := indicators.Last(indicators.RSI(r.closes, r.period))
	switch {
	case math.IsNaN(rsi):
		return strategy.Hold()
	case rsi < r.oversold:
		return strategy.Buy(0)
	case rsi > r.overbought:
		return strategy.Sell(0)
	}
	return strategy.Hold()
}
