// Package builtins provides the strategy implementations that ship with the
// backtester and registers them under their canonical names.
package builtins

import (
	"context"
	"fmt"
	"math"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/indicators"
	"github.com/Svanik-yan/trading-backtest/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It generates
// a buy signal when the short-period SMA crosses above the long-period SMA,
// and a sell signal when it crosses below.
type SMACross struct {
	shortPeriod int
	longPeriod  int
	closes      []float64
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods.
func NewSMACross(short, long int) (*SMACross, error) {
	if short <= 0 || long <= 0 || short >= long {
		return nil, fmt.Errorf("sma-cross: need 0 < short < long, got short=%d long=%d", short, long)
	}
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
	}, nil
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Init clears the price history.
func (s *SMACross) Init(_ context.Context) error {
	s.closes = make([]float64, 0, s.longPeriod+1)
	return nil
}

// OnBar appends the close and compares the current and previous SMA pair.
// Until longPeriod+1 closes are known one of the averages is NaN and every
// comparison is false, so the strategy holds.
func (s *SMACross) OnBar(bar domain.Bar, _ domain.Indicator) strategy.Signal {
	s.closes = append(s.closes, bar.Close)
	if len(s.closes) > s.longPeriod+1 {
		s.closes = s.closes[1:]
	}

	prev := s.closes[:len(s.closes)-1]
	shortNow := indicators.Mean(s.closes, s.shortPeriod)
	longNow := indicators.Mean(s.closes, s.longPeriod)
	shortPrev := indicators.Mean(prev, s.shortPeriod)
	longPrev := indicators.Mean(prev, s.longPeriod)
	if math.IsNaN(longPrev) {
		return strategy.Hold()
	}

	switch {
	case shortPrev <= longPrev && shortNow > longNow:
		return strategy.Buy(0)
	case shortPrev >= longPrev && shortNow < longNow:
		return strategy.Sell(0)
	}
	return strategy.Hold()
}
