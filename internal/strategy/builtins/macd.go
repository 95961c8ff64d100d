package builtins

import (
	"context"
	"fmt"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/indicators"
	"github.com/Svanik-yan/trading-backtest/internal/strategy"
)

var _ strategy.Strategy = (*MACDCross)(nil)

// MACDCross trades the MACD histogram crossing zero: buy when it turns from
// negative to positive, sell on the reverse.
type MACDCross struct {
	fast, slow, signal int
	macd               *indicators.MACD
	prevHist           float64
	bars               int
}

// NewMACDCross creates a MACDCross with the given EMA periods.
func NewMACDCross(fast, slow, signal int) (*MACDCross, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return nil, fmt.Errorf("macd: need 0 < fast < slow and signal > 0, got fast=%d slow=%d signal=%d", fast, slow, signal)
	}
	return &MACDCross{
		fast:   fast,
		slow:   slow,
		signal: signal,
		macd:   indicators.NewMACD(fast, slow, signal),
	}, nil
}

// Name returns "macd".
func (m *MACDCross) Name() string { return "macd" }

// Init resets the averages.
func (m *MACDCross) Init(_ context.Context) error {
	m.macd.Reset()
	m.prevHist = 0
	m.bars = 0
	return nil
}

// OnBar folds the close into the MACD and checks for a histogram zero cross.
func (m *MACDCross) OnBar(bar domain.Bar, _ domain.Indicator) strategy.Signal {
	_, _, hist := m.macd.Next(bar.Close)
	prev := m.prevHist
	m.prevHist = hist
	m.bars++
	if m.bars < 2 {
		return strategy.Hold()
	}

	switch {
	case prev < 0 && hist > 0:
		return strategy.Buy(0)
	case prev > 0 && hist < 0:
		return strategy.Sell(0)
	}
	return strategy.Hold()
}
