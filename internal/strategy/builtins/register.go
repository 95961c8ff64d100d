package builtins

import "github.com/Svanik-yan/trading-backtest/internal/strategy"

// Default parameters for the built-in strategies.
const (
	DefaultShortPeriod = 5
	DefaultLongPeriod  = 20
	DefaultMACDFast    = 12
	DefaultMACDSlow    = 26
	DefaultMACDSignal  = 9
	DefaultRSIPeriod   = 14
	DefaultOversold    = 30
	DefaultOverbought  = 70
)

// Register adds every built-in strategy to r.
//
// Recognised parameters:
//
//	sma-cross, ma-trend: short, long
//	macd:                fast, slow, signal
//	rsi:                 period, oversold, overbought
func Register(r *strategy.Registry) {
	r.Register("sma-cross", func(p strategy.Params) (strategy.Strategy, error) {
		s, err := NewSMACross(p.Int("short", DefaultShortPeriod), p.Int("long", DefaultLongPeriod))
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	r.Register("ma-trend", func(p strategy.Params) (strategy.Strategy, error) {
		s, err := NewMATrend(p.Int("short", DefaultShortPeriod), p.Int("long", DefaultLongPeriod))
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	r.Register("macd", func(p strategy.Params) (strategy.Strategy, error) {
		s, err := NewMACDCross(
			p.Int("fast", DefaultMACDFast),
			p.Int("slow", DefaultMACDSlow),
			p.Int("signal", DefaultMACDSignal),
		)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	r.Register("rsi", func(p strategy.Params) (strategy.Strategy, error) {
		s, err := NewRSIReversion(
			p.Int("period", DefaultRSIPeriod),
			p.Float("oversold", DefaultOversold),
			p.Float("overbought", DefaultOverbought),
		)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// NewRegistry returns a registry holding all built-in strategies.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	Register(r)
	return r
}
