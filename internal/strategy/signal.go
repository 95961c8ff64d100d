package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

var (
	// ErrUnknownStrategy is returned when a strategy name is not registered.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrInvalidParams is returned when a factory rejects its parameters.
	ErrInvalidParams = errors.New("invalid strategy params")
)

// Action is what a strategy wants done on a bar.
type Action string

const (
	ActionHold Action = "hold"
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Signal is a strategy decision. A zero Quantity leaves sizing to the
// engine: buys take as much as cash allows and sells close the position.
type Signal struct {
	Action   Action `json:"action"`
	Quantity int64  `json:"quantity,omitempty"`
}

// Hold returns a signal that does nothing.
func Hold() Signal { return Signal{Action: ActionHold} }

// Buy returns a buy signal for qty shares; 0 means as many as affordable.
func Buy(qty int64) Signal { return Signal{Action: ActionBuy, Quantity: qty} }

// Sell returns a sell signal for qty shares; 0 means the whole position.
func Sell(qty int64) Signal { return Signal{Action: ActionSell, Quantity: qty} }

// Validate checks that the signal is well formed.
func (s Signal) Validate() error {
	switch s.Action {
	case ActionHold, ActionBuy, ActionSell:
	default:
		return fmt.Errorf("invalid action %q", s.Action)
	}
	if s.Quantity < 0 {
		return fmt.Errorf("negative quantity %d", s.Quantity)
	}
	return nil
}

// Compile-time interface check.
var _ Strategy = (*Func)(nil)

// Func adapts a stateless decision function to the Strategy interface.
type Func struct {
	Label  string
	Decide func(bar domain.Bar, ind domain.Indicator) Signal
}

// Name returns the function's label, or "func" when unset.
func (f *Func) Name() string {
	if f.Label == "" {
		return "func"
	}
	return f.Label
}

// Init is a no-op; the function carries no state.
func (f *Func) Init(_ context.Context) error { return nil }

// OnBar delegates to Decide, holding when it is nil.
func (f *Func) OnBar(bar domain.Bar, ind domain.Indicator) Signal {
	if f.Decide == nil {
		return Hold()
	}
	return f.Decide(bar, ind)
}
