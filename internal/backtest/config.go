// Package backtest simulates a strategy over daily bars and computes the
// performance report for the run.
//
// The Engine owns the Ledger for the duration of a run: strategies only see
// bars and indicator rows and answer with a strategy.Signal, and all cash and
// position mutation happens inside Engine.Run. Runs are deterministic; the
// same inputs always produce the same Result.
package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidConfig reports a configuration problem found before the
	// simulation starts.
	ErrInvalidConfig = errors.New("invalid backtest config")

	// ErrNoData reports that no bars were available for the requested
	// symbol and window.
	ErrNoData = errors.New("no market data")
)

// Config holds the immutable parameters of a single run.
type Config struct {
	InitialCapital float64   `json:"initial_capital"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	CommissionRate float64   `json:"commission_rate"`
	SlippageRate   float64   `json:"slippage_rate"`
}

// Validate checks the config. Zero start or end dates are allowed and mean
// "unbounded"; when both are set start must not be after end.
func (c Config) Validate() error {
	if !(c.InitialCapital > 0) || math.IsInf(c.InitialCapital, 0) {
		return fmt.Errorf("%w: initial capital must be positive, got %v", ErrInvalidConfig, c.InitialCapital)
	}
	if !(c.CommissionRate >= 0) || !(c.SlippageRate >= 0) {
		return fmt.Errorf("%w: commission and slippage rates must be non-negative, got %v/%v",
			ErrInvalidConfig, c.CommissionRate, c.SlippageRate)
	}
	if c.CommissionRate+c.SlippageRate >= 1 {
		return fmt.Errorf("%w: commission plus slippage must be below 1, got %v",
			ErrInvalidConfig, c.CommissionRate+c.SlippageRate)
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.StartDate.After(c.EndDate) {
		return fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidConfig,
			c.StartDate.Format(time.DateOnly), c.EndDate.Format(time.DateOnly))
	}
	return nil
}

// feeRate is the combined per-notional transaction cost.
func (c Config) feeRate() float64 {
	return c.CommissionRate + c.SlippageRate
}
