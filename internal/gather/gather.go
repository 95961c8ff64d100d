// Package gather defines the market data gatherers' common surface: the
// Gatherer interface, date ranges, and an on-disk progress tracker that
// makes daily jobs resumable and idempotent.
package gather

import (
	"context"
	"fmt"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/util"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run gathers everything outstanding and returns. It stops early when
	// ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents an inclusive range of trading dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseRange parses start and end as trading dates. An empty end means the
// most recent weekday at or before now.
func ParseRange(start, end string, now time.Time) (DateRange, error) {
	var r DateRange
	var err error
	if r.Start, err = util.ParseDate(start); err != nil {
		return r, fmt.Errorf("start date: %w", err)
	}
	if end == "" {
		r.End = util.LastWeekday(now)
	} else if r.End, err = util.ParseDate(end); err != nil {
		return r, fmt.Errorf("end date: %w", err)
	}
	if r.Start.After(r.End) {
		return r, fmt.Errorf("start date %s is after end date %s",
			r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}
	return r, nil
}
