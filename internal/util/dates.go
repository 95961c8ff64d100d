package util

import (
	"fmt"
	"strings"
	"time"
)

// CompactDate is the YYYYMMDD layout used by quote files and the Tushare API.
const CompactDate = "20060102"

// ParseDate parses a trading date given as "2006-01-02" or "20060102". The
// result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, CompactDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or YYYYMMDD", s)
}

// FormatCompact formats t as YYYYMMDD.
func FormatCompact(t time.Time) string {
	return t.Format(CompactDate)
}

// Midnight truncates t to the start of its calendar day in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// LastWeekday returns the most recent Monday-to-Friday date at or before t.
func LastWeekday(t time.Time) time.Time {
	t = Midnight(t)
	for IsWeekend(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
