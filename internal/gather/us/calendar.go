package us

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// sessionSettled is the ET wall-clock time after which a session's daily
// bar, including extended hours, is considered final.
const sessionSettled = 20*time.Hour + 5*time.Minute

// LatestFinishedTradingDay returns the most recent trading day whose session
// has settled, using the Alpaca trading calendar API.
func LatestFinishedTradingDay(apiKey, apiSecret, baseURL string) (time.Time, error) {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}

	now := time.Now().In(et)
	calendar, err := client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}

	days := make([]string, len(calendar))
	for i, day := range calendar {
		days[i] = day.Date
	}
	return latestFinished(days, now)
}

// latestFinished picks the last of the calendar dates (YYYY-MM-DD, ascending)
// whose session has settled as of now, which must be in ET.
func latestFinished(days []string, now time.Time) (time.Time, error) {
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("no trading days returned from calendar")
	}

	today := now.Format(time.DateOnly)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	settled := now.Sub(midnight) >= sessionSettled

	for i := len(days) - 1; i >= 0; i-- {
		if days[i] == today && !settled {
			continue
		}
		if days[i] > today {
			continue
		}
		t, err := time.Parse(time.DateOnly, days[i])
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("could not determine latest finished trading day")
}
