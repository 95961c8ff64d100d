package backtest

import (
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

// RoundTrip is a sell matched against the buy lots it closed.
type RoundTrip struct {
	Symbol     string    `json:"symbol"`
	EntryDate  time.Time `json:"entry_date"` // date of the oldest lot consumed
	ExitDate   time.Time `json:"exit_date"`
	Quantity   int64     `json:"quantity"`
	EntryPrice float64   `json:"entry_price"` // quantity-weighted over the lots consumed
	ExitPrice  float64   `json:"exit_price"`
	Profit     float64   `json:"profit"`
}

type lot struct {
	date      time.Time
	price     float64
	remaining int64
}

// MatchRoundTrips pairs every sell with the open buy lots of the same symbol
// in first-in first-out order. Only lots bought on an earlier date than the
// sell are eligible. Profit is (sell price - lot price) per matched share,
// before fees. Sells that match no lot produce no round trip.
func MatchRoundTrips(trades []domain.Trade) []RoundTrip {
	open := make(map[string][]*lot)
	var trips []RoundTrip

	for _, tr := range trades {
		switch tr.Side {
		case domain.SideBuy:
			open[tr.Symbol] = append(open[tr.Symbol], &lot{date: tr.Date, price: tr.Price, remaining: tr.Quantity})

		case domain.SideSell:
			queue := open[tr.Symbol]
			want := tr.Quantity
			var matched int64
			var entryNotional, profit float64
			var entryDate time.Time

			for len(queue) > 0 && want > 0 && queue[0].date.Before(tr.Date) {
				l := queue[0]
				take := min(l.remaining, want)
				if matched == 0 {
					entryDate = l.date
				}
				matched += take
				want -= take
				entryNotional += l.price * float64(take)
				profit += (tr.Price - l.price) * float64(take)
				l.remaining -= take
				if l.remaining == 0 {
					queue = queue[1:]
				}
			}
			open[tr.Symbol] = queue

			if matched == 0 {
				continue
			}
			trips = append(trips, RoundTrip{
				Symbol:     tr.Symbol,
				EntryDate:  entryDate,
				ExitDate:   tr.Date,
				Quantity:   matched,
				EntryPrice: entryNotional / float64(matched),
				ExitPrice:  tr.Price,
				Profit:     profit,
			})
		}
	}
	return trips
}
