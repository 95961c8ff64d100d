package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/backtest"
	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteTradesCSV writes the trade log with a header row.
func WriteTradesCSV(w io.Writer, trades []domain.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "symbol", "side", "price", "quantity", "amount", "fee"}); err != nil {
		return err
	}
	for _, t := range trades {
		rec := []string{
			t.Date.Format(time.DateOnly), t.Symbol, string(t.Side),
			ff(t.Price), strconv.FormatInt(t.Quantity, 10), ff(t.Amount), ff(t.Fee),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV writes the equity curve with a header row.
func WriteEquityCSV(w io.Writer, equity []domain.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "value"}); err != nil {
		return err
	}
	for _, p := range equity {
		if err := cw.Write([]string{p.Date.Format(time.DateOnly), ff(p.Value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRoundTripsCSV writes matched round trips with a header row.
func WriteRoundTripsCSV(w io.Writer, trips []backtest.RoundTrip) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"symbol", "entry_date", "exit_date", "quantity", "entry_price", "exit_price", "profit"}); err != nil {
		return err
	}
	for _, rt := range trips {
		rec := []string{
			rt.Symbol, rt.EntryDate.Format(time.DateOnly), rt.ExitDate.Format(time.DateOnly),
			strconv.FormatInt(rt.Quantity, 10), ff(rt.EntryPrice), ff(rt.ExitPrice), ff(rt.Profit),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
