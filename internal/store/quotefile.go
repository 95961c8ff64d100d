package store

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

var _ BarStore = (*QuoteFileStore)(nil)

// quoteHeader is the column layout of a raw quote file.
var quoteHeader = []string{
	"ts_code", "trade_date", "open", "high", "low", "close",
	"pre_close", "change", "pct_chg", "vol", "amount",
}

// QuoteFileStore reads and writes raw daily quote files: one tab-delimited
// text file per instrument at <Dir>/<code>.txt, a header line, then one row
// per trading day with trade_date as YYYYMMDD. The market argument of the
// BarStore methods is ignored.
type QuoteFileStore struct {
	Dir string
}

// NewQuoteFileStore creates a QuoteFileStore rooted at dir.
func NewQuoteFileStore(dir string) *QuoteFileStore {
	return &QuoteFileStore{Dir: dir}
}

func (s *QuoteFileStore) path(symbol string) string {
	return filepath.Join(s.Dir, domain.SymbolCode(strings.ToUpper(symbol))+".txt")
}

// ReadBars parses the quote file for symbol and returns its rows ascending by
// date, keeping those strictly after start minus one day and strictly before
// end plus one day. A missing file returns ErrNotFound.
func (s *QuoteFileStore) ReadBars(_ context.Context, symbol string, _ string, start, end time.Time) ([]domain.Bar, error) {
	f, err := os.Open(s.path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("quote file for %s: %w", symbol, ErrNotFound)
		}
		return nil, err
	}
	defer f.Close()

	all, err := ParseQuotes(f)
	if err != nil {
		return nil, fmt.Errorf("parsing quote file for %s: %w", symbol, err)
	}

	lo := start.AddDate(0, 0, -1)
	hi := end.AddDate(0, 0, 1)
	bars := all[:0]
	for _, b := range all {
		if b.Date.After(lo) && b.Date.Before(hi) {
			bars = append(bars, b)
		}
	}
	return bars, nil
}

// WriteBars merges bars into their symbols' quote files. pre_close, change
// and pct_chg are derived from the previous row of the merged file.
func (s *QuoteFileStore) WriteBars(ctx context.Context, _ string, bars []domain.Bar) error {
	bySymbol := make(map[string][]domain.Bar)
	for _, b := range bars {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}

	for sym, incoming := range bySymbol {
		if err := ctx.Err(); err != nil {
			return err
		}
		var existing []domain.Bar
		if f, err := os.Open(s.path(sym)); err == nil {
			existing, err = ParseQuotes(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("parsing quote file for %s: %w", sym, err)
			}
		}

		merged := make(map[string]domain.Bar, len(existing)+len(incoming))
		for _, b := range existing {
			merged[b.Date.Format(time.DateOnly)] = b
		}
		for _, b := range incoming {
			merged[b.Date.Format(time.DateOnly)] = b
		}
		rows := make([]domain.Bar, 0, len(merged))
		for _, b := range merged {
			rows = append(rows, b)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return err
		}
		f, err := os.Create(s.path(sym))
		if err != nil {
			return err
		}
		if err := FormatQuotes(f, rows); err != nil {
			f.Close()
			return fmt.Errorf("writing quote file for %s: %w", sym, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// ListSymbols returns the codes of all quote files in the directory.
func (s *QuoteFileStore) ListSymbols(_ context.Context, _ string) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var symbols []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			symbols = append(symbols, strings.TrimSuffix(e.Name(), ".txt"))
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ParseQuotes reads a quote file body: it skips the header line and blank
// lines and returns the rows sorted ascending by date.
func ParseQuotes(r io.Reader) ([]domain.Bar, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var bars []domain.Bar
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < len(quoteHeader) {
			return nil, fmt.Errorf("line %d: want %d fields, got %d", line, len(quoteHeader), len(fields))
		}

		date, err := time.Parse("20060102", strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: trade_date: %w", line, err)
		}
		var nums [6]float64
		for i, idx := range []int{2, 3, 4, 5, 9, 10} {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, quoteHeader[idx], err)
			}
			nums[i] = v
		}
		bars = append(bars, domain.Bar{
			Symbol: domain.NormalizeCNSymbol(fields[0]),
			Date:   date,
			Open:   nums[0],
			High:   nums[1],
			Low:    nums[2],
			Close:  nums[3],
			Volume: nums[4],
			Amount: nums[5],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// FormatQuotes writes bars, which must be ascending by date, in quote file
// format.
func FormatQuotes(w io.Writer, bars []domain.Bar) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(quoteHeader, "\t") + "\n"); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	for i, b := range bars {
		var pre, change, pct float64
		if i > 0 {
			pre = bars[i-1].Close
			change = b.Close - pre
			if pre != 0 {
				pct = change / pre * 100
			}
		}
		row := []string{
			b.Symbol, b.Date.Format("20060102"),
			ff(b.Open), ff(b.High), ff(b.Low), ff(b.Close),
			ff(pre), ff(change), ff(pct),
			ff(b.Volume), ff(b.Amount),
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
