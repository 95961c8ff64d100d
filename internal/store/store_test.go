package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("600000.sh", "cn", 2024)
	wantBarPath := filepath.Join("/data", "cn", "daily", "600000.SH", "2024.parquet")
	if bp != wantBarPath {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, wantBarPath)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Date: day(2024, 1, 3), Open: 185.5, High: 187.0, Low: 185.0, Close: 186.0, Volume: 45000000, Amount: 8.4e9},
		{Symbol: "AAPL", Date: day(2024, 1, 2), Open: 185.0, High: 186.5, Low: 184.0, Close: 185.5, Volume: 50000000, Amount: 9.2e9},
		{Symbol: "AAPL", Date: day(2023, 12, 29), Open: 184.0, High: 185.0, Low: 183.0, Close: 184.5, Volume: 40000000},
	}
	if err := ps.WriteBars(ctx, "us", bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "AAPL", "us", day(2023, 12, 1), day(2024, 1, 2))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 184.5 || got[1].Close != 185.5 {
		t.Errorf("closes = %v, %v; want 184.5, 185.5", got[0].Close, got[1].Close)
	}
	if !got[1].Date.Equal(day(2024, 1, 2)) {
		t.Errorf("second bar date = %v, want 2024-01-02", got[1].Date)
	}
	if got[1].Amount != 9.2e9 {
		t.Errorf("Amount = %v, want 9.2e9", got[1].Amount)
	}
}

func TestParquetStoreReadBarsNotFound(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	_, err := ps.ReadBars(context.Background(), "NOPE", "us", day(2024, 1, 1), day(2024, 12, 31))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadBars error = %v, want ErrNotFound", err)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	first := []domain.Bar{{Symbol: "MSFT", Date: day(2024, 3, 1), Open: 400, High: 405, Low: 399, Close: 403, Volume: 3e7}}
	if err := ps.WriteBars(ctx, "us", first); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Same symbol+year merges; the repeated date is replaced.
	second := []domain.Bar{
		{Symbol: "MSFT", Date: day(2024, 3, 1), Open: 400, High: 405, Low: 399, Close: 404, Volume: 3e7},
		{Symbol: "MSFT", Date: day(2024, 3, 4), Open: 403, High: 410, Low: 402, Close: 408, Volume: 3.5e7},
	}
	if err := ps.WriteBars(ctx, "us", second); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := ps.ReadBars(ctx, "MSFT", "us", day(2024, 1, 1), day(2024, 12, 31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
	if got[0].Close != 404 {
		t.Errorf("merged close = %v, want 404", got[0].Close)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "600000.SH", Date: day(2024, 1, 2), Close: 7.1},
		{Symbol: "000001.SZ", Date: day(2024, 1, 2), Close: 9.3},
	}
	if err := ps.WriteBars(ctx, "cn", bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx, "cn")
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "000001.SZ" || symbols[1] != "600000.SH" {
		t.Errorf("ListSymbols = %v, want [000001.SZ 600000.SH]", symbols)
	}

	empty, err := ps.ListSymbols(ctx, "us")
	if err != nil || len(empty) != 0 {
		t.Errorf("ListSymbols(us) = %v, %v; want empty, nil", empty, err)
	}
}

func TestSQLiteStoreIndicators(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()
	ctx := context.Background()

	inds := []domain.Indicator{
		{Symbol: "600000.SH", Date: day(2024, 1, 3), TurnoverRate: 0.4, VolumeRatio: 1.1, PE: 5.2, PB: 0.45},
		{Symbol: "600000.SH", Date: day(2024, 1, 2), TurnoverRate: 0.3, VolumeRatio: 0.9, PE: 5.1, PB: 0.44},
		{Symbol: "000001.SZ", Date: day(2024, 1, 2), TurnoverRate: 0.6},
	}
	if err := s.WriteIndicators(ctx, inds); err != nil {
		t.Fatalf("WriteIndicators: %v", err)
	}
	// Upsert replaces the row for an existing (symbol, date).
	if err := s.WriteIndicators(ctx, []domain.Indicator{{Symbol: "600000.SH", Date: day(2024, 1, 3), TurnoverRate: 0.5}}); err != nil {
		t.Fatalf("WriteIndicators (upsert): %v", err)
	}

	got, err := s.ReadIndicators(ctx, "600000.SH", day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("ReadIndicators: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadIndicators returned %d rows, want 2", len(got))
	}
	if !got[0].Date.Equal(day(2024, 1, 2)) || got[0].PE != 5.1 {
		t.Errorf("first row = %+v, want 2024-01-02 with PE 5.1", got[0])
	}
	if got[1].TurnoverRate != 0.5 || got[1].PE != 0 {
		t.Errorf("upserted row = %+v, want turnover 0.5 and PE 0", got[1])
	}

	none, err := s.ReadIndicators(ctx, "600000.SH", day(2023, 1, 1), day(2023, 12, 31))
	if err != nil || len(none) != 0 {
		t.Errorf("ReadIndicators outside window = %v, %v; want empty", none, err)
	}
}

func TestSQLiteStoreInstruments(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	err = s.SaveInstruments(ctx, []domain.Instrument{
		{Symbol: "600000.SH", Code: "600000", Name: "浦发银行", Industry: "银行", Market: domain.MarketCN, ListDate: "19991110"},
		{Symbol: "000001.SZ", Code: "000001", Name: "平安银行", Industry: "银行", Market: domain.MarketCN, ListDate: "19910403"},
		{Symbol: "AAPL", Code: "AAPL", Name: "Apple", Market: domain.MarketUS},
	})
	if err != nil {
		t.Fatalf("SaveInstruments: %v", err)
	}

	got, err := s.ListInstruments(ctx, domain.MarketCN)
	if err != nil {
		t.Fatalf("ListInstruments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListInstruments returned %d, want 2", len(got))
	}
	if got[0].Symbol != "000001.SZ" || got[0].Name != "平安银行" || got[0].Market != domain.MarketCN {
		t.Errorf("first instrument = %+v", got[0])
	}
}

const sampleQuotes = "ts_code\ttrade_date\topen\thigh\tlow\tclose\tpre_close\tchange\tpct_chg\tvol\tamount\n" +
	"000001.SZ\t20240105\t9.30\t9.40\t9.20\t9.35\t9.30\t0.05\t0.5376\t1200\t11220\n" +
	"000001.SZ\t20240103\t9.10\t9.25\t9.05\t9.20\t9.15\t0.05\t0.5464\t1000\t9200\n" +
	"\n" +
	"000001.SZ\t20240104\t9.20\t9.35\t9.15\t9.30\t9.20\t0.10\t1.0870\t1100\t10230\n" +
	"000001.SZ\t20240108\t9.35\t9.50\t9.30\t9.45\t9.35\t0.10\t1.0695\t1300\t12285\n"

func TestParseQuotes(t *testing.T) {
	bars, err := ParseQuotes(strings.NewReader(sampleQuotes))
	if err != nil {
		t.Fatalf("ParseQuotes: %v", err)
	}
	if len(bars) != 4 {
		t.Fatalf("ParseQuotes returned %d bars, want 4", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			t.Fatalf("bars not ascending at %d: %v", i, bars)
		}
	}
	first := bars[0]
	if !first.Date.Equal(day(2024, 1, 3)) || first.Close != 9.20 || first.Volume != 1000 || first.Amount != 9200 {
		t.Errorf("first bar = %+v", first)
	}
	if first.Symbol != "000001.SZ" {
		t.Errorf("Symbol = %q, want 000001.SZ", first.Symbol)
	}

	if _, err := ParseQuotes(strings.NewReader("header\n000001.SZ\t2024\t1\n")); err == nil {
		t.Error("ParseQuotes accepted a short row")
	}
	if _, err := ParseQuotes(strings.NewReader("header\n000001.SZ\tbad\t1\t1\t1\t1\t1\t1\t1\t1\t1\n")); err == nil {
		t.Error("ParseQuotes accepted a bad date")
	}
}

func TestQuoteFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	qs := NewQuoteFileStore(dir)
	ctx := context.Background()

	bars, err := ParseQuotes(strings.NewReader(sampleQuotes))
	if err != nil {
		t.Fatalf("ParseQuotes: %v", err)
	}
	if err := qs.WriteBars(ctx, "cn", bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := qs.ListSymbols(ctx, "cn")
	if err != nil || len(symbols) != 1 || symbols[0] != "000001" {
		t.Fatalf("ListSymbols = %v, %v; want [000001]", symbols, err)
	}

	// Window bounds are inclusive of whole days.
	got, err := qs.ReadBars(ctx, "000001.SZ", "cn", day(2024, 1, 4), day(2024, 1, 5))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if !got[0].Date.Equal(day(2024, 1, 4)) || !got[1].Date.Equal(day(2024, 1, 5)) {
		t.Errorf("dates = %v, %v", got[0].Date, got[1].Date)
	}
	if got[1].Close != 9.35 {
		t.Errorf("close = %v, want 9.35", got[1].Close)
	}

	outside, err := qs.ReadBars(ctx, "000001", "cn", day(2023, 1, 1), day(2023, 12, 31))
	if err != nil || len(outside) != 0 {
		t.Errorf("ReadBars outside window = %v, %v; want empty", outside, err)
	}
}

func TestQuoteFileStoreMissingFile(t *testing.T) {
	qs := NewQuoteFileStore(t.TempDir())
	_, err := qs.ReadBars(context.Background(), "600000.SH", "cn", day(2024, 1, 1), day(2024, 1, 31))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadBars error = %v, want ErrNotFound", err)
	}
}

func TestOpenSet(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "backtest.db")

	set, err := OpenSet(SourceParquet, dir, "", dbPath)
	if err != nil {
		t.Fatalf("OpenSet: %v", err)
	}
	if _, ok := set.Bars.(*ParquetStore); !ok {
		t.Errorf("bars = %T, want *ParquetStore", set.Bars)
	}
	if set.Indicators != nil || set.Instruments != nil {
		t.Error("expected no SQLite stores before the database exists")
	}
	set.Close()

	db, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	db.Close()

	set, err = OpenSet(SourceQuotes, dir, filepath.Join(dir, "quotes"), dbPath)
	if err != nil {
		t.Fatalf("OpenSet: %v", err)
	}
	defer set.Close()
	if _, ok := set.Bars.(*QuoteFileStore); !ok {
		t.Errorf("bars = %T, want *QuoteFileStore", set.Bars)
	}
	if set.Indicators != nil {
		t.Error("quote source should not read indicators")
	}
	if set.Instruments == nil {
		t.Error("expected instruments from the existing database")
	}

	if _, err := OpenSet("csv", dir, "", ""); err == nil {
		t.Error("OpenSet accepted an unknown source")
	}
}
