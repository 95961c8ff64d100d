package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ IndicatorStore = (*SQLiteStore)(nil)
var _ InstrumentStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS indicators (
	symbol        TEXT NOT NULL,
	trade_date    TEXT NOT NULL,
	turnover_rate REAL NOT NULL DEFAULT 0,
	volume_ratio  REAL NOT NULL DEFAULT 0,
	pe            REAL NOT NULL DEFAULT 0,
	pb            REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol, trade_date)
);
CREATE TABLE IF NOT EXISTS instruments (
	symbol    TEXT PRIMARY KEY,
	code      TEXT NOT NULL,
	name      TEXT NOT NULL DEFAULT '',
	industry  TEXT NOT NULL DEFAULT '',
	market    TEXT NOT NULL,
	list_date TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore implements IndicatorStore and InstrumentStore backed by a
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// tables if needed, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// IndicatorStore implementation
// ---------------------------------------------------------------------------

// WriteIndicators upserts indicator rows in a single transaction.
func (s *SQLiteStore) WriteIndicators(ctx context.Context, inds []domain.Indicator) error {
	if len(inds) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO indicators (symbol, trade_date, turnover_rate, volume_ratio, pe, pb)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			turnover_rate = excluded.turnover_rate,
			volume_ratio  = excluded.volume_ratio,
			pe            = excluded.pe,
			pb            = excluded.pb`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ind := range inds {
		if _, err := stmt.ExecContext(ctx,
			ind.Symbol, ind.Date.Format(time.DateOnly),
			ind.TurnoverRate, ind.VolumeRatio, ind.PE, ind.PB,
		); err != nil {
			return fmt.Errorf("writing indicator %s %s: %w", ind.Symbol, ind.Date.Format(time.DateOnly), err)
		}
	}
	return tx.Commit()
}

// ReadIndicators returns indicator rows for symbol within [start, end].
func (s *SQLiteStore) ReadIndicators(ctx context.Context, symbol string, start, end time.Time) ([]domain.Indicator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, trade_date, turnover_rate, volume_ratio, pe, pb
		FROM indicators
		WHERE symbol = ? AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date`,
		symbol, start.Format(time.DateOnly), end.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Indicator
	for rows.Next() {
		var (
			ind  domain.Indicator
			date string
		)
		if err := rows.Scan(&ind.Symbol, &date, &ind.TurnoverRate, &ind.VolumeRatio, &ind.PE, &ind.PB); err != nil {
			return nil, err
		}
		ind.Date, err = time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("parsing trade_date %q: %w", date, err)
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// InstrumentStore implementation
// ---------------------------------------------------------------------------

// SaveInstruments upserts instruments in a single transaction.
func (s *SQLiteStore) SaveInstruments(ctx context.Context, instruments []domain.Instrument) error {
	if len(instruments) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO instruments (symbol, code, name, industry, market, list_date)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, in := range instruments {
		if _, err := stmt.ExecContext(ctx, in.Symbol, in.Code, in.Name, in.Industry, string(in.Market), in.ListDate); err != nil {
			return fmt.Errorf("writing instrument %s: %w", in.Symbol, err)
		}
	}
	return tx.Commit()
}

// ListInstruments returns the instruments of a market sorted by symbol.
func (s *SQLiteStore) ListInstruments(ctx context.Context, market domain.Market) ([]domain.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, code, name, industry, market, list_date
		FROM instruments
		WHERE market = ?
		ORDER BY symbol`, string(market))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Instrument
	for rows.Next() {
		var (
			in domain.Instrument
			m  string
		)
		if err := rows.Scan(&in.Symbol, &in.Code, &in.Name, &in.Industry, &m, &in.ListDate); err != nil {
			return nil, err
		}
		in.Market = domain.Market(m)
		out = append(out, in)
	}
	return out, rows.Err()
}
