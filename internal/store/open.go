package store

import (
	"errors"
	"fmt"
	"os"
)

// Bar data sources accepted by OpenSet.
const (
	SourceParquet = "parquet"
	SourceQuotes  = "quotes"
)

// Set bundles the stores a backtest reads from. Indicators and Instruments
// are nil when no SQLite database exists yet.
type Set struct {
	Bars        BarStore
	Indicators  IndicatorStore
	Instruments InstrumentStore

	db *SQLiteStore
}

// OpenSet opens the bar store named by source, rooted at dataDir for
// parquet or quoteDir for raw quote files, plus the SQLite database at
// sqlitePath if it exists. Quote files carry no indicator rows, so for that
// source the database only supplies instruments.
func OpenSet(source, dataDir, quoteDir, sqlitePath string) (*Set, error) {
	set := &Set{}
	switch source {
	case SourceParquet, "":
		set.Bars = NewParquetStore(dataDir)
	case SourceQuotes:
		set.Bars = NewQuoteFileStore(quoteDir)
	default:
		return nil, fmt.Errorf("unknown bar source %q (want %s or %s)", source, SourceParquet, SourceQuotes)
	}

	if sqlitePath == "" {
		return set, nil
	}
	if _, err := os.Stat(sqlitePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return set, nil
		}
		return nil, err
	}
	db, err := NewSQLiteStore(sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", sqlitePath, err)
	}
	set.db = db
	set.Instruments = db
	if source != SourceQuotes {
		set.Indicators = db
	}
	return set, nil
}

// Close releases the SQLite connection if one was opened.
func (s *Set) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
