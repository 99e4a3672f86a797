// Package marketdata is the read path over the embedded finance store.
// Only guard-approved statements may be passed to Query; schema setup and
// ingestion go through the explicit write helpers, which are never driven
// by model-generated SQL.
package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockshock-backend/internal/models"
)

const (
	createPricesSQL = `CREATE TABLE IF NOT EXISTS stock_prices (
	ticker TEXT,
	date TIMESTAMP,
	open REAL,
	high REAL,
	low REAL,
	close REAL,
	volume INTEGER
)`

	createNewsSQL = `CREATE TABLE IF NOT EXISTS news (
	ticker TEXT,
	date TIMESTAMP,
	title TEXT,
	author TEXT,
	source TEXT,
	url TEXT,
	sentiment REAL
)`
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the price-series and news tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createPricesSQL, createNewsSQL} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure market data schema: %w", err)
		}
	}
	return nil
}

// Query runs one read-only statement and returns its rows as ordered
// column-name maps, preserving the engine's return order.
func (s *Store) Query(ctx context.Context, sqlText string) ([]models.Row, error) {
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []models.Row{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, err
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// PriceBar is one OHLCV observation for a ticker.
type PriceBar struct {
	Ticker string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// NewsItem is one headline with its tone score.
type NewsItem struct {
	Ticker    string
	Date      time.Time
	Title     string
	Author    string
	Source    string
	URL       string
	Sentiment float64
}

// InsertPrices bulk-inserts price bars inside one transaction.
func (s *Store) InsertPrices(ctx context.Context, bars []PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin price insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO stock_prices (ticker, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare price insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert price bar: %w", err)
		}
	}

	return tx.Commit()
}

// InsertNews bulk-inserts news items inside one transaction.
func (s *Store) InsertNews(ctx context.Context, items []NewsItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin news insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO news (ticker, date, title, author, source, url, sentiment) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare news insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range items {
		if _, err := stmt.ExecContext(ctx, n.Ticker, n.Date, n.Title, n.Author, n.Source, n.URL, n.Sentiment); err != nil {
			return fmt.Errorf("insert news item: %w", err)
		}
	}

	return tx.Commit()
}

// ClearPrices removes existing price rows for the given tickers so a
// re-seed does not duplicate series.
func (s *Store) ClearPrices(ctx context.Context, tickers []string) error {
	for _, ticker := range tickers {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM stock_prices WHERE ticker = ?", ticker); err != nil {
			return fmt.Errorf("clear prices for %s: %w", ticker, err)
		}
	}
	return nil
}

// ClearNews removes existing news rows for the given tickers so a
// re-ingest does not duplicate headlines.
func (s *Store) ClearNews(ctx context.Context, tickers []string) error {
	for _, ticker := range tickers {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM news WHERE ticker = ?", ticker); err != nil {
			return fmt.Errorf("clear news for %s: %w", ticker, err)
		}
	}
	return nil
}

// normalizeValue maps driver byte slices to strings so rows marshal as
// JSON text rather than base64.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
