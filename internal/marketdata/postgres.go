package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/cbeeswax/stock-alert/internal/bar"
)

// PostgresCache persists daily bars to Postgres so incremental runs reuse
// earlier downloads.
type PostgresCache struct {
	db *sql.DB
}

// NewPostgresCache opens the connection, ensures the schema, and returns
// the cache.
func NewPostgresCache(connStr string, maxOpen, maxIdle int) (*PostgresCache, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresCache | failed to open db: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresCache | failed to ping db: %w", err)
	}

	c := &PostgresCache{db: db}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *PostgresCache) ensureSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_bars (
			ticker TEXT NOT NULL,
			date DATE NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (ticker, date)
		)`)
	if err != nil {
		return fmt.Errorf("ensureSchema | failed to create daily_bars: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *PostgresCache) Close() error { return c.db.Close() }

func (c *PostgresCache) GetBars(ctx context.Context, ticker string) ([]bar.Bar, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT ticker, date, open, high, low, close, volume
		FROM daily_bars WHERE ticker = $1 ORDER BY date ASC`,
		strings.ToUpper(ticker))
	if err != nil {
		return nil, fmt.Errorf("GetBars | query failed for %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []bar.Bar
	for rows.Next() {
		var b bar.Bar
		if err := rows.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("GetBars | scan failed for %s: %w", ticker, err)
		}
		b.Date = b.Date.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

func (c *PostgresCache) SaveBars(ctx context.Context, bars []bar.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveBars | failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_bars (ticker, date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, date) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("SaveBars | failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if err := b.Validate(); err != nil {
			tx.Rollback()
			return fmt.Errorf("SaveBars | invalid bar for %s at %s: %w", b.Ticker, b.Date, err)
		}
		if _, err := stmt.ExecContext(ctx, strings.ToUpper(b.Ticker), b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("SaveBars | insert failed for %s at %s: %w", b.Ticker, b.Date, err)
		}
	}
	return tx.Commit()
}
