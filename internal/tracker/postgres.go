package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists positions for live operation. State survives
// restarts; every mutation is written through before it is visible.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens the connection, ensures the schema, and returns the
// store.
func NewPostgres(connStr string, maxOpen, maxIdle int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("NewPostgres | failed to open db: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgres | failed to ping db: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			ticker TEXT NOT NULL,
			entry_date DATE NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			strategy TEXT NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			target DOUBLE PRECISION NOT NULL,
			exit_date DATE NOT NULL,
			closed BOOLEAN NOT NULL DEFAULT FALSE,
			exit_price DOUBLE PRECISION,
			PRIMARY KEY (ticker, entry_date)
		)`)
	if err != nil {
		return fmt.Errorf("ensureSchema | failed to create positions: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) IsInPosition(ctx context.Context, ticker string, asOf time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM positions
			WHERE ticker = $1 AND NOT closed AND entry_date <= $2 AND exit_date > $2
		)`, positionKey(ticker), asOf).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("IsInPosition | query failed for %s: %w", ticker, err)
	}
	return exists, nil
}

func (s *PostgresStore) AddPosition(ctx context.Context, p Position) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("AddPosition | failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var conflict bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM positions
			WHERE ticker = $1 AND NOT closed AND entry_date <= $2 AND exit_date > $2
		)`, positionKey(p.Ticker), p.EntryDate).Scan(&conflict)
	if err != nil {
		return false, fmt.Errorf("AddPosition | conflict check failed for %s: %w", p.Ticker, err)
	}
	if conflict {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO positions (ticker, entry_date, entry_price, strategy, stop_loss, target, exit_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, entry_date) DO UPDATE SET
			entry_price = EXCLUDED.entry_price, strategy = EXCLUDED.strategy,
			stop_loss = EXCLUDED.stop_loss, target = EXCLUDED.target,
			exit_date = EXCLUDED.exit_date, closed = FALSE, exit_price = NULL`,
		positionKey(p.Ticker), p.EntryDate, p.EntryPrice, p.Strategy, p.StopLoss, p.Target, p.ExitDate)
	if err != nil {
		return false, fmt.Errorf("AddPosition | insert failed for %s: %w", p.Ticker, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("AddPosition | commit failed for %s: %w", p.Ticker, err)
	}
	return true, nil
}

func (s *PostgresStore) OpenTickers(ctx context.Context, asOf time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker FROM positions
		WHERE NOT closed AND entry_date <= $1 AND exit_date > $1
		ORDER BY ticker ASC`, asOf)
	if err != nil {
		return nil, fmt.Errorf("OpenTickers | query failed: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("OpenTickers | scan failed: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

func (s *PostgresStore) AllPositions(ctx context.Context) (map[string]Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, entry_date, entry_price, strategy, stop_loss, target, exit_date
		FROM positions WHERE NOT closed`)
	if err != nil {
		return nil, fmt.Errorf("AllPositions | query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Position)
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.Ticker, &p.EntryDate, &p.EntryPrice, &p.Strategy, &p.StopLoss, &p.Target, &p.ExitDate); err != nil {
			return nil, fmt.Errorf("AllPositions | scan failed: %w", err)
		}
		p.EntryDate = p.EntryDate.UTC()
		p.ExitDate = p.ExitDate.UTC()
		out[strings.ToUpper(p.Ticker)] = p
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, asOf time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM positions
		WHERE NOT closed AND entry_date <= $1 AND exit_date > $1`, asOf).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("Count | query failed: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountByStrategy(ctx context.Context, asOf time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, COUNT(*) FROM positions
		WHERE NOT closed AND entry_date <= $1 AND exit_date > $1
		GROUP BY strategy`, asOf)
	if err != nil {
		return nil, fmt.Errorf("CountByStrategy | query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var strategy string
		var n int
		if err := rows.Scan(&strategy, &n); err != nil {
			return nil, fmt.Errorf("CountByStrategy | scan failed: %w", err)
		}
		counts[strategy] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) ClosePosition(ctx context.Context, ticker string, exitPrice float64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions SET closed = TRUE, exit_price = $2
		WHERE ticker = $1 AND NOT closed`, positionKey(ticker), exitPrice)
	if err != nil {
		return false, fmt.Errorf("ClosePosition | update failed for %s: %w", ticker, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ClosePosition | rows affected for %s: %w", ticker, err)
	}
	return affected > 0, nil
}
