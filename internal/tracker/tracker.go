// Package tracker maintains the set of open positions across the simulated
// or live timeline. Its single job is answering "is this ticker already
// held as of date X" correctly, which is what keeps the walk-forward loop
// free of look-ahead: positions opened in the future must be invisible to
// earlier scan dates.
package tracker

import (
	"context"
	"time"
)

// Position is one open entry. A position occupies its ticker over
// [EntryDate, ExitDate); ExitDate is the projected exit computed at entry
// time, not the realized one.
type Position struct {
	Ticker     string
	EntryDate  time.Time
	EntryPrice float64
	Strategy   string
	StopLoss   float64
	Target     float64
	ExitDate   time.Time
}

// occupies reports whether the position holds its ticker at asOf.
func (p Position) occupies(asOf time.Time) bool {
	return !p.EntryDate.After(asOf) && asOf.Before(p.ExitDate)
}

// Store tracks open positions. Implementations must enforce single
// occupancy: at most one open entry per ticker at any instant. The memory
// implementation resets per backtest run; the Postgres implementation
// survives process restarts for live operation. Semantics are identical.
type Store interface {
	// IsInPosition reports whether an open position for ticker exists with
	// entry date <= asOf < projected exit date.
	IsInPosition(ctx context.Context, ticker string, asOf time.Time) (bool, error)

	// AddPosition inserts the position. It returns false, without error,
	// when a conflicting open position for the same ticker already occupies
	// the entry date.
	AddPosition(ctx context.Context, p Position) (bool, error)

	// OpenTickers lists tickers with a position open as of asOf.
	OpenTickers(ctx context.Context, asOf time.Time) ([]string, error)

	// AllPositions returns every tracked open position keyed by ticker.
	AllPositions(ctx context.Context) (map[string]Position, error)

	// Count returns the number of positions open as of asOf.
	Count(ctx context.Context, asOf time.Time) (int, error)

	// CountByStrategy returns the number of positions open as of asOf,
	// keyed by strategy.
	CountByStrategy(ctx context.Context, asOf time.Time) (map[string]int, error)

	// ClosePosition closes the open position for ticker at exitPrice,
	// returning false when no open position exists.
	ClosePosition(ctx context.Context, ticker string, exitPrice float64) (bool, error)
}
