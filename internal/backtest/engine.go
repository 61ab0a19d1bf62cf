// Package backtest runs the walk-forward loop: a strictly sequential fold
// over scan dates in which every decision uses only information dated at
// or before the date being processed. Position occupancy at date N depends
// on every decision made before N, so dates are never processed out of
// order or concurrently.
package backtest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cbeeswax/stock-alert/internal/config"
	"github.com/cbeeswax/stock-alert/internal/dates"
	"github.com/cbeeswax/stock-alert/internal/marketdata"
	"github.com/cbeeswax/stock-alert/internal/prebuy"
	"github.com/cbeeswax/stock-alert/internal/scanner"
	"github.com/cbeeswax/stock-alert/internal/sim"
	"github.com/cbeeswax/stock-alert/internal/tracker"
)

// Engine wires the scanner, the pre-trade filter, the simulator, and the
// position tracker into the walk-forward loop.
type Engine struct {
	cfg      config.Config
	provider marketdata.Provider
	scanner  *scanner.Scanner
	filter   *prebuy.Filter
	store    tracker.Store
	tickers  []string
}

func NewEngine(cfg config.Config, provider marketdata.Provider, scn *scanner.Scanner, filter *prebuy.Filter, store tracker.Store, tickers []string) *Engine {
	return &Engine{
		cfg:      cfg,
		provider: provider,
		scanner:  scn,
		filter:   filter,
		store:    store,
		tickers:  tickers,
	}
}

// Run folds every scan date between the configured start and end into the
// trade ledger. Per-ticker data problems skip that ticker; only structural
// faults (bad date range, storage failure) abort the run.
func (e *Engine) Run(ctx context.Context) ([]sim.Outcome, error) {
	scanDates, err := dates.ScanDates(e.cfg.From, e.cfg.To, e.cfg.ScanFrequency)
	if err != nil {
		return nil, fmt.Errorf("Run | invalid scan calendar: %w", err)
	}

	log.Printf("Run | Walk-forward backtest: %d scan dates [%s-%s], %d tickers",
		len(scanDates), e.cfg.From.Format("2006-01-02"), e.cfg.To.Format("2006-01-02"), len(e.tickers))

	var ledger []sim.Outcome
	for _, day := range scanDates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dayLedger, err := e.runScanDate(ctx, day)
		if err != nil {
			return nil, err
		}
		ledger = append(ledger, dayLedger...)
	}

	log.Printf("Run | Backtest complete: %d ledger rows", len(ledger))
	return ledger, nil
}

func (e *Engine) runScanDate(ctx context.Context, day time.Time) ([]sim.Outcome, error) {
	open, err := e.store.Count(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("runScanDate | position count failed at %s: %w", day.Format("2006-01-02"), err)
	}
	if open >= e.cfg.MaxOpenPositions {
		log.Printf("runScanDate | %s: at capacity (%d open), skipping scan", day.Format("2006-01-02"), open)
		return nil, nil
	}

	signals, err := e.scanner.Scan(ctx, day, e.tickers)
	if err != nil {
		return nil, fmt.Errorf("runScanDate | scan failed at %s: %w", day.Format("2006-01-02"), err)
	}
	if e.cfg.StrategyFilter != "" {
		signals = filterByStrategy(signals, e.cfg.StrategyFilter)
	}
	if len(signals) == 0 {
		return nil, nil
	}

	trades, err := e.filter.Check(ctx, signals, day)
	if err != nil {
		return nil, err
	}

	perStrategy, err := e.store.CountByStrategy(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("runScanDate | strategy count failed at %s: %w", day.Format("2006-01-02"), err)
	}

	budget := e.cfg.MaxTradesPerScan
	if slots := e.cfg.MaxOpenPositions - open; slots < budget {
		budget = slots
	}

	// Drop tickers already held and strategies at their cap, then cut to
	// the day's budget. The filter's score ordering is authoritative; no
	// re-sort here.
	admitted := trades[:0]
	for _, t := range trades {
		if len(admitted) >= budget {
			break
		}
		held, err := e.store.IsInPosition(ctx, t.Ticker, day)
		if err != nil {
			return nil, fmt.Errorf("runScanDate | occupancy check failed for %s: %w", t.Ticker, err)
		}
		if held {
			continue
		}
		name := string(t.Strategy)
		if perStrategy[name] >= e.cfg.StrategyCap(name) {
			log.Printf("runScanDate | %s [%s]: strategy at capacity (%d open), skipping", t.Ticker, name, perStrategy[name])
			continue
		}
		admitted = append(admitted, t)
		perStrategy[name]++
	}
	if len(admitted) == 0 {
		return nil, nil
	}
	log.Printf("runScanDate | %s: %d signal(s), %d admitted trade(s)", day.Format("2006-01-02"), len(signals), len(admitted))

	var ledger []sim.Outcome
	for _, trade := range admitted {
		history, err := e.provider.History(ctx, trade.Ticker)
		if err != nil {
			log.Printf("runScanDate | %s: history fetch failed, skipping: %v", trade.Ticker, err)
			continue
		}
		if len(history) == 0 {
			continue
		}

		outcomes := sim.Simulate(trade, history, e.cfg.Sim)
		if len(outcomes) == 0 {
			continue
		}

		// The final row carries the realized entry and holding period;
		// register the occupancy window so later scan dates see it.
		final := outcomes[len(outcomes)-1]
		added, err := e.store.AddPosition(ctx, tracker.Position{
			Ticker:     trade.Ticker,
			EntryDate:  final.EntryDate,
			EntryPrice: final.EntryPrice,
			Strategy:   string(trade.Strategy),
			StopLoss:   final.InitialStop,
			Target:     final.Target,
			ExitDate:   final.EntryDate.AddDate(0, 0, final.HoldingDays),
		})
		if err != nil {
			return nil, fmt.Errorf("runScanDate | add position failed for %s: %w", trade.Ticker, err)
		}
		if !added {
			log.Printf("runScanDate | %s: duplicate position rejected, dropping trade", trade.Ticker)
			continue
		}
		ledger = append(ledger, outcomes...)
	}
	return ledger, nil
}

func filterByStrategy(signals []scanner.Signal, name string) []scanner.Signal {
	out := signals[:0]
	for _, s := range signals {
		if string(s.Strategy) == name {
			out = append(out, s)
		}
	}
	return out
}
