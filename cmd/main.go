package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cbeeswax/stock-alert/internal/backtest"
	"github.com/cbeeswax/stock-alert/internal/config"
	"github.com/cbeeswax/stock-alert/internal/marketdata"
	"github.com/cbeeswax/stock-alert/internal/notifier"
	"github.com/cbeeswax/stock-alert/internal/prebuy"
	"github.com/cbeeswax/stock-alert/internal/scanner"
	"github.com/cbeeswax/stock-alert/internal/tracker"
)

func main() {
	cfg := config.MustLoadConfig()
	log.Println("Starting Stock Alert in mode:", cfg.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	tickers, err := loadTickers(cfg)
	if err != nil {
		log.Fatalf("main | failed to load ticker universe: %v", err)
	}
	log.Printf("main | Universe: %d tickers", len(tickers))

	provider, cleanup, err := buildProvider(cfg)
	if err != nil {
		log.Fatalf("main | failed to build market data provider: %v", err)
	}
	defer cleanup()

	scn := scanner.New(provider, cfg.RegimeIndex)
	filter := prebuy.New(provider, cfg.MinLiquidityUSD, cfg.Sim)

	switch cfg.Mode {
	case "backtest":
		runBacktest(ctx, cfg, provider, scn, filter, tickers)
	case "scan":
		runScan(ctx, cfg, scn, filter, tickers)
	default:
		log.Fatalf("main | Unsupported mode: %s", cfg.Mode)
	}
}

// buildProvider wires the bar cache (Postgres when configured, memory
// otherwise) in front of the Alpaca downloader. Without API keys the
// provider serves cached data only.
func buildProvider(cfg config.Config) (marketdata.Provider, func(), error) {
	var fetcher marketdata.Fetcher
	if cfg.AlpacaAPIKey != "" {
		fetcher = marketdata.NewAlpacaFetcher(cfg.AlpacaAPIKey, cfg.AlpacaAPISecret)
	} else {
		log.Println("buildProvider | No Alpaca credentials, serving cached bars only")
	}

	backfillFrom := cfg.From.AddDate(-2, 0, 0)

	if cfg.DBConnStr != "" {
		cache, err := marketdata.NewPostgresCache(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
		if err != nil {
			return nil, nil, err
		}
		log.Println("buildProvider | Connected to Postgres bar cache")
		return marketdata.NewCachingProvider(cache, fetcher, backfillFrom), func() { cache.Close() }, nil
	}

	return marketdata.NewCachingProvider(marketdata.NewMemoryCache(), fetcher, backfillFrom), func() {}, nil
}

// buildTracker picks the persisted store for live scanning when a database
// is configured, and the ephemeral one otherwise.
func buildTracker(cfg config.Config) (tracker.Store, func(), error) {
	if cfg.Mode == "scan" && cfg.DBConnStr != "" {
		store, err := tracker.NewPostgres(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
		if err != nil {
			return nil, nil, err
		}
		log.Println("buildTracker | Using persisted position store")
		return store, func() { store.Close() }, nil
	}
	return tracker.NewMemory(), func() {}, nil
}

func runBacktest(ctx context.Context, cfg config.Config, provider marketdata.Provider, scn *scanner.Scanner, filter *prebuy.Filter, tickers []string) {
	store, cleanup, err := buildTracker(cfg)
	if err != nil {
		log.Fatalf("runBacktest | failed to build position store: %v", err)
	}
	defer cleanup()

	engine := backtest.NewEngine(cfg, provider, scn, filter, store, tickers)
	ledger, err := engine.Run(ctx)
	if err != nil {
		log.Fatalf("runBacktest | %v", err)
	}
	if len(ledger) == 0 {
		log.Println("runBacktest | No trades executed")
		return
	}

	backtest.PrintReport(backtest.Evaluate(ledger))
	if err := backtest.WriteLedger(cfg.OutFile, ledger); err != nil {
		log.Fatalf("runBacktest | failed to save ledger: %v", err)
	}
}

// runScan runs today's scan against the persisted tracker and reports the
// surviving candidates.
func runScan(ctx context.Context, cfg config.Config, scn *scanner.Scanner, filter *prebuy.Filter, tickers []string) {
	store, cleanup, err := buildTracker(cfg)
	if err != nil {
		log.Fatalf("runScan | failed to build position store: %v", err)
	}
	defer cleanup()

	asOf := time.Now().UTC().Truncate(24 * time.Hour)

	signals, err := scn.Scan(ctx, asOf, tickers)
	if err != nil {
		log.Fatalf("runScan | scan failed: %v", err)
	}
	trades, err := filter.Check(ctx, signals, asOf)
	if err != nil {
		log.Fatalf("runScan | pre-buy check failed: %v", err)
	}

	var notify notifier.Notifier = notifier.NewLog()
	if cfg.TelegramToken != "" {
		notify = notifier.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Scan %s: %d candidate(s)\n", asOf.Format("2006-01-02"), len(trades))
	reported := 0
	for _, t := range trades {
		held, err := store.IsInPosition(ctx, t.Ticker, asOf)
		if err != nil {
			log.Fatalf("runScan | occupancy check failed for %s: %v", t.Ticker, err)
		}
		if held {
			log.Printf("runScan | %s already held, skipping", t.Ticker)
			continue
		}
		fmt.Fprintf(&sb, "%s [%s] entry=%.2f stop=%.2f target=%.2f score=%.2f\n",
			t.Ticker, t.Strategy, t.Entry, t.StopLoss, t.Target, t.FinalScore)
		reported++
		if reported >= cfg.MaxTradesPerScan {
			break
		}
	}

	if reported == 0 {
		log.Println("runScan | No new candidates today")
		return
	}
	if err := notify.Send(ctx, sb.String()); err != nil {
		log.Printf("runScan | notification failed: %v", err)
	}
}

// loadTickers returns the configured universe, from the -tickers flag or
// the universe file (one symbol per line, optional CSV header).
func loadTickers(cfg config.Config) ([]string, error) {
	if len(cfg.Tickers) > 0 {
		return normalizeTickers(cfg.Tickers), nil
	}

	f, err := os.Open(cfg.TickersFile)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer f.Close()

	var tickers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		field := strings.SplitN(sc.Text(), ",", 2)[0]
		field = strings.TrimSpace(field)
		if field == "" || strings.EqualFold(field, "ticker") || strings.EqualFold(field, "symbol") {
			continue
		}
		tickers = append(tickers, field)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("universe file %s contains no tickers", cfg.TickersFile)
	}
	return normalizeTickers(tickers), nil
}

func normalizeTickers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
