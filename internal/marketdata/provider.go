// Package marketdata is the price-history boundary: given a ticker it
// returns the full ordered daily bar series. Callers re-filter by as-of
// date; the provider itself is not date-aware.
package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cbeeswax/stock-alert/internal/bar"
)

// Provider returns the complete daily history for a ticker, ascending by
// date. An empty slice means no data, which callers treat as "skip", not as
// an error.
type Provider interface {
	History(ctx context.Context, ticker string) ([]bar.Bar, error)
}

// Fetcher downloads daily bars from a remote source for a date range.
type Fetcher interface {
	FetchDaily(ctx context.Context, ticker string, from, to time.Time) ([]bar.Bar, error)
}

// Cache stores downloaded bars so a backtest does not refetch the universe
// on every run.
type Cache interface {
	GetBars(ctx context.Context, ticker string) ([]bar.Bar, error)
	SaveBars(ctx context.Context, bars []bar.Bar) error
}

// CachingProvider serves history cache-first, fetching and persisting on a
// miss.
type CachingProvider struct {
	cache   Cache
	fetcher Fetcher
	from    time.Time
}

// NewCachingProvider builds a provider that backfills from `from` on cache
// misses.
func NewCachingProvider(cache Cache, fetcher Fetcher, from time.Time) *CachingProvider {
	return &CachingProvider{cache: cache, fetcher: fetcher, from: from}
}

func (p *CachingProvider) History(ctx context.Context, ticker string) ([]bar.Bar, error) {
	bars, err := p.cache.GetBars(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("History | error loading bars from cache: %w", err)
	}
	if len(bars) > 0 {
		return bars, nil
	}

	if p.fetcher == nil {
		return nil, nil
	}

	log.Printf("History | No cached bars for %s, downloading...", ticker)
	fetched, err := p.fetcher.FetchDaily(ctx, ticker, p.from, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("History | error downloading bars for %s: %w", ticker, err)
	}
	if len(fetched) == 0 {
		return nil, nil
	}

	bar.Sort(fetched)
	if err := p.cache.SaveBars(ctx, fetched); err != nil {
		return nil, fmt.Errorf("History | error saving bars for %s: %w", ticker, err)
	}
	return fetched, nil
}
