package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbeeswax/stock-alert/internal/bar"
)

type countingFetcher struct {
	calls int
	bars  []bar.Bar
	err   error
}

func (f *countingFetcher) FetchDaily(ctx context.Context, ticker string, from, to time.Time) ([]bar.Bar, error) {
	f.calls++
	return f.bars, f.err
}

func sampleBars(ticker string, n int) []bar.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]bar.Bar, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, bar.Bar{
			Date:   base.AddDate(0, 0, i),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: 1e6,
			Ticker: ticker,
		})
	}
	return out
}

func TestMemoryCache_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	bars := sampleBars("AAPL", 3)
	// Out of order on purpose.
	require.NoError(t, cache.SaveBars(ctx, []bar.Bar{bars[2], bars[0], bars[1]}))

	got, err := cache.GetBars(ctx, "aapl")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, bars[0].Date, got[0].Date, "bars come back sorted ascending")
	assert.Equal(t, bars[2].Date, got[2].Date)
}

func TestMemoryCache_UpsertReplacesSameDate(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	bars := sampleBars("AAPL", 2)
	require.NoError(t, cache.SaveBars(ctx, bars))

	revised := bars[1]
	revised.Close = 100.5
	require.NoError(t, cache.SaveBars(ctx, []bar.Bar{revised}))

	got, err := cache.GetBars(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100.5, got[1].Close)
}

func TestMemoryCache_RejectsInvalidBar(t *testing.T) {
	cache := NewMemoryCache()
	bad := sampleBars("AAPL", 1)
	bad[0].High = 50 // below the low
	assert.Error(t, cache.SaveBars(context.Background(), bad))
}

func TestCachingProvider_CacheFirst(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	require.NoError(t, cache.SaveBars(ctx, sampleBars("AAPL", 5)))

	fetcher := &countingFetcher{bars: sampleBars("AAPL", 5)}
	p := NewCachingProvider(cache, fetcher, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))

	got, err := p.History(ctx, "AAPL")
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 0, fetcher.calls, "cached bars must not trigger a download")
}

func TestCachingProvider_FetchesAndPersistsOnMiss(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	fetcher := &countingFetcher{bars: sampleBars("MSFT", 5)}
	p := NewCachingProvider(cache, fetcher, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))

	got, err := p.History(ctx, "MSFT")
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 1, fetcher.calls)

	// Second read is served from the cache.
	got, err = p.History(ctx, "MSFT")
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 1, fetcher.calls)
}

func TestCachingProvider_NilFetcher(t *testing.T) {
	p := NewCachingProvider(NewMemoryCache(), nil, time.Time{})
	got, err := p.History(context.Background(), "NODATA")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCachingProvider_FetchError(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("rate limited")}
	p := NewCachingProvider(NewMemoryCache(), fetcher, time.Time{})

	_, err := p.History(context.Background(), "AAPL")
	assert.Error(t, err)
}
