package marketdata

import (
	"context"
	"strings"
	"sync"

	"github.com/cbeeswax/stock-alert/internal/bar"
)

// MemoryCache is the in-process bar cache used by backtests and tests.
type MemoryCache struct {
	mu sync.RWMutex

	// Bars keyed by upper-cased ticker, kept sorted ascending.
	bars map[string][]bar.Bar
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{bars: make(map[string][]bar.Bar)}
}

func (m *MemoryCache) GetBars(ctx context.Context, ticker string) ([]bar.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.bars[strings.ToUpper(ticker)]
	out := make([]bar.Bar, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *MemoryCache) SaveBars(ctx context.Context, bars []bar.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		key := strings.ToUpper(b.Ticker)
		series := m.bars[key]
		replaced := false
		for i := range series {
			if series[i].Date.Equal(b.Date) {
				series[i] = b
				replaced = true
				break
			}
		}
		if !replaced {
			series = append(series, b)
		}
		bar.Sort(series)
		m.bars[key] = series
	}
	return nil
}
