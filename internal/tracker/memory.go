package tracker

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the ephemeral Store used for backtest replay. One
// instance per run; nothing survives it.
type MemoryStore struct {
	mu   sync.RWMutex
	open map[string]Position
}

func NewMemory() *MemoryStore {
	return &MemoryStore{open: make(map[string]Position)}
}

func positionKey(ticker string) string {
	return strings.ToUpper(ticker)
}

func (m *MemoryStore) IsInPosition(ctx context.Context, ticker string, asOf time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.open[positionKey(ticker)]
	return ok && p.occupies(asOf), nil
}

func (m *MemoryStore) AddPosition(ctx context.Context, p Position) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := positionKey(p.Ticker)
	if existing, ok := m.open[key]; ok && existing.occupies(p.EntryDate) {
		return false, nil
	}
	m.open[key] = p
	return true, nil
}

func (m *MemoryStore) OpenTickers(ctx context.Context, asOf time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tickers := make([]string, 0, len(m.open))
	for key, p := range m.open {
		if p.occupies(asOf) {
			tickers = append(tickers, key)
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

func (m *MemoryStore) AllPositions(ctx context.Context) (map[string]Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Position, len(m.open))
	for key, p := range m.open {
		out[key] = p
	}
	return out, nil
}

func (m *MemoryStore) Count(ctx context.Context, asOf time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.open {
		if p.occupies(asOf) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CountByStrategy(ctx context.Context, asOf time.Time) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, p := range m.open {
		if p.occupies(asOf) {
			counts[p.Strategy]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) ClosePosition(ctx context.Context, ticker string, exitPrice float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := positionKey(ticker)
	if _, ok := m.open[key]; !ok {
		return false, nil
	}
	delete(m.open, key)
	return true, nil
}
