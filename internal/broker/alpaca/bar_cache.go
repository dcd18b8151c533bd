package alpaca

import (
	"sync"
	"time"

	"openclaw-agent/internal/types"
)

// barCache keeps fetched daily bars per symbol and range. Entries expire
// after ttl; a zero ttl disables caching.
type barCache struct {
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

type cacheKey struct {
	symbol     string
	start, end time.Time
}

type cacheEntry struct {
	bars    []types.Bar
	fetched time.Time
}

func newBarCache(ttl time.Duration) *barCache {
	return &barCache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (bc *barCache) get(symbol string, start, end time.Time) ([]types.Bar, bool) {
	if bc.ttl <= 0 {
		return nil, false
	}
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	e, ok := bc.entries[cacheKey{symbol, start, end}]
	if !ok || bc.now().Sub(e.fetched) > bc.ttl {
		return nil, false
	}
	out := make([]types.Bar, len(e.bars))
	copy(out, e.bars)
	return out, true
}

func (bc *barCache) put(symbol string, start, end time.Time, bars []types.Bar) {
	if bc.ttl <= 0 {
		return
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()

	stored := make([]types.Bar, len(bars))
	copy(stored, bars)
	bc.entries[cacheKey{symbol, start, end}] = cacheEntry{bars: stored, fetched: bc.now()}
}
