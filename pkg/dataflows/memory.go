package dataflows

import (
	"context"
	"sync"
	"time"
)

// MemoryCache keeps one fetched range of bars per symbol in memory and
// serves every request that falls inside it. Warm it up with the widest
// range a run will need so per-date lookups never reach the provider.
type MemoryCache struct {
	next BarSource
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]*cachedRange
	hits    int
	misses  int
}

type cachedRange struct {
	from, to  time.Time
	bars      []Bar
	fetchedAt time.Time
}

func NewMemoryCache(next BarSource, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*cachedRange),
	}
}

func (c *MemoryCache) Name() string { return c.next.Name() }

func (c *MemoryCache) Unwrap() BarSource { return c.next }

func (c *MemoryCache) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	key := NormalizeSymbol(symbol)
	from, to := Day(start), Day(end)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.fresh(e) && !from.Before(e.from) && !to.After(e.to) {
		c.hits++
		bars := e.bars
		c.mu.Unlock()
		return filterRange(bars, from, to), nil
	}
	c.misses++
	c.mu.Unlock()

	bars, err := c.next.Bars(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	c.store(key, from, to, bars)
	return bars, nil
}

// Warmup fetches [start, end] for symbol in one provider call.
func (c *MemoryCache) Warmup(ctx context.Context, symbol string, start, end time.Time) error {
	_, err := c.Bars(ctx, symbol, start, end)
	return err
}

// Stats reports cache hits and misses since creation.
func (c *MemoryCache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cachedRange)
}

// store keeps the wider of the cached and the new range.
func (c *MemoryCache) store(key string, from, to time.Time, bars []Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && c.fresh(e) {
		if to.Sub(from) < e.to.Sub(e.from) {
			return
		}
	}
	c.entries[key] = &cachedRange{from: from, to: to, bars: bars, fetchedAt: c.now()}
}

func (c *MemoryCache) fresh(e *cachedRange) bool {
	return c.ttl <= 0 || c.now().Sub(e.fetchedAt) <= c.ttl
}
