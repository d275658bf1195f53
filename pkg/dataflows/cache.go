package dataflows

import (
	"context"
	"time"
)

// Cached stores provider responses on disk keyed by symbol and range.
type Cached struct {
	next  BarSource
	cache *CacheManager
}

func NewCached(next BarSource, cache *CacheManager) *Cached {
	return &Cached{next: next, cache: cache}
}

func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	key := map[string]string{
		"symbol": NormalizeSymbol(symbol),
		"start":  Day(start).Format("2006-01-02"),
		"end":    Day(end).Format("2006-01-02"),
	}

	var cached []Bar
	if c.cache.Get(c.next.Name(), "bars", key, &cached) {
		return cached, nil
	}

	bars, err := c.next.Bars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(c.next.Name(), "bars", key, bars)
	return bars, nil
}

func (c *Cached) Unwrap() BarSource { return c.next }
