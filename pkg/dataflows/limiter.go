package dataflows

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to the wrapped source.
type RateLimited struct {
	next    BarSource
	limiter *rate.Limiter
}

// NewRateLimited allows rps requests per second. A non-positive rps disables
// throttling.
func NewRateLimited(next BarSource, rps float64) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (r *RateLimited) Name() string { return r.next.Name() }

func (r *RateLimited) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Bars(ctx, symbol, start, end)
}

func (r *RateLimited) Unwrap() BarSource { return r.next }
