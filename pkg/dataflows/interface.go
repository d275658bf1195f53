package dataflows

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoData      = errors.New("no market data")
	ErrCredentials = errors.New("market data credentials not configured")
)

// BarSource is implemented by every market data provider.
type BarSource interface {
	Name() string
	// Bars returns daily bars with dates in [start, end], oldest first.
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

// PriceSource is what the backtest consumes.
type PriceSource interface {
	// PriceAt resolves a reference close for date. ok is false when the
	// provider has no row near the date.
	PriceAt(ctx context.Context, symbol string, date time.Time) (price float64, ok bool, err error)
	// PriceHistory returns closes in (end-windowDays, end], oldest first.
	PriceHistory(ctx context.Context, symbol string, end time.Time, windowDays int) ([]float64, error)
}
