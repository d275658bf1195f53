package dataflows

import (
	"context"
	"fmt"
	"sort"
	"time"
)

const defaultPriceWindowDays = 5

// MarketPrices resolves reference prices from a BarSource.
type MarketPrices struct {
	bars       BarSource
	windowDays int
}

type PriceOption func(*MarketPrices)

// WithPriceWindow sets how many days either side of a date are searched for
// a close.
func WithPriceWindow(days int) PriceOption {
	return func(p *MarketPrices) {
		if days >= 0 {
			p.windowDays = days
		}
	}
}

func NewPriceSource(bars BarSource, opts ...PriceOption) *MarketPrices {
	p := &MarketPrices{
		bars:       bars,
		windowDays: defaultPriceWindowDays,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PriceAt returns the close of the row nearest to date inside the search
// window. The earliest row wins a tie.
func (p *MarketPrices) PriceAt(ctx context.Context, symbol string, date time.Time) (float64, bool, error) {
	day := Day(date)
	window := time.Duration(p.windowDays) * 24 * time.Hour
	bars, err := p.bars.Bars(ctx, symbol, day.Add(-window), day.Add(window))
	if err != nil {
		return 0, false, fmt.Errorf("%s bars for %s: %w", p.bars.Name(), symbol, err)
	}

	price, ok := nearestClose(bars, day)
	return price, ok, nil
}

func (p *MarketPrices) PriceHistory(ctx context.Context, symbol string, end time.Time, windowDays int) ([]float64, error) {
	day := Day(end)
	bars, err := p.bars.Bars(ctx, symbol, day.AddDate(0, 0, -windowDays), day)
	if err != nil {
		return nil, fmt.Errorf("%s history for %s: %w", p.bars.Name(), symbol, err)
	}

	closes := make([]float64, 0, len(bars))
	for _, b := range bars {
		if c := b.ClosePrice(); c > 0 {
			closes = append(closes, c)
		}
	}
	return closes, nil
}

func nearestClose(bars []Bar, day time.Time) (float64, bool) {
	best := -1
	var bestDist time.Duration
	for i, b := range bars {
		if b.ClosePrice() <= 0 {
			continue
		}
		dist := Day(b.Date).Sub(day)
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return 0, false
	}
	return bars[best].ClosePrice(), true
}

func sortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}
