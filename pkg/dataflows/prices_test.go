package dataflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticBars struct {
	bars  []Bar
	err   error
	calls int
}

func (s *staticBars) Name() string { return "static" }

func (s *staticBars) Bars(_ context.Context, _ string, start, end time.Time) ([]Bar, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return filterRange(s.bars, start, end), nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(date string, closePrice float64) Bar {
	return Bar{Symbol: "TEST", Date: day(date), Close: decimal.NewFromFloat(closePrice)}
}

func TestPriceAtExactDate(t *testing.T) {
	src := &staticBars{bars: []Bar{bar("2024-01-02", 10), bar("2024-01-03", 11)}}

	price, ok, err := NewPriceSource(src).PriceAt(context.Background(), "TEST", day("2024-01-03"))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 11.0, price)
}

func TestPriceAtNearestInWindow(t *testing.T) {
	// a Saturday resolves to the closer Friday
	src := &staticBars{bars: []Bar{bar("2024-01-05", 20), bar("2024-01-08", 21)}}

	price, ok, err := NewPriceSource(src).PriceAt(context.Background(), "TEST", day("2024-01-06"))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20.0, price)
}

func TestPriceAtTieTakesEarliest(t *testing.T) {
	src := &staticBars{bars: []Bar{bar("2024-01-08", 31), bar("2024-01-04", 30)}}

	price, ok, err := NewPriceSource(src).PriceAt(context.Background(), "TEST", day("2024-01-06"))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30.0, price)
}

func TestPriceAtSkipsNonPositiveCloses(t *testing.T) {
	src := &staticBars{bars: []Bar{bar("2024-01-06", 0), bar("2024-01-09", 12)}}

	price, ok, err := NewPriceSource(src).PriceAt(context.Background(), "TEST", day("2024-01-06"))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12.0, price)
}

func TestPriceAtOutsideWindow(t *testing.T) {
	src := &staticBars{bars: []Bar{bar("2024-01-01", 10)}}

	_, ok, err := NewPriceSource(src, WithPriceWindow(2)).PriceAt(context.Background(), "TEST", day("2024-01-10"))

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPriceAtProviderError(t *testing.T) {
	boom := errors.New("boom")
	src := &staticBars{err: boom}

	_, ok, err := NewPriceSource(src).PriceAt(context.Background(), "TEST", day("2024-01-10"))

	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestPriceHistory(t *testing.T) {
	src := &staticBars{bars: []Bar{
		bar("2024-01-01", 9),
		bar("2024-01-08", 12),
		bar("2024-01-05", 11),
		bar("2024-01-04", 0),
		bar("2024-01-12", 99),
	}}

	closes, err := NewPriceSource(src).PriceHistory(context.Background(), "TEST", day("2024-01-10"), 7)

	require.NoError(t, err)
	assert.Equal(t, []float64{11, 12}, closes)
}
