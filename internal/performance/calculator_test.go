package performance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexQuant/models"
)

func points(values ...float64) []models.ValuationPoint {
	out := make([]models.ValuationPoint, len(values))
	for i, v := range values {
		out[i] = models.ValuationPoint{Date: "2024-01-01", PortfolioValue: v, Cash: v}
	}
	return out
}

// TestSummarizeReferenceSeries tests return and volatility on a known series
func TestSummarizeReferenceSeries(t *testing.T) {
	perf, err := Summarize(points(100000, 105000, 99000, 102000), nil, 100000)
	require.NoError(t, err)

	assert.InDelta(t, 0.02, perf.TotalReturn, 1e-12)
	assert.InDelta(t, 2000, perf.TotalProfit, 1e-9)
	assert.Equal(t, 102000.0, perf.FinalValue)
	assert.Equal(t, 105000.0, perf.MaxValue)
	assert.Equal(t, 99000.0, perf.MinValue)

	r := []float64{0.05, (99000.0 - 105000.0) / 105000.0, (102000.0 - 99000.0) / 99000.0}
	m := (r[0] + r[1] + r[2]) / 3
	variance := ((r[0]-m)*(r[0]-m) + (r[1]-m)*(r[1]-m) + (r[2]-m)*(r[2]-m)) / 3
	assert.InDelta(t, math.Sqrt(variance), perf.Volatility, 1e-12)
	assert.InDelta(t, m/math.Sqrt(variance), perf.SharpeRatio, 1e-12)
	assert.InDelta(t, 6000.0/105000.0, perf.MaxDrawdown, 1e-12)
}

func TestSummarizeEmptySeries(t *testing.T) {
	_, err := Summarize(nil, nil, 1000)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestSummarizeSinglePoint(t *testing.T) {
	perf, err := Summarize(points(1000), nil, 1000)
	require.NoError(t, err)

	assert.Zero(t, perf.TotalReturn)
	assert.Zero(t, perf.Volatility)
	assert.Zero(t, perf.SharpeRatio)
	assert.Zero(t, perf.MaxDrawdown)
}

func TestSummarizeFlatSeriesHasZeroSharpe(t *testing.T) {
	perf, err := Summarize(points(500, 500, 500), nil, 500)
	require.NoError(t, err)

	assert.Zero(t, perf.Volatility)
	assert.Zero(t, perf.SharpeRatio)
}

// TestSummarizeTradeCounts tests that every SELL counts as a winning trade
func TestSummarizeTradeCounts(t *testing.T) {
	txs := []models.Transaction{
		{Action: models.ActionBuy},
		{Action: models.ActionSell},
		{Action: models.ActionBuy},
		{Action: models.ActionSell},
		{Action: models.ActionSell},
	}

	perf, err := Summarize(points(1, 2), txs, 1)
	require.NoError(t, err)

	assert.Equal(t, 5, perf.TotalTrades)
	assert.Equal(t, 3, perf.WinningTrades)
	assert.InDelta(t, 0.6, perf.WinRate(), 1e-12)
	assert.Len(t, perf.Transactions, 5)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   float64
	}{
		{name: "single dip", series: []float64{100, 120, 90, 110}, want: 0.25},
		{name: "non decreasing", series: []float64{100, 100, 101, 150}, want: 0},
		{name: "too short", series: []float64{100}, want: 0},
		{name: "deepest of two dips", series: []float64{100, 80, 100, 200, 120}, want: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaxDrawdown(tt.series), 1e-12)
		})
	}
}

func TestReturnsSkipsZeroBase(t *testing.T) {
	r := Returns([]float64{0, 10, 20})
	assert.Equal(t, []float64{1}, r)
}

func TestStdDevPopulation(t *testing.T) {
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.Zero(t, StdDev(nil))
}
