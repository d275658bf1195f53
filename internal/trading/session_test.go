package trading

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexQuant/internal/agents"
	"github.com/dyike/CortexQuant/internal/graph"
	"github.com/dyike/CortexQuant/models"
	"github.com/dyike/CortexQuant/pkg/dataflows"
)

type fixedPrices struct {
	price   float64
	ok      bool
	err     error
	history []float64
}

func (f fixedPrices) PriceAt(context.Context, string, time.Time) (float64, bool, error) {
	return f.price, f.ok, f.err
}

func (f fixedPrices) PriceHistory(context.Context, string, time.Time, int) ([]float64, error) {
	return f.history, nil
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestSessionWithHeuristicTeam(t *testing.T) {
	engine, err := graph.NewEngine(agents.NewHeuristicTeam())
	require.NoError(t, err)
	prices := fixedPrices{price: 10, ok: true, history: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	dir := t.TempDir()

	res, err := NewSession(engine, prices, WithResultsDir(dir), WithHistory(30, 10)).
		Execute(context.Background(), Request{StockCode: "AAPL", Date: day("2024-03-01"), Capital: 1000})
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Equal(t, "AAPL", res.State.CompanyName)
	assert.Len(t, res.State.HistoricalPrices, 10)
	assert.NotEmpty(t, res.Decision.Action)
	require.NotEmpty(t, res.ReportPath)
	raw, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# AAPL (AAPL) 2024-03-01")
}

func TestSessionDegradesWhenAnalystsUnavailable(t *testing.T) {
	prices := fixedPrices{price: 10, ok: true}

	res, err := NewSession(Unavailable(errors.New("missing api key")), prices).
		Execute(context.Background(), Request{StockCode: "AAPL", Date: day("2024-03-01"), Capital: 1000})
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Equal(t, models.ActionHold, res.Decision.Action)
	assert.Zero(t, res.Decision.PositionSize)
	assert.Contains(t, res.Decision.Reasons[0], "missing api key")
	assert.Empty(t, res.ReportPath)
}

func TestSessionRequiresPrice(t *testing.T) {
	_, err := NewSession(Unavailable(errors.New("unused")), fixedPrices{}).
		Execute(context.Background(), Request{StockCode: "AAPL", Date: day("2024-03-01"), Capital: 1000})
	assert.ErrorIs(t, err, dataflows.ErrNoData)

	_, err = NewSession(Unavailable(errors.New("unused")), fixedPrices{err: errors.New("timeout")}).
		Execute(context.Background(), Request{StockCode: "AAPL", Date: day("2024-03-01"), Capital: 1000})
	assert.ErrorContains(t, err, "timeout")
}
