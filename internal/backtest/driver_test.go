package backtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexQuant/internal/graph"
	"github.com/dyike/CortexQuant/internal/message"
	"github.com/dyike/CortexQuant/internal/performance"
	"github.com/dyike/CortexQuant/models"
)

// fakePrices serves fixed closes per symbol and date.
type fakePrices struct {
	closes  map[string]map[string]float64
	errOn   map[string]bool
	history []float64
}

func (f *fakePrices) PriceAt(_ context.Context, symbol string, d time.Time) (float64, bool, error) {
	key := d.Format("2006-01-02")
	if f.errOn[key] {
		return 0, false, errors.New("provider down")
	}
	p, ok := f.closes[symbol][key]
	return p, ok, nil
}

func (f *fakePrices) PriceHistory(context.Context, string, time.Time, int) ([]float64, error) {
	return f.history, nil
}

// scriptedWorkflow returns the decision scripted for each date.
type scriptedWorkflow struct {
	decisions map[string]*models.Decision
	errs      map[string]error
	seen      []*models.WorkflowState
}

func (s *scriptedWorkflow) Run(_ context.Context, ws *models.WorkflowState) (*models.WorkflowState, error) {
	s.seen = append(s.seen, ws)
	if err := s.errs[ws.CurrentDate]; err != nil {
		return nil, err
	}
	ws.Decision = s.decisions[ws.CurrentDate]
	return ws, nil
}

func dailyRequest(start, end string) Request {
	return Request{
		StockCode:      "TEST",
		CompanyName:    "Test Corp",
		Start:          date(start),
		End:            date(end),
		Frequency:      Daily,
		InitialCapital: 1000,
	}
}

func TestDriverBuyThenSell(t *testing.T) {
	prices := &fakePrices{closes: map[string]map[string]float64{"TEST": {
		"2024-01-01": 10, "2024-01-02": 12, "2024-01-03": 15,
	}}}
	wf := &scriptedWorkflow{decisions: map[string]*models.Decision{
		"2024-01-01": {Action: models.ActionBuy, Confidence: 0.9, PositionSize: 0.5},
		"2024-01-02": {Action: models.ActionHold},
		"2024-01-03": {Action: models.ActionSell, Confidence: 0.9, PositionSize: 1},
	}}

	perf, err := NewDriver(wf, prices).Run(context.Background(), dailyRequest("2024-01-01", "2024-01-03"))
	require.NoError(t, err)

	// 500 cash buys 50 shares at 10; worth 600 at 12; sold for 750 at 15
	require.Len(t, perf.DailyValues, 3)
	assert.InDelta(t, 1000, perf.DailyValues[0].PortfolioValue, 1e-9)
	assert.InDelta(t, 1100, perf.DailyValues[1].PortfolioValue, 1e-9)
	assert.InDelta(t, 1250, perf.DailyValues[2].PortfolioValue, 1e-9)
	assert.InDelta(t, 1250, perf.DailyValues[2].Cash, 1e-9)
	assert.InDelta(t, 0.25, perf.TotalReturn, 1e-9)
	assert.InDelta(t, 250, perf.TotalProfit, 1e-9)
	assert.Equal(t, 2, perf.TotalTrades)
	assert.Equal(t, 1, perf.WinningTrades)
	require.Len(t, perf.Transactions, 2)
	assert.Equal(t, models.ActionSell, perf.Transactions[1].Action)
}

func TestDriverSkipsDatesWithoutPrice(t *testing.T) {
	prices := &fakePrices{
		closes: map[string]map[string]float64{"TEST": {"2024-01-01": 10, "2024-01-03": 10}},
		errOn:  map[string]bool{"2024-01-04": true},
	}
	wf := &scriptedWorkflow{decisions: map[string]*models.Decision{
		"2024-01-01": {Action: models.ActionHold},
		"2024-01-03": {Action: models.ActionHold},
	}}
	var mu sync.Mutex
	var warnings []string
	emitter := message.Func(func(e models.LogEvent) {
		mu.Lock()
		defer mu.Unlock()
		if e.Level == models.LevelWarning {
			warnings = append(warnings, e.Message)
		}
	})

	perf, err := NewDriver(wf, prices, WithEmitter(emitter)).Run(context.Background(), dailyRequest("2024-01-01", "2024-01-04"))
	require.NoError(t, err)

	require.Len(t, perf.DailyValues, 2)
	assert.Equal(t, "2024-01-01", perf.DailyValues[0].Date)
	assert.Equal(t, "2024-01-03", perf.DailyValues[1].Date)
	assert.Len(t, wf.seen, 2, "the workflow is not consulted on skipped dates")
	assert.Len(t, warnings, 2)
}

func TestDriverSkippedDateLeavesStateUntouched(t *testing.T) {
	prices := &fakePrices{closes: map[string]map[string]float64{"TEST": {"2024-01-01": 10, "2024-01-03": 20}}}
	wf := &scriptedWorkflow{decisions: map[string]*models.Decision{
		"2024-01-01": {Action: models.ActionBuy, Confidence: 0.9, PositionSize: 1},
		"2024-01-03": {Action: models.ActionHold},
	}}

	_, err := NewDriver(wf, prices).Run(context.Background(), dailyRequest("2024-01-01", "2024-01-03"))
	require.NoError(t, err)

	require.Len(t, wf.seen, 2)
	after := wf.seen[1].Portfolio
	assert.InDelta(t, 100, after.CurrentShares, 1e-9)
	assert.InDelta(t, 0, after.Cash, 1e-9)
	assert.Equal(t, 1, after.TotalTrades)
}

func TestDriverDegradesWorkflowErrors(t *testing.T) {
	prices := &fakePrices{closes: map[string]map[string]float64{"TEST": {"2024-01-01": 10, "2024-01-02": 10}}}
	wf := &scriptedWorkflow{
		errs:      map[string]error{"2024-01-01": errors.New("graph broke")},
		decisions: map[string]*models.Decision{},
	}

	perf, err := NewDriver(wf, prices).Run(context.Background(), dailyRequest("2024-01-01", "2024-01-02"))
	require.NoError(t, err)

	// an error and a missing decision both become HOLD
	assert.Len(t, perf.DailyValues, 2)
	assert.Zero(t, perf.TotalTrades)
	assert.InDelta(t, 0, perf.TotalReturn, 1e-9)
}

func TestDriverAbortsOnInitializationFailure(t *testing.T) {
	prices := &fakePrices{closes: map[string]map[string]float64{"TEST": {"2024-01-01": 10, "2024-01-02": 10}}}
	wf := &scriptedWorkflow{errs: map[string]error{
		"2024-01-01": fmt.Errorf("%w: investment: no key", graph.ErrInitialization),
	}}

	_, err := NewDriver(wf, prices).Run(context.Background(), dailyRequest("2024-01-01", "2024-01-02"))

	assert.ErrorIs(t, err, graph.ErrInitialization)
	assert.Len(t, wf.seen, 1)
}

func TestDriverNoPricesAtAll(t *testing.T) {
	prices := &fakePrices{closes: map[string]map[string]float64{}}

	_, err := NewDriver(&scriptedWorkflow{}, prices).Run(context.Background(), dailyRequest("2024-01-01", "2024-01-05"))

	assert.ErrorIs(t, err, performance.ErrEmptySeries)
}

func TestDriverStopsOnCancel(t *testing.T) {
	prices := &fakePrices{closes: map[string]map[string]float64{"TEST": {"2024-01-01": 10}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDriver(&scriptedWorkflow{}, prices).Run(ctx, dailyRequest("2024-01-01", "2024-01-05"))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDriverWorkflowInput(t *testing.T) {
	prices := &fakePrices{
		closes:  map[string]map[string]float64{"TEST": {"2024-01-01": 10}},
		history: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
	wf := &scriptedWorkflow{decisions: map[string]*models.Decision{}}

	_, err := NewDriver(wf, prices, WithHistory(30, 4)).Run(context.Background(), dailyRequest("2024-01-01", "2024-01-01"))
	require.NoError(t, err)

	require.Len(t, wf.seen, 1)
	ws := wf.seen[0]
	assert.Equal(t, []float64{9, 10, 11, 12}, ws.HistoricalPrices)
	assert.Equal(t, 10.0, ws.CurrentPrice)
	assert.Equal(t, "Test Corp", ws.CompanyName)
	assert.Equal(t, 1000.0, ws.Portfolio.Cash)
}

func TestDriverValuesOtherHoldings(t *testing.T) {
	prices := &fakePrices{closes: map[string]map[string]float64{
		"TEST":  {"2024-01-01": 10},
		"OTHER": {"2024-01-01": 5},
	}}
	d := NewDriver(&scriptedWorkflow{}, prices)
	state := models.PortfolioState{
		Cash:      100,
		Positions: map[string]float64{"TEST": 2, "OTHER": 4, "GONE": 7},
	}

	point := d.valuation(context.Background(), state, "TEST", 10, date("2024-01-01"))

	// GONE has no price and contributes nothing
	assert.InDelta(t, 140, point.PortfolioValue, 1e-9)
	assert.InDelta(t, 40, point.StockValue, 1e-9)
}

func TestDriverStepHook(t *testing.T) {
	prices := &fakePrices{closes: map[string]map[string]float64{"TEST": {"2024-01-01": 10, "2024-01-08": 11}}}
	wf := &scriptedWorkflow{decisions: map[string]*models.Decision{
		"2024-01-01": {Action: models.ActionBuy, Confidence: 0.9, PositionSize: 0.1},
	}}
	var steps []Step

	req := dailyRequest("2024-01-01", "2024-01-08")
	req.Frequency = Weekly
	_, err := NewDriver(wf, prices, WithStepHook(func(s Step) { steps = append(steps, s) })).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, steps, 2)
	require.NotNil(t, steps[0].Transaction)
	assert.InDelta(t, 10, steps[0].Shares, 1e-9)
	assert.Nil(t, steps[1].Transaction)
	assert.Equal(t, "2024-01-08", steps[1].Date)
}

func TestRequestValidate(t *testing.T) {
	req := dailyRequest("2024-01-02", "2024-01-01")
	assert.Error(t, req.Validate())

	req = dailyRequest("2024-01-01", "2024-01-02")
	req.InitialCapital = 0
	assert.Error(t, req.Validate())

	req = dailyRequest("2024-01-01", "2024-01-02")
	req.StockCode = ""
	assert.Error(t, req.Validate())
}
