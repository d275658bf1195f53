package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexQuant/consts"
	"github.com/dyike/CortexQuant/internal/agents"
	"github.com/dyike/CortexQuant/internal/message"
	"github.com/dyike/CortexQuant/models"
)

type fakeAnalyst struct {
	name    string
	text    string
	err     error
	panics  bool
	result  *models.AnalystResult
	noRes   bool
	seen    models.StateView
	initErr error
	inits   atomic.Int32
}

func (f *fakeAnalyst) Name() string { return f.name }

func (f *fakeAnalyst) Analyze(_ context.Context, view models.StateView) (*models.AnalystResult, error) {
	f.seen = view
	if f.panics {
		panic("analyst exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.noRes {
		return nil, nil
	}
	if f.result != nil {
		return f.result, nil
	}
	return &models.AnalystResult{Text: f.text}, nil
}

type initAnalyst struct {
	*fakeAnalyst
}

func (i initAnalyst) Init(context.Context) error {
	i.inits.Add(1)
	return i.initErr
}

func buyDecision() *models.Decision {
	return &models.Decision{Action: models.ActionBuy, Confidence: 0.8, PositionSize: 0.3}
}

type testTeam struct {
	fundamental, technical, valuation, summary, investment *fakeAnalyst
}

func newTestTeam() *testTeam {
	return &testTeam{
		fundamental: &fakeAnalyst{name: consts.Agent_FundamentalAnalyst, text: "F"},
		technical:   &fakeAnalyst{name: consts.Agent_TechnicalAnalyst, text: "T"},
		valuation:   &fakeAnalyst{name: consts.Agent_ValuationAnalyst, text: "V"},
		summary:     &fakeAnalyst{name: consts.Agent_SummaryAnalyst, text: "SUMMARY"},
		investment: &fakeAnalyst{name: consts.Agent_InvestmentAdvisor, result: &models.AnalystResult{
			Text: "BUY RATIONALE", Decision: buyDecision(),
		}},
	}
}

func (tt *testTeam) team() agents.Team {
	return agents.Team{
		Fundamental: tt.fundamental,
		Technical:   tt.technical,
		Valuation:   tt.valuation,
		Summary:     tt.summary,
		Investment:  tt.investment,
	}
}

func initialState() *models.WorkflowState {
	return models.NewWorkflowState("Test Corp", "TEST", "2024-01-02", 100, []float64{98, 99, 100},
		models.PortfolioSnapshot{Cash: 1000, TotalValue: 1000})
}

func runEngine(t *testing.T, team agents.Team, opts ...Option) *models.WorkflowState {
	t.Helper()
	engine, err := NewEngine(team, opts...)
	require.NoError(t, err)
	out, err := engine.Run(context.Background(), initialState())
	require.NoError(t, err)
	return out
}

func TestEngineHappyPath(t *testing.T) {
	tt := newTestTeam()

	out := runEngine(t, tt.team())

	assert.Equal(t, "F", out.FundamentalAnalysis)
	assert.Equal(t, "T", out.TechnicalAnalysis)
	assert.Equal(t, "V", out.ValuationAnalysis)
	assert.Equal(t, "SUMMARY", out.SummaryAnalysis)
	require.NotNil(t, out.Decision)
	assert.Equal(t, models.ActionBuy, out.Decision.Action)
	assert.Equal(t, "BUY RATIONALE", out.InvestmentText)
	assert.Equal(t, "SUMMARY\n\n---\n\nBUY RATIONALE", out.FinalReport)
	assert.Equal(t, consts.Done, out.Stage)
	assert.Equal(t, []string{consts.Router, consts.ParallelAnalysis, consts.Summary, consts.Investment, consts.Done}, out.Trail)
}

func TestEngineStageInputs(t *testing.T) {
	tt := newTestTeam()

	runEngine(t, tt.team())

	// summary sees the three analyses, investment sees the summary
	assert.Equal(t, "F", tt.summary.seen.FundamentalAnalysis)
	assert.Equal(t, "T", tt.summary.seen.TechnicalAnalysis)
	assert.Equal(t, "V", tt.summary.seen.ValuationAnalysis)
	assert.Equal(t, "SUMMARY", tt.investment.seen.SummaryAnalysis)
	assert.Equal(t, 1000.0, tt.investment.seen.Portfolio.Cash)
	assert.Empty(t, tt.fundamental.seen.SummaryAnalysis)
}

func TestEngineAlwaysYieldsDecision(t *testing.T) {
	// every combination of the three parallel analysts failing
	for mask := 0; mask < 8; mask++ {
		t.Run(fmt.Sprintf("mask=%03b", mask), func(t *testing.T) {
			tt := newTestTeam()
			parallel := []*fakeAnalyst{tt.fundamental, tt.technical, tt.valuation}
			for i, a := range parallel {
				if mask&(1<<i) != 0 {
					a.err = errors.New("boom")
				}
			}

			out := runEngine(t, tt.team())

			require.NotNil(t, out.Decision)
			assert.Equal(t, consts.Done, out.Stage)
			slots := []string{out.FundamentalAnalysis, out.TechnicalAnalysis, out.ValuationAnalysis}
			for i, a := range parallel {
				if mask&(1<<i) != 0 {
					assert.Equal(t, a.name+" failed: boom", slots[i])
				} else {
					assert.NotContains(t, slots[i], "failed")
				}
			}
		})
	}
}

func TestEngineRecoversAnalystPanic(t *testing.T) {
	tt := newTestTeam()
	tt.technical.panics = true

	out := runEngine(t, tt.team())

	assert.True(t, strings.HasPrefix(out.TechnicalAnalysis, consts.Agent_TechnicalAnalyst+" failed: panic"))
	assert.Equal(t, "F", out.FundamentalAnalysis)
	assert.Equal(t, models.ActionBuy, out.Decision.Action)
}

func TestEngineSummaryFailure(t *testing.T) {
	tt := newTestTeam()
	tt.summary.err = errors.New("llm down")

	out := runEngine(t, tt.team())

	assert.Equal(t, "summary analysis failed: llm down", out.SummaryAnalysis)
	assert.Equal(t, "summary analysis failed: llm down\n\n---\n\nBUY RATIONALE", out.FinalReport)
}

func TestEngineInvestmentFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *fakeAnalyst)
	}{
		{name: "error", mutate: func(a *fakeAnalyst) { a.err = errors.New("timeout") }},
		{name: "panic", mutate: func(a *fakeAnalyst) { a.panics = true }},
		{name: "nil result", mutate: func(a *fakeAnalyst) { a.result, a.noRes = nil, true }},
		{name: "nil decision", mutate: func(a *fakeAnalyst) { a.result = &models.AnalystResult{Text: "no json"} }},
		{name: "invalid decision", mutate: func(a *fakeAnalyst) {
			a.result = &models.AnalystResult{Text: "x", Decision: &models.Decision{Action: "MAYBE"}}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := newTestTeam()
			tc.mutate(tt.investment)

			out := runEngine(t, tt.team())

			require.NotNil(t, out.Decision)
			assert.Equal(t, models.ActionHold, out.Decision.Action)
			assert.Zero(t, out.Decision.Confidence)
			require.Len(t, out.Decision.Reasons, 1)
			assert.True(t, strings.HasPrefix(out.Decision.Reasons[0], "analysis failed: "))
			assert.Equal(t, "SUMMARY", out.FinalReport)
			assert.Equal(t, consts.Done, out.Stage)
		})
	}
}

func TestEngineEmptySummaryFallback(t *testing.T) {
	tt := newTestTeam()
	tt.summary.text = ""
	tt.investment.err = errors.New("boom")

	out := runEngine(t, tt.team())

	assert.Equal(t, "analysis failed", out.FinalReport)
}

func TestEngineInitializationFailure(t *testing.T) {
	tt := newTestTeam()
	inv := initAnalyst{tt.investment}
	inv.initErr = errors.New("no api key")
	team := tt.team()
	team.Investment = inv

	var events []models.LogEvent
	var mu sync.Mutex
	engine, err := NewEngine(team, WithEmitter(message.Func(func(e models.LogEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})))
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), initialState())
	assert.ErrorIs(t, err, ErrInitialization)
	assert.Empty(t, tt.fundamental.seen.StockCode, "no stage ran")
	require.NotEmpty(t, events)
	assert.Equal(t, models.LevelError, events[0].Level)

	// a later run retries initialization
	inv.initErr = nil
	out, err := engine.Run(context.Background(), initialState())
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, out.Decision.Action)
	assert.Equal(t, int32(2), inv.inits.Load())
}

func TestEngineEmitsEventsAndStatus(t *testing.T) {
	tt := newTestTeam()
	tt.valuation.err = errors.New("no data")
	buf := message.NewMessageBuffer(100)

	runEngine(t, tt.team(), WithEmitter(buf))

	var msgs []string
	for _, e := range buf.Messages() {
		msgs = append(msgs, e.Message)
	}
	joined := strings.Join(msgs, "\n")
	assert.Contains(t, joined, "starting parallel analysis")
	assert.Contains(t, joined, consts.Agent_ValuationAnalyst+" failed: no data")
	assert.Contains(t, joined, "completed: BUY")
	assert.Equal(t, consts.State_Failed, buf.AgentStatus(consts.Agent_ValuationAnalyst))
	assert.Equal(t, consts.State_Completed, buf.AgentStatus(consts.Agent_TechnicalAnalyst))
	assert.Equal(t, consts.State_Completed, buf.AgentStatus(consts.Agent_InvestmentAdvisor))
}

func TestNewEngineRequiresFullTeam(t *testing.T) {
	team := newTestTeam().team()
	team.Valuation = nil

	_, err := NewEngine(team)
	assert.Error(t, err)
}

func TestEngineWithHeuristicTeam(t *testing.T) {
	state := models.NewWorkflowState("Test Corp", "TEST", "2024-01-10", 10,
		[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		models.PortfolioSnapshot{Cash: 1000, TotalValue: 1000, AvailableCashRatio: 1})
	engine, err := NewEngine(agents.NewHeuristicTeam())
	require.NoError(t, err)

	out, err := engine.Run(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, out.Decision)
	assert.Contains(t, out.SummaryAnalysis, "Overall signal: +0.07")
	assert.Equal(t, models.ActionHold, out.Decision.Action)
	assert.Contains(t, out.FinalReport, "\n\n---\n\n")
}
