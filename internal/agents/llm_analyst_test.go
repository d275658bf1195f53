package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexQuant/consts"
	"github.com/dyike/CortexQuant/models"
)

type fakeModel struct {
	reply string
	err   error
	got   []*schema.Message
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.got = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func sampleView() models.StateView {
	return models.StateView{
		CompanyName:      "Kweichow Moutai",
		StockCode:        "600519",
		CurrentDate:      "2024-03-01",
		CurrentPrice:     1700,
		HistoricalPrices: []float64{1650, 1680, 1700},
		Portfolio:        models.PortfolioSnapshot{Cash: 100000, TotalValue: 100000, AvailableCashRatio: 1},
	}
}

func TestLLMAnalystRendersPrompt(t *testing.T) {
	fm := &fakeModel{reply: "looks solid"}
	a := NewFundamentalAnalyst(fm, zerolog.Nop())

	res, err := a.Analyze(context.Background(), sampleView())
	require.NoError(t, err)

	assert.Equal(t, "looks solid", res.Text)
	assert.Nil(t, res.Decision)
	require.Len(t, fm.got, 2)
	assert.Equal(t, schema.System, fm.got[0].Role)
	assert.Contains(t, fm.got[0].Content, "fundamental analyst")
	assert.Contains(t, fm.got[1].Content, "Kweichow Moutai (600519)")
	assert.Contains(t, fm.got[1].Content, "1650.00, 1680.00, 1700.00")
	assert.Equal(t, consts.Agent_FundamentalAnalyst, a.Name())
}

func TestSummaryAnalystSeesAllAnalyses(t *testing.T) {
	fm := &fakeModel{reply: "summary"}
	view := sampleView()
	view.FundamentalAnalysis = "F-TEXT"
	view.TechnicalAnalysis = "Technical Analyst failed: timeout"
	view.ValuationAnalysis = "V-TEXT"

	_, err := NewSummaryAnalyst(fm, zerolog.Nop()).Analyze(context.Background(), view)
	require.NoError(t, err)

	user := fm.got[1].Content
	assert.Contains(t, user, "F-TEXT")
	assert.Contains(t, user, "Technical Analyst failed: timeout")
	assert.Contains(t, user, "V-TEXT")
}

func TestInvestmentAdvisorParsesDecision(t *testing.T) {
	fm := &fakeModel{reply: "Momentum is strong.\n```json\n" +
		`{"action": "buy", "confidence": 0.8, "target_price": 1900, "stop_loss": null, "position_size": 0.3, "holding_period": "long", "risk_level": "low", "reasons": ["trend"]}` +
		"\n```"}
	view := sampleView()
	view.SummaryAnalysis = "bullish summary"

	res, err := NewInvestmentAdvisor(fm, zerolog.Nop()).Analyze(context.Background(), view)
	require.NoError(t, err)

	require.NotNil(t, res.Decision)
	assert.Equal(t, models.ActionBuy, res.Decision.Action)
	assert.Equal(t, 0.3, res.Decision.PositionSize)
	require.NotNil(t, res.Decision.TargetPrice)
	assert.Equal(t, 1900.0, *res.Decision.TargetPrice)
	assert.Nil(t, res.Decision.StopLoss)
	assert.Contains(t, fm.got[1].Content, "bullish summary")
	assert.Contains(t, fm.got[1].Content, "Cash: 100000.00")
}

func TestInvestmentAdvisorRejectsMalformedDecision(t *testing.T) {
	fm := &fakeModel{reply: `{"action": "BUY", "confidence": 7}`}

	_, err := NewInvestmentAdvisor(fm, zerolog.Nop()).Analyze(context.Background(), sampleView())
	assert.Error(t, err)

	fm.reply = "no json here"
	_, err = NewInvestmentAdvisor(fm, zerolog.Nop()).Analyze(context.Background(), sampleView())
	assert.ErrorIs(t, err, models.ErrNoDecisionPayload)
}

func TestLLMAnalystModelError(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := NewTechnicalAnalyst(&fakeModel{err: boom}, zerolog.Nop()).Analyze(context.Background(), sampleView())
	assert.ErrorIs(t, err, boom)

	_, err = NewTechnicalAnalyst(&fakeModel{reply: "   "}, zerolog.Nop()).Analyze(context.Background(), sampleView())
	assert.Error(t, err)
}

func TestLLMAnalystInitWithoutModel(t *testing.T) {
	a := NewValuationAnalyst(nil, zerolog.Nop())
	assert.ErrorIs(t, a.Init(context.Background()), ErrNoModel)

	a.model = &fakeModel{reply: "ok"}
	assert.NoError(t, a.Init(context.Background()))
}

func TestLLMTeamIsComplete(t *testing.T) {
	team := NewLLMTeam(&fakeModel{}, zerolog.Nop())
	require.NoError(t, team.Validate())
	for _, m := range team.Members() {
		_, ok := m.(Initializer)
		assert.True(t, ok, m.Name())
	}

	team.Summary = nil
	assert.Error(t, team.Validate())
}
