package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/dyike/CortexQuant/consts"
	"github.com/dyike/CortexQuant/internal/utils"
	"github.com/dyike/CortexQuant/models"
)

// ErrNoModel is returned by Init when no chat model is bound.
var ErrNoModel = errors.New("chat model not configured")

// Generator is the part of an eino chat model the analysts use.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

const contextTpl = `Company: {company_name} ({stock_code})
Analysis date: {current_date}
Current price: {current_price}
Recent closes, oldest first: {historical_prices}
`

// LLMAnalyst renders a prompt template from the embedded prompt files and
// asks the chat model for the stage output.
type LLMAnalyst struct {
	name       string
	promptPath string
	userTpl    string
	vars       func(view models.StateView) map[string]any
	decides    bool
	model      Generator
	log        zerolog.Logger

	mu     sync.Mutex
	system string
}

func newLLMAnalyst(name, promptPath, userTpl string, decides bool, m Generator, log zerolog.Logger, vars func(models.StateView) map[string]any) *LLMAnalyst {
	return &LLMAnalyst{
		name:       name,
		promptPath: promptPath,
		userTpl:    userTpl,
		vars:       vars,
		decides:    decides,
		model:      m,
		log:        log.With().Str("component", "analyst").Str("analyst", name).Logger(),
	}
}

func NewFundamentalAnalyst(m Generator, log zerolog.Logger) *LLMAnalyst {
	return newLLMAnalyst(consts.Agent_FundamentalAnalyst, "analysts/fundamental", contextTpl, false, m, log, baseVars)
}

func NewTechnicalAnalyst(m Generator, log zerolog.Logger) *LLMAnalyst {
	return newLLMAnalyst(consts.Agent_TechnicalAnalyst, "analysts/technical", contextTpl, false, m, log, baseVars)
}

func NewValuationAnalyst(m Generator, log zerolog.Logger) *LLMAnalyst {
	return newLLMAnalyst(consts.Agent_ValuationAnalyst, "analysts/valuation", contextTpl, false, m, log, baseVars)
}

func NewSummaryAnalyst(m Generator, log zerolog.Logger) *LLMAnalyst {
	tpl := contextTpl + `
## Fundamental analysis
{fundamental_analysis}

## Technical analysis
{technical_analysis}

## Valuation analysis
{valuation_analysis}
`
	return newLLMAnalyst(consts.Agent_SummaryAnalyst, "analysts/summary", tpl, false, m, log, func(v models.StateView) map[string]any {
		vars := baseVars(v)
		vars["fundamental_analysis"] = v.FundamentalAnalysis
		vars["technical_analysis"] = v.TechnicalAnalysis
		vars["valuation_analysis"] = v.ValuationAnalysis
		return vars
	})
}

func NewInvestmentAdvisor(m Generator, log zerolog.Logger) *LLMAnalyst {
	tpl := contextTpl + `
## Portfolio
{portfolio}
## Research summary
{summary_analysis}
`
	return newLLMAnalyst(consts.Agent_InvestmentAdvisor, "analysts/investment", tpl, true, m, log, func(v models.StateView) map[string]any {
		vars := baseVars(v)
		vars["portfolio"] = formatPortfolio(v.Portfolio)
		vars["summary_analysis"] = v.SummaryAnalysis
		return vars
	})
}

func baseVars(v models.StateView) map[string]any {
	return map[string]any{
		"company_name":      v.CompanyName,
		"stock_code":        v.StockCode,
		"current_date":      v.CurrentDate,
		"current_price":     fmt.Sprintf("%.2f", v.CurrentPrice),
		"historical_prices": formatPrices(v.HistoricalPrices),
	}
}

func (a *LLMAnalyst) Name() string { return a.name }

// Init loads the system prompt. A failed Init is retried on the next call.
func (a *LLMAnalyst) Init(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.model == nil {
		return fmt.Errorf("%s: %w", a.name, ErrNoModel)
	}
	if a.system != "" {
		return nil
	}
	system, err := utils.LoadPrompt(a.promptPath)
	if err != nil {
		return err
	}
	a.system = system
	return nil
}

func (a *LLMAnalyst) Analyze(ctx context.Context, view models.StateView) (*models.AnalystResult, error) {
	if err := a.Init(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	system := a.system
	a.mu.Unlock()

	promptTemp := prompt.FromMessages(schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(a.userTpl),
	)
	msgs, err := promptTemp.Format(ctx, a.vars(view))
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}

	resp, err := a.model.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, errors.New("empty model response")
	}
	a.log.Debug().Int("chars", len(resp.Content)).Msg("analysis generated")

	result := &models.AnalystResult{Text: resp.Content}
	if a.decides {
		d, err := models.ParseDecision(resp.Content)
		if err != nil {
			return nil, fmt.Errorf("parse decision: %w", err)
		}
		result.Decision = &d
	}
	return result, nil
}

// NewLLMTeam binds all five stages to the same chat model.
func NewLLMTeam(m Generator, log zerolog.Logger) Team {
	return Team{
		Fundamental: NewFundamentalAnalyst(m, log),
		Technical:   NewTechnicalAnalyst(m, log),
		Valuation:   NewValuationAnalyst(m, log),
		Summary:     NewSummaryAnalyst(m, log),
		Investment:  NewInvestmentAdvisor(m, log),
	}
}
