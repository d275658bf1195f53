package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyike/CortexQuant/consts"
	"github.com/dyike/CortexQuant/models"
	"github.com/dyike/CortexQuant/pkg/dataflows"
)

// Thresholds of the rule-based investment advisor.
const (
	buyThreshold  = 0.3
	sellThreshold = -0.3
	minCashRatio  = 0.05
)

// ErrNoSignal is returned by the rule-based advisor when the summary carries
// no overall signal line.
var ErrNoSignal = errors.New("summary has no overall signal")

// NewHeuristicTeam builds indicator-driven analysts that need no network
// access. Each parallel analyst ends its text with a "Signal:" line in
// [-1, 1] which the summary averages into an "Overall signal:" line.
func NewHeuristicTeam() Team {
	return Team{
		Fundamental: MomentumAnalyst{},
		Technical:   IndicatorAnalyst{},
		Valuation:   MeanReversionAnalyst{},
		Summary:     SignalSummary{},
		Investment:  RuleAdvisor{},
	}
}

func closesOf(view models.StateView) []float64 {
	if len(view.HistoricalPrices) > 0 {
		return view.HistoricalPrices
	}
	if view.CurrentPrice > 0 {
		return []float64{view.CurrentPrice}
	}
	return nil
}

// MomentumAnalyst stands in for fundamentals with the trend of the window.
type MomentumAnalyst struct{}

func (MomentumAnalyst) Name() string { return consts.Agent_FundamentalAnalyst }

func (MomentumAnalyst) Analyze(_ context.Context, view models.StateView) (*models.AnalystResult, error) {
	closes := closesOf(view)
	m, err := dataflows.Momentum(closes)
	if err != nil {
		return nil, fmt.Errorf("momentum over %d closes: %w", len(closes), err)
	}
	score := clamp(m*3, -1, 1)

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Fundamental overview\n%s (%s) has no statement data offline; the price trend is used as a proxy.\n\n",
		view.CompanyName, view.StockCode)
	fmt.Fprintf(&sb, "Change over the last %d closes: %+.2f%%.\n\n", len(closes), m*100)
	sb.WriteString(formatSignal("Signal", score))
	return &models.AnalystResult{Text: sb.String()}, nil
}

// IndicatorAnalyst combines a moving average crossover with RSI.
type IndicatorAnalyst struct{}

func (IndicatorAnalyst) Name() string { return consts.Agent_TechnicalAnalyst }

func (IndicatorAnalyst) Analyze(_ context.Context, view models.StateView) (*models.AnalystResult, error) {
	closes := closesOf(view)
	n := len(closes)
	if n < 3 {
		return nil, fmt.Errorf("technical indicators over %d closes: %w", n, dataflows.ErrInsufficientData)
	}

	short, _ := dataflows.SMA(closes, min(5, n))
	long, _ := dataflows.SMA(closes, n)
	rsi, _ := dataflows.RSI(closes, min(14, n-1))
	ema, _ := dataflows.EMA(closes, min(10, n))

	trend := 0.0
	if long > 0 {
		trend = clamp((short-long)/long*10, -1, 1)
	}
	score := 0.6*trend + 0.4*(50-rsi)/50

	var sb strings.Builder
	sb.WriteString("### Technical view\n")
	fmt.Fprintf(&sb, "- SMA(%d): %.2f, SMA(%d): %.2f, EMA(%d): %.2f\n", min(5, n), short, n, long, min(10, n), ema)
	fmt.Fprintf(&sb, "- RSI(%d): %.1f\n", min(14, n-1), rsi)
	switch {
	case rsi >= 70:
		sb.WriteString("- Overbought\n")
	case rsi <= 30:
		sb.WriteString("- Oversold\n")
	}
	sb.WriteString("\n")
	sb.WriteString(formatSignal("Signal", clamp(score, -1, 1)))
	return &models.AnalystResult{Text: sb.String()}, nil
}

// MeanReversionAnalyst values the price against the window average.
type MeanReversionAnalyst struct{}

func (MeanReversionAnalyst) Name() string { return consts.Agent_ValuationAnalyst }

func (MeanReversionAnalyst) Analyze(_ context.Context, view models.StateView) (*models.AnalystResult, error) {
	closes := closesOf(view)
	if view.CurrentPrice <= 0 || len(closes) == 0 {
		return nil, fmt.Errorf("valuation needs a price: %w", dataflows.ErrInsufficientData)
	}
	mean, _ := dataflows.SMA(closes, len(closes))
	deviation := (view.CurrentPrice - mean) / mean
	score := clamp(-deviation*5, -1, 1)

	var sb strings.Builder
	sb.WriteString("### Fair value range\n")
	fmt.Fprintf(&sb, "Window average %.2f, current %.2f (%+.2f%%).\n\n", mean, view.CurrentPrice, deviation*100)
	sb.WriteString(formatSignal("Signal", score))
	return &models.AnalystResult{Text: sb.String()}, nil
}

// SignalSummary averages the signals it can find in the three analyses.
type SignalSummary struct{}

func (SignalSummary) Name() string { return consts.Agent_SummaryAnalyst }

func (SignalSummary) Analyze(_ context.Context, view models.StateView) (*models.AnalystResult, error) {
	inputs := []struct {
		label string
		text  string
	}{
		{"Fundamental", view.FundamentalAnalysis},
		{"Technical", view.TechnicalAnalysis},
		{"Valuation", view.ValuationAnalysis},
	}

	var (
		sb    strings.Builder
		total float64
		count int
	)
	sb.WriteString("### Executive summary\n")
	for _, in := range inputs {
		score, ok := parseSignal(in.text)
		if !ok {
			fmt.Fprintf(&sb, "- %s: unavailable\n", in.label)
			continue
		}
		fmt.Fprintf(&sb, "- %s: %+.2f\n", in.label, score)
		total += score
		count++
	}
	if count == 0 {
		return nil, errors.New("no analysis produced a signal")
	}
	sb.WriteString("\n")
	sb.WriteString(formatSignal("Overall signal", total/float64(count)))
	return &models.AnalystResult{Text: sb.String()}, nil
}

// RuleAdvisor maps the overall signal and the portfolio exposure to a
// decision.
type RuleAdvisor struct{}

func (RuleAdvisor) Name() string { return consts.Agent_InvestmentAdvisor }

func (RuleAdvisor) Analyze(_ context.Context, view models.StateView) (*models.AnalystResult, error) {
	score, ok := parseSignal(view.SummaryAnalysis)
	if !ok {
		return nil, ErrNoSignal
	}
	p := view.Portfolio
	price := view.CurrentPrice

	d := models.Decision{
		Action:        models.ActionHold,
		Confidence:    0.5,
		HoldingPeriod: models.HoldingMedium,
		RiskLevel:     models.RiskMedium,
	}
	cashRatio := p.AvailableCashRatio
	if p.TotalValue <= 0 && p.Cash > 0 {
		cashRatio = 1
	}

	switch {
	case score >= buyThreshold && cashRatio > minCashRatio:
		d.Action = models.ActionBuy
		d.Confidence = clamp(0.5+score/2, 0, 0.95)
		d.PositionSize = clamp(score/2, 0.1, 0.5)
		target, stop := price*1.10, price*0.92
		d.TargetPrice, d.StopLoss = &target, &stop
		d.Reasons = []string{fmt.Sprintf("overall signal %+.2f", score), fmt.Sprintf("cash ratio %.0f%%", cashRatio*100)}
	case score <= sellThreshold && p.CurrentShares > 0:
		d.Action = models.ActionSell
		d.Confidence = clamp(0.5-score/2, 0, 0.95)
		d.PositionSize = clamp(-score, 0, 1)
		d.HoldingPeriod = models.HoldingShort
		d.RiskLevel = models.RiskHigh
		d.Reasons = []string{fmt.Sprintf("overall signal %+.2f", score), fmt.Sprintf("holding %.4f shares", p.CurrentShares)}
	default:
		d.Reasons = []string{fmt.Sprintf("overall signal %+.2f is inconclusive for the current exposure", score)}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("### Investment decision\n")
	fmt.Fprintf(&sb, "Action: %s, confidence %.2f, position size %.2f\n", d.Action, d.Confidence, d.PositionSize)
	for _, r := range d.Reasons {
		fmt.Fprintf(&sb, "- %s\n", r)
	}
	return &models.AnalystResult{Text: sb.String(), Decision: &d}, nil
}
