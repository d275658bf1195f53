package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dyike/CortexQuant/internal/graph"
	"github.com/dyike/CortexQuant/internal/message"
	"github.com/dyike/CortexQuant/internal/metrics"
	"github.com/dyike/CortexQuant/internal/performance"
	"github.com/dyike/CortexQuant/internal/portfolio"
	"github.com/dyike/CortexQuant/internal/trace"
	"github.com/dyike/CortexQuant/models"
	"github.com/dyike/CortexQuant/pkg/dataflows"
)

const dateLayout = "2006-01-02"

// Workflow produces a decision for one analysis date.
type Workflow interface {
	Run(ctx context.Context, initial *models.WorkflowState) (*models.WorkflowState, error)
}

// Request describes one backtest run.
type Request struct {
	StockCode      string
	CompanyName    string
	Start          time.Time
	End            time.Time
	Frequency      Frequency
	InitialCapital float64
}

func (r Request) Validate() error {
	if r.StockCode == "" {
		return errors.New("stock code is required")
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("end %s is before start %s", r.End.Format(dateLayout), r.Start.Format(dateLayout))
	}
	if r.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %.2f", r.InitialCapital)
	}
	return nil
}

// Driver replays the workflow over a date range, strictly one date at a
// time, and keeps the only copy of the portfolio ledger.
type Driver struct {
	engine      Workflow
	prices      dataflows.PriceSource
	emitter     message.Emitter
	log         zerolog.Logger
	historyDays int
	historySize int
	onStep      func(Step)
}

// Step is reported after every processed date.
type Step struct {
	Date        string
	Price       float64
	Decision    models.Decision
	Transaction *models.Transaction
	Valuation   models.ValuationPoint
	Shares      float64
}

type Option func(*Driver)

func WithLogger(log zerolog.Logger) Option {
	return func(d *Driver) { d.log = log }
}

func WithEmitter(e message.Emitter) Option {
	return func(d *Driver) { d.emitter = e }
}

// WithHistory sets the lookback in calendar days and how many of the most
// recent closes are handed to the workflow.
func WithHistory(days, size int) Option {
	return func(d *Driver) {
		if days > 0 {
			d.historyDays = days
		}
		if size > 0 {
			d.historySize = size
		}
	}
}

// WithStepHook is called after each processed date.
func WithStepHook(fn func(Step)) Option {
	return func(d *Driver) { d.onStep = fn }
}

func NewDriver(engine Workflow, prices dataflows.PriceSource, opts ...Option) *Driver {
	d := &Driver{
		engine:      engine,
		prices:      prices,
		log:         zerolog.Nop(),
		historyDays: 30,
		historySize: 10,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("component", "backtest").Logger()
	return d
}

// Run executes the backtest and summarizes it. Dates without a resolvable
// price are skipped. Only a workflow initialization failure or a cancelled
// context stops the run early.
func (d *Driver) Run(ctx context.Context, req Request) (perf *models.Performance, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.CompanyName == "" {
		req.CompanyName = req.StockCode
	}
	ctx, span := trace.StartSpan(ctx, "backtest.run",
		attribute.String("stock_code", req.StockCode),
		attribute.String("frequency", string(req.Frequency)),
	)
	defer func() { trace.EndSpan(span, err) }()

	dates := GenerateDates(req.Start, req.End, req.Frequency)
	d.log.Info().
		Str("stock_code", req.StockCode).
		Int("dates", len(dates)).
		Float64("initial_capital", req.InitialCapital).
		Msg("backtest started")
	message.Emit(d.emitter, models.LevelInfo, fmt.Sprintf("backtesting %s over %d dates", req.StockCode, len(dates)))

	state := portfolio.NewState(req.InitialCapital)
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, err = d.step(ctx, req, state, date)
		if err != nil {
			return nil, err
		}
	}

	perf, err = performance.Summarize(state.DailyValues, state.Transactions, req.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", req.StockCode, err)
	}
	d.log.Info().
		Float64("total_return", perf.TotalReturn).
		Int("total_trades", perf.TotalTrades).
		Msg("backtest finished")
	return perf, nil
}

func (d *Driver) step(ctx context.Context, req Request, state models.PortfolioState, date time.Time) (models.PortfolioState, error) {
	dateStr := date.Format(dateLayout)

	price, ok, err := d.prices.PriceAt(ctx, req.StockCode, date)
	if err != nil || !ok || price <= 0 {
		d.skip(req.StockCode, dateStr, err)
		return state, nil
	}

	history, err := d.prices.PriceHistory(ctx, req.StockCode, date, d.historyDays)
	if err != nil {
		d.log.Warn().Err(err).Str("date", dateStr).Msg("price history unavailable")
		history = nil
	}
	if len(history) > d.historySize {
		history = history[len(history)-d.historySize:]
	}

	ws := models.NewWorkflowState(req.CompanyName, req.StockCode, dateStr, price, history,
		portfolio.Snapshot(state, req.StockCode, price))

	decision, err := d.decide(ctx, ws)
	if err != nil {
		return state, err
	}

	next, tx := portfolio.Execute(state, decision, req.StockCode, price, dateStr)
	if tx != nil {
		metrics.RecordTrade(req.StockCode, string(tx.Action))
		message.Emit(d.emitter, models.LevelSuccess, fmt.Sprintf("%s %s %.4f shares at %.2f", dateStr, tx.Action, tx.Shares, tx.Price))
	} else if decision.Action != models.ActionHold {
		message.Emit(d.emitter, models.LevelInfo, fmt.Sprintf("%s %s not executed", dateStr, decision.Action))
	}

	point := d.valuation(ctx, next, req.StockCode, price, date)
	next.DailyValues = append(next.DailyValues, point)
	metrics.SetPortfolioValue(req.StockCode, point.PortfolioValue)

	shares := next.Positions[req.StockCode]
	message.Emit(d.emitter, models.LevelInfo, fmt.Sprintf("%s price %.2f shares %.4f cash %.2f total %.2f",
		dateStr, price, shares, point.Cash, point.PortfolioValue))
	if d.onStep != nil {
		d.onStep(Step{Date: dateStr, Price: price, Decision: decision, Transaction: tx, Valuation: point, Shares: shares})
	}
	return next, nil
}

// decide runs the workflow. Anything short of an initialization failure
// degrades into the default decision.
func (d *Driver) decide(ctx context.Context, ws *models.WorkflowState) (models.Decision, error) {
	out, err := d.engine.Run(ctx, ws)
	switch {
	case errors.Is(err, graph.ErrInitialization):
		return models.Decision{}, err
	case err != nil:
		d.log.Error().Err(err).Str("date", ws.CurrentDate).Msg("workflow failed")
		message.Emit(d.emitter, models.LevelError, fmt.Sprintf("%s workflow failed: %v", ws.CurrentDate, err))
		return models.DefaultDecision(err.Error()), nil
	case out == nil || out.Decision == nil:
		return models.DefaultDecision("workflow returned no decision"), nil
	}
	return *out.Decision, nil
}

// valuation prices every held instrument on date. The traded instrument
// reuses the resolved price; others contribute nothing when unpriced.
func (d *Driver) valuation(ctx context.Context, state models.PortfolioState, stockCode string, price float64, date time.Time) models.ValuationPoint {
	prices := map[string]float64{stockCode: price}

	codes := make([]string, 0, len(state.Positions))
	for code := range state.Positions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if code == stockCode || state.Positions[code] == 0 {
			continue
		}
		p, ok, err := d.prices.PriceAt(ctx, code, date)
		if err != nil || !ok {
			d.log.Warn().Err(err).Str("stock_code", code).Msg("no price for held instrument")
			continue
		}
		prices[code] = p
	}

	total := portfolio.Value(state, prices)
	return models.ValuationPoint{
		Date:           date.Format(dateLayout),
		PortfolioValue: total,
		Cash:           state.Cash,
		StockValue:     total - state.Cash,
	}
}

func (d *Driver) skip(stockCode, date string, err error) {
	metrics.RecordSkippedDate(stockCode)
	ev := d.log.Warn().Str("date", date)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("no price, date skipped")
	message.Emit(d.emitter, models.LevelWarning, fmt.Sprintf("%s no price data, skipped", date))
}
