package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexQuant/internal/graph"
	"github.com/dyike/CortexQuant/internal/message"
	"github.com/dyike/CortexQuant/internal/portfolio"
	"github.com/dyike/CortexQuant/internal/report"
	"github.com/dyike/CortexQuant/models"
	"github.com/dyike/CortexQuant/pkg/dataflows"
)

// Workflow analyses one stock on one date.
type Workflow interface {
	Run(ctx context.Context, initial *models.WorkflowState) (*models.WorkflowState, error)
}

// Request is a single-date analysis.
type Request struct {
	StockCode   string
	CompanyName string
	Date        time.Time
	Capital     float64
}

// Result of one analysis session.
type Result struct {
	State      *models.WorkflowState
	Decision   models.Decision
	ReportPath string
	// Degraded is set when the analysts could not be initialized and the
	// default decision was used instead.
	Degraded bool
}

// Session runs the workflow once, outside a backtest, against an empty
// portfolio.
type Session struct {
	engine      Workflow
	prices      dataflows.PriceSource
	emitter     message.Emitter
	log         zerolog.Logger
	resultsDir  string
	historyDays int
	historySize int
}

type Option func(*Session)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

func WithEmitter(e message.Emitter) Option {
	return func(s *Session) { s.emitter = e }
}

// WithResultsDir enables the markdown report under dir/<code>/<date>.
func WithResultsDir(dir string) Option {
	return func(s *Session) { s.resultsDir = dir }
}

func WithHistory(days, size int) Option {
	return func(s *Session) {
		if days > 0 {
			s.historyDays = days
		}
		if size > 0 {
			s.historySize = size
		}
	}
}

func NewSession(engine Workflow, prices dataflows.PriceSource, opts ...Option) *Session {
	s := &Session{
		engine:      engine,
		prices:      prices,
		log:         zerolog.Nop(),
		historyDays: 30,
		historySize: 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "session").Logger()
	return s
}

// Unavailable stands in for a workflow whose analysts could not be built.
func Unavailable(cause error) Workflow {
	return unavailable{cause: cause}
}

type unavailable struct{ cause error }

func (u unavailable) Run(context.Context, *models.WorkflowState) (*models.WorkflowState, error) {
	return nil, fmt.Errorf("%w: %v", graph.ErrInitialization, u.cause)
}

// Execute resolves the price for req.Date and runs the workflow. A missing
// price is an error. An initialization failure yields the default HOLD
// decision.
func (s *Session) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.StockCode == "" {
		return nil, errors.New("stock code is required")
	}
	if req.CompanyName == "" {
		req.CompanyName = req.StockCode
	}
	date := req.Date.Format("2006-01-02")
	message.Emit(s.emitter, models.LevelInfo, fmt.Sprintf("initializing analysis for %s on %s", req.StockCode, date))

	price, ok, err := s.prices.PriceAt(ctx, req.StockCode, req.Date)
	if err != nil {
		return nil, fmt.Errorf("price of %s on %s: %w", req.StockCode, date, err)
	}
	if !ok || price <= 0 {
		return nil, fmt.Errorf("no price for %s near %s: %w", req.StockCode, date, dataflows.ErrNoData)
	}

	history, err := s.prices.PriceHistory(ctx, req.StockCode, req.Date, s.historyDays)
	if err != nil {
		s.log.Warn().Err(err).Msg("price history unavailable")
	}
	if len(history) > s.historySize {
		history = history[len(history)-s.historySize:]
	}

	ws := models.NewWorkflowState(req.CompanyName, req.StockCode, date, price, history,
		portfolio.Snapshot(portfolio.NewState(req.Capital), req.StockCode, price))

	res := &Result{}
	out, err := s.engine.Run(ctx, ws)
	switch {
	case errors.Is(err, graph.ErrInitialization):
		s.log.Warn().Err(err).Msg("analysts unavailable, using default decision")
		message.Emit(s.emitter, models.LevelWarning, "analysts unavailable, using default decision")
		d := models.DefaultDecision(err.Error())
		ws.Decision = &d
		ws.FinalReport = "analysis failed"
		out = ws
		res.Degraded = true
	case err != nil:
		return nil, err
	case out.Decision == nil:
		d := models.DefaultDecision("workflow returned no decision")
		out.Decision = &d
	}
	res.State = out
	res.Decision = *out.Decision

	if s.resultsDir != "" {
		path, err := report.WriteMarkdown(report.AnalysisDir(s.resultsDir, req.StockCode, date),
			"analysis.md", report.AnalysisMarkdown(out))
		if err != nil {
			s.log.Error().Err(err).Msg("write analysis report")
		} else {
			res.ReportPath = path
			s.log.Info().Str("path", path).Msg("analysis report written")
		}
	}
	return res, nil
}
