package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/dyike/CortexQuant/consts"
	"github.com/dyike/CortexQuant/internal/agents"
	"github.com/dyike/CortexQuant/internal/message"
	"github.com/dyike/CortexQuant/internal/metrics"
	"github.com/dyike/CortexQuant/internal/trace"
	"github.com/dyike/CortexQuant/models"
)

// ErrInitialization marks failures binding analysts before any stage runs.
var ErrInitialization = errors.New("workflow initialization failed")

// StatusTracker is implemented by emitters that display per-analyst status.
type StatusTracker interface {
	UpdateAgentStatus(agent, status string)
}

// Engine runs the fixed router, parallel_analysis, summary, investment
// sequence over one WorkflowState.
type Engine struct {
	team      agents.Team
	runnable  compose.Runnable[*models.WorkflowState, *models.WorkflowState]
	emitter   message.Emitter
	log       zerolog.Logger
	callbacks []callbacks.Handler
}

type Option func(*Engine)

func WithEmitter(e message.Emitter) Option {
	return func(en *Engine) { en.emitter = e }
}

func WithLogger(log zerolog.Logger) Option {
	return func(en *Engine) { en.log = log }
}

// WithCallbacks adds eino callback handlers to every run.
func WithCallbacks(handlers ...callbacks.Handler) Option {
	return func(en *Engine) { en.callbacks = append(en.callbacks, handlers...) }
}

func NewEngine(team agents.Team, opts ...Option) (*Engine, error) {
	if err := team.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{team: team, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("component", "workflow").Logger()
	e.callbacks = append([]callbacks.Handler{&LoggerCallback{Log: e.log}}, e.callbacks...)

	runnable, err := e.compile(context.Background())
	if err != nil {
		return nil, fmt.Errorf("compile workflow graph: %w", err)
	}
	e.runnable = runnable
	return e, nil
}

func (e *Engine) compile(ctx context.Context) (compose.Runnable[*models.WorkflowState, *models.WorkflowState], error) {
	g := compose.NewGraph[*models.WorkflowState, *models.WorkflowState]()

	nodes := []struct {
		key string
		fn  func(context.Context, *models.WorkflowState) (*models.WorkflowState, error)
	}{
		{consts.Router, e.router},
		{consts.ParallelAnalysis, e.parallelAnalysis},
		{consts.Summary, e.summary},
		{consts.Investment, e.investment},
	}

	prev := compose.START
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.key, compose.InvokableLambda(n.fn), compose.WithNodeName(n.key)); err != nil {
			return nil, err
		}
		if err := g.AddEdge(prev, n.key); err != nil {
			return nil, err
		}
		prev = n.key
	}
	if err := g.AddEdge(prev, compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx,
		compose.WithGraphName(consts.GraphName),
		compose.WithNodeTriggerMode(compose.AllPredecessor),
	)
}

// Run drives one analysis. It only fails when the analysts cannot be
// initialized; every stage failure afterwards degrades into a marker or the
// default decision.
func (e *Engine) Run(ctx context.Context, initial *models.WorkflowState) (_ *models.WorkflowState, err error) {
	if initial == nil {
		return nil, errors.New("nil workflow state")
	}
	ctx, span := trace.StartSpan(ctx, "workflow.run",
		attribute.String("stock_code", initial.StockCode),
		attribute.String("date", initial.CurrentDate),
	)
	defer func() { trace.EndSpan(span, err) }()

	if err := e.initialize(ctx); err != nil {
		message.Emit(e.emitter, models.LevelError, err.Error())
		return nil, err
	}

	out, err := e.runnable.Invoke(ctx, initial, compose.WithCallbacks(e.callbacks...))
	if err != nil {
		return nil, fmt.Errorf("run workflow: %w", err)
	}

	enter(out, consts.Done)
	message.Emit(e.emitter, models.LevelSuccess, fmt.Sprintf("analysis of %s on %s completed: %s",
		out.StockCode, out.CurrentDate, out.Decision.Action))
	return out, nil
}

func (e *Engine) initialize(ctx context.Context) error {
	for _, a := range e.team.Members() {
		in, ok := a.(agents.Initializer)
		if !ok {
			continue
		}
		if err := in.Init(ctx); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInitialization, a.Name(), err)
		}
	}
	return nil
}

func enter(s *models.WorkflowState, stage string) {
	s.Stage = stage
	s.Trail = append(s.Trail, stage)
}

func (e *Engine) router(ctx context.Context, s *models.WorkflowState) (*models.WorkflowState, error) {
	enter(s, consts.Router)
	message.Emit(e.emitter, models.LevelInfo, "starting parallel analysis")
	return s, nil
}

func (e *Engine) parallelAnalysis(ctx context.Context, s *models.WorkflowState) (*models.WorkflowState, error) {
	enter(s, consts.ParallelAnalysis)
	ctx, span := trace.StartSpan(ctx, "workflow."+consts.ParallelAnalysis)
	defer span.End()
	message.Emit(e.emitter, models.LevelInfo, "running fundamental, technical and valuation analysis")

	tasks := []struct {
		analyst agents.Analyst
		slot    *string
	}{
		{e.team.Fundamental, &s.FundamentalAnalysis},
		{e.team.Technical, &s.TechnicalAnalysis},
		{e.team.Valuation, &s.ValuationAnalysis},
	}
	texts := make([]string, len(tasks))

	// Plain group: a failing analyst never cancels its siblings.
	var g errgroup.Group
	for i, task := range tasks {
		view := s.View()
		g.Go(func() error {
			res, err := e.analyze(ctx, task.analyst, view)
			if err != nil {
				texts[i] = fmt.Sprintf("%s failed: %v", task.analyst.Name(), err)
				return nil
			}
			texts[i] = res.Text
			return nil
		})
	}
	_ = g.Wait()

	for i, task := range tasks {
		*task.slot = texts[i]
	}
	return s, nil
}

func (e *Engine) summary(ctx context.Context, s *models.WorkflowState) (*models.WorkflowState, error) {
	enter(s, consts.Summary)
	ctx, span := trace.StartSpan(ctx, "workflow."+consts.Summary)
	defer span.End()
	message.Emit(e.emitter, models.LevelInfo, "writing research summary")

	res, err := e.analyze(ctx, e.team.Summary, s.View())
	if err != nil {
		s.SummaryAnalysis = fmt.Sprintf("summary analysis failed: %v", err)
		return s, nil
	}
	s.SummaryAnalysis = res.Text
	return s, nil
}

func (e *Engine) investment(ctx context.Context, s *models.WorkflowState) (*models.WorkflowState, error) {
	enter(s, consts.Investment)
	ctx, span := trace.StartSpan(ctx, "workflow."+consts.Investment)
	defer span.End()
	message.Emit(e.emitter, models.LevelInfo, "deciding on investment action")

	d, text, err := e.decide(ctx, s.View())
	if err != nil {
		fallback := models.DefaultDecision(err.Error())
		s.Decision = &fallback
		s.InvestmentText = fmt.Sprintf("investment decision failed: %v", err)
		s.FinalReport = s.SummaryAnalysis
		if s.FinalReport == "" {
			s.FinalReport = "analysis failed"
		}
	} else {
		s.Decision = &d
		s.InvestmentText = text
		s.FinalReport = s.SummaryAnalysis + "\n\n---\n\n" + text
	}
	metrics.RecordDecision(string(s.Decision.Action))
	return s, nil
}

func (e *Engine) decide(ctx context.Context, view models.StateView) (models.Decision, string, error) {
	res, err := e.analyze(ctx, e.team.Investment, view)
	if err != nil {
		return models.Decision{}, "", err
	}
	if res.Decision == nil {
		e.failed(e.team.Investment.Name(), models.ErrNoDecisionPayload)
		return models.Decision{}, "", models.ErrNoDecisionPayload
	}
	d := *res.Decision
	if err := d.Validate(); err != nil {
		e.failed(e.team.Investment.Name(), err)
		return models.Decision{}, "", err
	}
	return d, res.Text, nil
}

// analyze runs one analyst, turning panics and empty results into errors and
// reporting the outcome.
func (e *Engine) analyze(ctx context.Context, a agents.Analyst, view models.StateView) (res *models.AnalystResult, err error) {
	name := a.Name()
	ctx, span := trace.StartSpan(ctx, "analyst", attribute.String("analyst", name))
	e.setStatus(name, consts.State_InProgress)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		trace.EndSpan(span, err)
		if err != nil {
			e.failed(name, err)
			return
		}
		e.setStatus(name, consts.State_Completed)
		message.Emit(e.emitter, models.LevelSuccess, name+" completed")
	}()

	res, err = a.Analyze(ctx, view)
	if err == nil && res == nil {
		err = errors.New("no result")
	}
	return res, err
}

func (e *Engine) failed(name string, err error) {
	metrics.RecordAnalystFailure(name)
	e.setStatus(name, consts.State_Failed)
	e.log.Error().Err(err).Str("analyst", name).Msg("analyst failed")
	message.Emit(e.emitter, models.LevelError, fmt.Sprintf("%s failed: %v", name, err))
}

func (e *Engine) setStatus(agent, status string) {
	if t, ok := e.emitter.(StatusTracker); ok {
		t.UpdateAgentStatus(agent, status)
	}
}
