package graph

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/dyike/CortexQuant/models"
)

type startKey struct{}

// LoggerCallback logs graph and node lifecycle through zerolog.
type LoggerCallback struct {
	callbacks.HandlerBuilder

	Log zerolog.Logger
}

func runInfoName(info *callbacks.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}

func (cb *LoggerCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	ev := cb.Log.Debug().Str("node", runInfoName(info))
	if state, ok := input.(*models.WorkflowState); ok {
		ev = ev.Str("stock_code", state.StockCode).Str("date", state.CurrentDate)
	}
	ev.Msg("node start")
	return context.WithValue(ctx, startKey{}, time.Now())
}

func (cb *LoggerCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	ev := cb.Log.Debug().Str("node", runInfoName(info))
	if started, ok := ctx.Value(startKey{}).(time.Time); ok {
		ev = ev.Dur("elapsed", time.Since(started))
	}
	if state, ok := output.(*models.WorkflowState); ok {
		ev = ev.Str("stage", state.Stage)
	}
	ev.Msg("node end")
	return ctx
}

func (cb *LoggerCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	cb.Log.Error().Err(err).Str("node", runInfoName(info)).Msg("node error")
	return ctx
}

func (cb *LoggerCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}

func (cb *LoggerCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	defer input.Close()
	return ctx
}
