package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dyike/CortexQuant/internal/agents"
	"github.com/dyike/CortexQuant/internal/debug"
	"github.com/dyike/CortexQuant/internal/graph"
	"github.com/dyike/CortexQuant/internal/message"
	"github.com/dyike/CortexQuant/internal/storage/sqlite"
	"github.com/dyike/CortexQuant/pkg/dataflows"
)

const memoryCacheTTL = 30 * time.Minute

// newPrices builds the configured bar source behind an in-memory range
// cache and the price resolver over it.
func (a *app) newPrices() (*dataflows.MarketPrices, *dataflows.MemoryCache, error) {
	bars, err := dataflows.NewBarSource(a.cfg, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("data source %s: %w", a.cfg.DataSource, err)
	}
	mem := dataflows.NewMemoryCache(bars, memoryCacheTTL)
	return dataflows.NewPriceSource(mem, dataflows.WithPriceWindow(a.cfg.PriceWindowDays)), mem, nil
}

// newEngine builds the analyst team and compiles the workflow graph.
func (a *app) newEngine(ctx context.Context, emitter message.Emitter) (*graph.Engine, error) {
	if err := debug.NewEinoDebugger(a.cfg, a.log).Initialize(ctx); err != nil {
		a.log.Warn().Err(err).Msg("eino debugger unavailable")
	}

	team, err := agents.NewTeam(ctx, a.cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", graph.ErrInitialization, err)
	}
	return graph.NewEngine(team, graph.WithEmitter(emitter), graph.WithLogger(a.log))
}

func (a *app) openStore() (*sqlite.Store, error) {
	return sqlite.Open(a.cfg.DBPath)
}
