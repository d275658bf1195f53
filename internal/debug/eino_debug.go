package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/rs/zerolog"

	"github.com/dyike/CortexQuant/config"
)

// EinoDebugger starts the eino devops server so compiled workflow graphs can
// be inspected from the visual debugger.
type EinoDebugger struct {
	config *config.Config
	log    zerolog.Logger
	init   func(ctx context.Context) error
}

func NewEinoDebugger(cfg *config.Config, log zerolog.Logger) *EinoDebugger {
	return &EinoDebugger{
		config: cfg,
		log:    log.With().Str("component", "eino_debug").Logger(),
		init:   func(ctx context.Context) error { return devops.Init(ctx) },
	}
}

// Initialize must run before the workflow graph is compiled.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.IsEnabled() {
		return nil
	}

	d.log.Debug().Int("port", d.config.EinoDebugPort).Msg("initializing eino visual debug plugin")
	if err := d.init(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.log.Info().Str("url", d.GetDebugURL()).Msg("eino debug server started")
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.IsEnabled() {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.config.EinoDebugPort)
}
