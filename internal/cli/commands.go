package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dyike/CortexQuant/config"
	"github.com/dyike/CortexQuant/internal/logger"
	"github.com/dyike/CortexQuant/internal/metrics"
	"github.com/dyike/CortexQuant/internal/trace"
)

// Version is overridden at build time with -ldflags.
var Version = "1.0.0"

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	cfg        *config.Config
	configPath string
	log        zerolog.Logger

	stopMetrics context.CancelFunc
}

type rootFlags struct {
	configPath  string
	debug       bool
	logLevel    string
	metricsAddr string
	trace       bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{log: logger.Nop()}
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "cortexquant",
		Short: "CortexQuant - multi-analyst stock analysis and backtesting",
		Long: `CortexQuant runs a team of analysts (fundamental, technical, valuation) over a stock,
summarizes their views into an investment decision and replays those decisions
over history to measure how they would have performed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	rootCmd.AddCommand(newBacktestCmd(a))
	rootCmd.AddCommand(newAnalyzeCmd(a))
	rootCmd.AddCommand(newRunsCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Configuration file path (JSON or YAML)")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug mode")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	pf.BoolVar(&flags.trace, "trace", false, "Print OpenTelemetry spans to stderr")

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = flags.debug
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.metricsAddr != "" {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if flags.trace {
		cfg.TracingEnabled = true
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	a.cfg = cfg
	a.configPath = flags.configPath
	a.log = logger.New(cfg)

	if err := trace.Init(cfg.TracingEnabled, os.Stderr); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	if cfg.MetricsAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopMetrics = cancel
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				a.log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server stopped")
			}
		}()
		a.log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}
	return nil
}

func (a *app) teardown() error {
	if a.stopMetrics != nil {
		a.stopMetrics()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return trace.Shutdown(ctx)
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "CortexQuant v%s\n", Version)
			fmt.Fprintln(cmd.OutOrStdout(), "Multi-analyst stock analysis and backtesting")
		},
	}
}
