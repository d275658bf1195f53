package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/CortexQuant/config"
)

// newConfigCmd creates the config command
func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Inspect, validate and edit the CortexQuant configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cmd.OutOrStdout(), a.cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := a.cfg.Validate(); err != nil {
				fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))
				return err
			}
			fmt.Fprintln(out, completedStyle.Render("✓ Configuration is valid"))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file with default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.configManager()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration at %s\n", mgr.Path())
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:     "set KEY VALUE",
		Short:   "Change one setting in the config file",
		Example: "  cortexquant config set initial_capital 250000\n  cortexquant config set data_source csv",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.configManager()
			if err != nil {
				return err
			}
			if err := mgr.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), completedStyle.Render(fmt.Sprintf("✓ %s updated in %s", args[0], mgr.Path())))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print the configuration every time the file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.configManager()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			err = mgr.Watch(cmd.Context(), func(cfg config.Config) {
				fmt.Fprintln(out)
				showConfig(out, &cfg)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Watching %s, press Ctrl+C to stop\n", mgr.Path())
			<-cmd.Context().Done()
			return nil
		},
	})

	return configCmd
}

// configManager opens the JSON file named by --config, or the per-user
// default when none was given.
func (a *app) configManager() (*config.Manager, error) {
	if a.configPath != "" && strings.ToLower(filepath.Ext(a.configPath)) != ".json" {
		return nil, fmt.Errorf("config file %s is not JSON; edit it directly", a.configPath)
	}
	return config.NewManager(config.WithConfigPath(a.configPath), config.WithManagerLogger(a.log))
}

func configured(v string) string {
	if v != "" {
		return completedStyle.Render("configured")
	}
	return pendingStyle.Render("not configured")
}

// showConfig displays the current configuration
func showConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, titleStyle.Render("CortexQuant Configuration"))
	fmt.Fprintf(w, "Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Fprintf(w, "Results Directory:    %s\n", cfg.ResultsDir)
	fmt.Fprintf(w, "Data Directory:       %s\n", cfg.DataDir)
	fmt.Fprintf(w, "Cache Directory:      %s\n", cfg.DataCacheDir)
	fmt.Fprintf(w, "CSV Directory:        %s\n", cfg.CSVDataDir)
	fmt.Fprintf(w, "Run Database:         %s\n", cfg.DBPath)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "LLM Provider:         %s\n", cfg.LLMProvider)
	fmt.Fprintf(w, "Deep Think Model:     %s\n", cfg.DeepThinkLLM)
	fmt.Fprintf(w, "Quick Think Model:    %s\n", cfg.QuickThinkLLM)
	fmt.Fprintf(w, "Backend URL:          %s\n", cfg.BackendURL)
	fmt.Fprintf(w, "Max Tokens:           %d\n", cfg.MaxTokens)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Data Source:          %s\n", cfg.DataSource)
	fmt.Fprintf(w, "Initial Capital:      %.2f\n", cfg.InitialCapital)
	fmt.Fprintf(w, "Frequency:            %s\n", cfg.Frequency)
	fmt.Fprintf(w, "Price Window Days:    %d\n", cfg.PriceWindowDays)
	fmt.Fprintf(w, "History:              %d closes over %d days\n", cfg.HistorySize, cfg.HistoryDays)
	fmt.Fprintf(w, "Requests Per Second:  %.2f\n", cfg.RequestsPerSecond)
	fmt.Fprintf(w, "Cache Enabled:        %t\n", cfg.CacheEnabled)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Log Level:            %s (%s)\n", cfg.LogLevel, cfg.LogFormat)
	fmt.Fprintf(w, "Debug Mode:           %t\n", cfg.Debug)
	fmt.Fprintf(w, "Tracing:              %t\n", cfg.TracingEnabled)
	fmt.Fprintf(w, "Metrics Address:      %s\n", cfg.MetricsAddr)
	fmt.Fprintf(w, "Eino Debug:           %t\n", cfg.EinoDebugEnabled)
	if cfg.EinoDebugEnabled {
		fmt.Fprintf(w, "Debug URL:            http://localhost:%d\n", cfg.EinoDebugPort)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "API Configuration:")
	fmt.Fprintf(w, "  DeepSeek:           %s\n", configured(cfg.DeepSeekAPIKey))
	fmt.Fprintf(w, "  OpenAI:             %s\n", configured(cfg.OpenAIAPIKey))
	fmt.Fprintf(w, "  Longport:           %s\n", configured(cfg.LongportAccessToken))
	fmt.Fprintf(w, "  Alpaca:             %s\n", configured(cfg.AlpacaAPIKey))
	fmt.Fprintf(w, "  Finnhub:            %s\n", configured(cfg.FinnhubAPIKey))
}
