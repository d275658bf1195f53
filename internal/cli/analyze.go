package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/CortexQuant/internal/report"
	"github.com/dyike/CortexQuant/internal/trading"
	"github.com/dyike/CortexQuant/pkg/dataflows"
)

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		date    string
		company string
		source  string
		capital float64
	)
	cmd := &cobra.Command{
		Use:   "analyze [CODE]",
		Short: "Run the analyst workflow once for a stock",
		Long: `Run the analysts for one stock on one date and print the investment decision.
Example: cortexquant analyze AAPL --date=2024-03-15`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var code string
			var err error
			if len(args) == 1 {
				code = strings.ToUpper(strings.TrimSpace(args[0]))
			} else if code, err = PromptForTicker(); err != nil {
				return err
			}

			day := time.Now()
			if date != "" {
				if day, err = time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
				}
			}
			if source != "" {
				a.cfg.DataSource = strings.ToLower(source)
			}
			if capital <= 0 {
				capital = a.cfg.InitialCapital
			}

			progress := newConsoleProgress(out, false)
			prices, bars, err := a.newPrices()
			if err != nil {
				return err
			}
			if company == "" {
				company = dataflows.LookupCompanyName(ctx, bars, code)
			}

			var workflow trading.Workflow
			engine, err := a.newEngine(ctx, progress)
			if err != nil {
				a.log.Warn().Err(err).Msg("workflow unavailable")
				workflow = trading.Unavailable(err)
			} else {
				workflow = engine
			}

			DisplayHeader(out, fmt.Sprintf("Analysis: %s (%s) | Date: %s", company, code, day.Format("2006-01-02")))
			session := trading.NewSession(workflow, prices,
				trading.WithLogger(a.log),
				trading.WithEmitter(progress),
				trading.WithResultsDir(a.cfg.ResultsDir),
				trading.WithHistory(a.cfg.HistoryDays, a.cfg.HistorySize),
			)
			res, err := session.Execute(ctx, trading.Request{
				StockCode:   code,
				CompanyName: company,
				Date:        day,
				Capital:     capital,
			})
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			DisplayProgressPanel(out, progress.buf)
			if res.State.FinalReport != "" {
				fmt.Fprintln(out, res.State.FinalReport)
				fmt.Fprintln(out)
			}
			report.PrintDecision(out, res.Decision)
			if res.ReportPath != "" {
				fmt.Fprintf(out, "Report saved to %s\n", res.ReportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Analysis date in YYYY-MM-DD format (today if not provided)")
	cmd.Flags().StringVar(&company, "company", "", "Company name (looked up when empty)")
	cmd.Flags().StringVar(&source, "source", "", "Data source override")
	cmd.Flags().Float64Var(&capital, "capital", 0, "Cash of the empty portfolio shown to the analysts")

	return cmd
}
