package cli

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dyike/CortexQuant/internal/report"
)

func newRunsCmd(a *app) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse recorded backtests",
	}

	var (
		code  string
		limit int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded backtests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), code, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"ID", "Code", "Company", "Range", "Freq", "Return", "Sharpe", "Trades", "Created"})
			for _, r := range runs {
				t.AppendRow(table.Row{
					r.ID,
					r.StockCode,
					truncateString(r.CompanyName, 20),
					r.StartDate + " → " + r.EndDate,
					r.Frequency,
					fmt.Sprintf("%.2f%%", r.TotalReturn*100),
					fmt.Sprintf("%.3f", r.SharpeRatio),
					r.TotalTrades,
					r.CreatedAt,
				})
			}
			t.Render()
			return nil
		},
	}
	listCmd.Flags().StringVar(&code, "code", "", "Only runs of this stock code")
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")

	var transactions bool
	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one recorded backtest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			DisplayHeader(out, fmt.Sprintf("Run #%d | %s (%s) | %s → %s | %s",
				run.ID, run.CompanyName, run.StockCode, run.StartDate, run.EndDate, run.Frequency))
			report.PrintSummary(out, "RESULT", run.Performance())
			if transactions {
				report.PrintTransactions(out, run.Transactions)
			}
			return nil
		},
	}
	showCmd.Flags().BoolVar(&transactions, "transactions", true, "Also list the trades")

	runsCmd.AddCommand(listCmd, showCmd)
	return runsCmd
}
