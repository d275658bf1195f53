package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/CortexQuant/internal/backtest"
	"github.com/dyike/CortexQuant/internal/report"
	"github.com/dyike/CortexQuant/internal/storage/sqlite"
	"github.com/dyike/CortexQuant/pkg/dataflows"
)

type backtestFlags struct {
	company   string
	start     string
	end       string
	frequency string
	capital   float64
	source    string
	output    string
	xlsx      bool
	csv       bool
	noSave    bool
	quiet     bool
}

func newBacktestCmd(a *app) *cobra.Command {
	f := &backtestFlags{}
	cmd := &cobra.Command{
		Use:   "backtest [CODE]",
		Short: "Replay the analyst workflow over a date range",
		Long: `Run the analyst workflow on every date of a range, trade the simulated
portfolio on its decisions and report the resulting performance.
Missing arguments are asked for interactively.
Example: cortexquant backtest AAPL --start 2024-01-01 --end 2024-06-30 --frequency weekly`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBacktest(cmd, args, f)
		},
	}

	cmd.Flags().StringVar(&f.company, "company", "", "Company name shown to the analysts (looked up when empty)")
	cmd.Flags().StringVar(&f.start, "start", "", "First date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "Last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.frequency, "frequency", "", "daily, weekly or monthly (config default when empty)")
	cmd.Flags().Float64Var(&f.capital, "capital", 0, "Initial capital (config default when zero)")
	cmd.Flags().StringVar(&f.source, "source", "", "Data source: yahoo, longport, alpaca, finnhub or csv")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Result JSON path (results/backtest_<code>_<start>_<end>.json by default)")
	cmd.Flags().BoolVar(&f.xlsx, "xlsx", false, "Also export an Excel workbook")
	cmd.Flags().BoolVar(&f.csv, "csv", false, "Also export valuations and transactions as CSV")
	cmd.Flags().BoolVar(&f.noSave, "no-save", false, "Do not record the run in the history database")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "Only print warnings, errors and trades")

	return cmd
}

func (a *app) runBacktest(cmd *cobra.Command, args []string, f *backtestFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if f.source != "" {
		a.cfg.DataSource = strings.ToLower(f.source)
	}
	req, err := a.backtestRequest(args, f)
	if err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		a.log.Warn().Err(err).Msg("configuration incomplete")
	}

	progress := newConsoleProgress(out, f.quiet)
	prices, bars, err := a.newPrices()
	if err != nil {
		return err
	}
	if req.CompanyName == "" {
		req.CompanyName = dataflows.LookupCompanyName(ctx, bars, req.StockCode)
	}

	lookback := time.Duration(a.cfg.HistoryDays+a.cfg.PriceWindowDays) * 24 * time.Hour
	window := time.Duration(a.cfg.PriceWindowDays) * 24 * time.Hour
	if err := bars.Warmup(ctx, req.StockCode, req.Start.Add(-lookback), req.End.Add(window)); err != nil {
		a.log.Warn().Err(err).Str("symbol", req.StockCode).Msg("price warmup failed")
	}

	engine, err := a.newEngine(ctx, progress)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Backtest %s (%s)", req.CompanyName, req.StockCode)))
	DisplayHeader(out, fmt.Sprintf("%s → %s | %s | capital %.2f | source %s",
		req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"), req.Frequency, req.InitialCapital, bars.Name()))

	driver := backtest.NewDriver(engine, prices,
		backtest.WithLogger(a.log),
		backtest.WithEmitter(progress),
		backtest.WithHistory(a.cfg.HistoryDays, a.cfg.HistorySize),
	)
	perf, err := driver.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}
	hits, misses := bars.Stats()
	a.log.Debug().Int("hits", hits).Int("misses", misses).Msg("price cache")

	fmt.Fprintln(out)
	report.PrintSummary(out, fmt.Sprintf("BACKTEST %s", req.StockCode), perf)
	report.PrintTransactions(out, perf.Transactions)

	start, end := req.Start.Format("2006-01-02"), req.End.Format("2006-01-02")
	path := f.output
	if path == "" {
		path = filepath.Join(a.cfg.ResultsDir, report.DefaultFilename(req.StockCode, start, end))
	}
	if err := report.SaveJSON(path, perf); err != nil {
		return err
	}
	fmt.Fprintf(out, "Results saved to %s\n", path)

	base := strings.TrimSuffix(path, filepath.Ext(path))
	if f.xlsx {
		if err := report.SaveExcel(base+".xlsx", perf); err != nil {
			return err
		}
		fmt.Fprintf(out, "Workbook saved to %s.xlsx\n", base)
	}
	if f.csv {
		paths, err := report.SaveCSV(filepath.Dir(path), filepath.Base(base), perf)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "CSV saved to %s\n", strings.Join(paths, ", "))
	}

	if !f.noSave {
		store, err := a.openStore()
		if err != nil {
			a.log.Error().Err(err).Msg("open run history")
			return nil
		}
		defer store.Close()
		id, err := store.SaveRun(ctx, sqlite.RunRecord{
			StockCode:   req.StockCode,
			CompanyName: req.CompanyName,
			StartDate:   start,
			EndDate:     end,
			Frequency:   string(req.Frequency),
			DataSource:  bars.Name(),
		}, perf)
		if err != nil {
			a.log.Error().Err(err).Msg("record run")
			return nil
		}
		fmt.Fprintf(out, "Recorded as run #%d\n", id)
	}
	return nil
}

// backtestRequest merges flags, config defaults and interactive answers.
func (a *app) backtestRequest(args []string, f *backtestFlags) (backtest.Request, error) {
	req := backtest.Request{
		CompanyName:    f.company,
		InitialCapital: a.cfg.InitialCapital,
	}
	if f.capital > 0 {
		req.InitialCapital = f.capital
	}
	freq := a.cfg.Frequency
	if f.frequency != "" {
		freq = f.frequency
	}

	var err error
	if len(args) == 1 {
		req.StockCode = strings.ToUpper(strings.TrimSpace(args[0]))
	} else {
		if req.StockCode, err = PromptForTicker(); err != nil {
			return req, err
		}
		if f.frequency == "" {
			if freq, err = PromptForFrequency(freq); err != nil {
				return req, err
			}
		}
		if f.capital <= 0 {
			if req.InitialCapital, err = PromptForCapital(req.InitialCapital); err != nil {
				return req, err
			}
		}
	}
	req.Frequency = backtest.ParseFrequency(freq)

	now := time.Now()
	if req.Start, err = dateFlag(f.start, "Backtest start date (YYYY-MM-DD):", now.AddDate(0, -3, 0)); err != nil {
		return req, err
	}
	if req.End, err = dateFlag(f.end, "Backtest end date (YYYY-MM-DD):", now); err != nil {
		return req, err
	}
	return req, req.Validate()
}

func dateFlag(value, prompt string, def time.Time) (time.Time, error) {
	if value == "" {
		return PromptForDate(prompt, def)
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", value)
	}
	return t, nil
}
