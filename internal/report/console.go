package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dyike/CortexQuant/models"
)

// PrintSummary renders the headline figures of a backtest.
func PrintSummary(w io.Writer, title string, perf *models.Performance) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Initial capital", fmt.Sprintf("%.2f", perf.InitialCapital)},
		{"Final value", fmt.Sprintf("%.2f", perf.FinalValue)},
		{"Total profit", fmt.Sprintf("%.2f", perf.TotalProfit)},
		{"Total return", percent(perf.TotalReturn)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Max drawdown", percent(perf.MaxDrawdown)},
		{"Volatility", fmt.Sprintf("%.4f", perf.Volatility)},
		{"Sharpe ratio", fmt.Sprintf("%.4f", perf.SharpeRatio)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trades", perf.TotalTrades},
		{"Winning trades", perf.WinningTrades},
		{"Win rate", percent(perf.WinRate())},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 14, Align: text.AlignRight},
	})
	t.Render()
}

// PrintTransactions lists every executed trade.
func PrintTransactions(w io.Writer, txs []models.Transaction) {
	if len(txs) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("TRANSACTIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Date", "Action", "Shares", "Price", "Amount", "Confidence"})
	for _, tx := range txs {
		t.AppendRow(table.Row{
			tx.Date,
			tx.Action,
			fmt.Sprintf("%.4f", tx.Shares),
			fmt.Sprintf("%.2f", tx.Price),
			fmt.Sprintf("%.2f", tx.Amount),
			fmt.Sprintf("%.2f", tx.Confidence),
		})
	}
	t.Render()
}

// PrintDecision renders one investment decision.
func PrintDecision(w io.Writer, d models.Decision) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("INVESTMENT DECISION")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Action", d.Action},
		{"Confidence", fmt.Sprintf("%.2f", d.Confidence)},
		{"Position size", percent(d.PositionSize)},
		{"Target price", optionalPrice(d.TargetPrice)},
		{"Stop loss", optionalPrice(d.StopLoss)},
		{"Holding period", d.HoldingPeriod},
		{"Risk level", d.RiskLevel},
	})
	if len(d.Reasons) > 0 {
		t.AppendSeparator()
		for i, r := range d.Reasons {
			label := ""
			if i == 0 {
				label = "Reasons"
			}
			t.AppendRow(table.Row{label, "- " + r})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 14, Align: text.AlignLeft},
		{Number: 2, WidthMax: 80, Align: text.AlignLeft},
	})
	t.Render()
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func optionalPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *p)
}
