package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dyike/CortexQuant/models"
)

const (
	summarySheet      = "Summary"
	valuationsSheet   = "Valuations"
	transactionsSheet = "Transactions"
)

type excelStyles struct {
	header   int
	currency int
	percent  int
}

// SaveExcel writes the summary, valuation series and trades of perf into
// one workbook.
func SaveExcel(path string, perf *models.Performance) error {
	if perf == nil {
		return fmt.Errorf("nothing to save")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{valuationsSheet, transactionsSheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	styles, err := newExcelStyles(fx)
	if err != nil {
		return err
	}
	if err := writeSummarySheet(fx, perf, styles); err != nil {
		return err
	}
	if err := writeValuationsSheet(fx, perf.DailyValues, styles); err != nil {
		return err
	}
	if err := writeTransactionsSheet(fx, perf.Transactions, styles); err != nil {
		return err
	}

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func newExcelStyles(fx *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error

	s.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	// 4 is #,##0.00
	s.currency, err = fx.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return s, fmt.Errorf("currency style: %w", err)
	}
	// 10 is 0.00%
	s.percent, err = fx.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return s, fmt.Errorf("percent style: %w", err)
	}
	return s, nil
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, "A1", last, style)
}

func writeSummarySheet(fx *excelize.File, perf *models.Performance, st excelStyles) error {
	if err := writeHeader(fx, summarySheet, []string{"Metric", "Value"}, st.header); err != nil {
		return err
	}
	rows := []struct {
		label string
		value any
		style int
	}{
		{"Initial capital", perf.InitialCapital, st.currency},
		{"Final value", perf.FinalValue, st.currency},
		{"Total profit", perf.TotalProfit, st.currency},
		{"Total return", perf.TotalReturn, st.percent},
		{"Max value", perf.MaxValue, st.currency},
		{"Min value", perf.MinValue, st.currency},
		{"Max drawdown", perf.MaxDrawdown, st.percent},
		{"Volatility", perf.Volatility, 0},
		{"Sharpe ratio", perf.SharpeRatio, 0},
		{"Trades", perf.TotalTrades, 0},
		{"Winning trades", perf.WinningTrades, 0},
		{"Win rate", perf.WinRate(), st.percent},
	}
	for i, r := range rows {
		row := i + 2
		if err := fx.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), r.label); err != nil {
			return err
		}
		cell := fmt.Sprintf("B%d", row)
		if err := fx.SetCellValue(summarySheet, cell, r.value); err != nil {
			return err
		}
		if r.style != 0 {
			if err := fx.SetCellStyle(summarySheet, cell, cell, r.style); err != nil {
				return err
			}
		}
	}
	return fx.SetColWidth(summarySheet, "A", "B", 18)
}

func writeValuationsSheet(fx *excelize.File, values []models.ValuationPoint, st excelStyles) error {
	if err := writeHeader(fx, valuationsSheet, []string{"Date", "Portfolio value", "Cash", "Stock value"}, st.header); err != nil {
		return err
	}
	for i, v := range values {
		row := i + 2
		if err := fx.SetSheetRow(valuationsSheet, fmt.Sprintf("A%d", row),
			&[]any{v.Date, v.PortfolioValue, v.Cash, v.StockValue}); err != nil {
			return err
		}
	}
	if len(values) > 0 {
		if err := fx.SetCellStyle(valuationsSheet, "B2", fmt.Sprintf("D%d", len(values)+1), st.currency); err != nil {
			return err
		}
	}
	return fx.SetColWidth(valuationsSheet, "A", "D", 16)
}

func writeTransactionsSheet(fx *excelize.File, txs []models.Transaction, st excelStyles) error {
	headers := []string{"Date", "Code", "Action", "Shares", "Price", "Amount", "Confidence"}
	if err := writeHeader(fx, transactionsSheet, headers, st.header); err != nil {
		return err
	}
	for i, t := range txs {
		row := i + 2
		if err := fx.SetSheetRow(transactionsSheet, fmt.Sprintf("A%d", row),
			&[]any{t.Date, t.StockCode, string(t.Action), t.Shares, t.Price, t.Amount, t.Confidence}); err != nil {
			return err
		}
	}
	if len(txs) > 0 {
		if err := fx.SetCellStyle(transactionsSheet, "E2", fmt.Sprintf("F%d", len(txs)+1), st.currency); err != nil {
			return err
		}
	}
	return fx.SetColWidth(transactionsSheet, "A", "G", 14)
}
