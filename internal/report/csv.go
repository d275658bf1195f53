package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dyike/CortexQuant/models"
)

// SaveCSV writes <prefix>_valuations.csv and <prefix>_transactions.csv
// under dir and returns the paths written.
func SaveCSV(dir, prefix string, perf *models.Performance) ([]string, error) {
	if perf == nil {
		return nil, fmt.Errorf("nothing to save")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	valuations := [][]string{{"date", "portfolio_value", "cash", "stock_value"}}
	for _, v := range perf.DailyValues {
		valuations = append(valuations, []string{v.Date, num(v.PortfolioValue), num(v.Cash), num(v.StockValue)})
	}
	trades := [][]string{{"date", "stock_code", "action", "shares", "price", "amount", "confidence"}}
	for _, t := range perf.Transactions {
		trades = append(trades, []string{t.Date, t.StockCode, string(t.Action), num(t.Shares), num(t.Price), num(t.Amount), num(t.Confidence)})
	}

	paths := []string{
		filepath.Join(dir, prefix+"_valuations.csv"),
		filepath.Join(dir, prefix+"_transactions.csv"),
	}
	for i, records := range [][][]string{valuations, trades} {
		if err := writeCSV(paths[i], records); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
