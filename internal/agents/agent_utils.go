package agents

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dyike/CortexQuant/models"
)

var signalPattern = regexp.MustCompile(`(?mi)^\s*(?:overall\s+)?signal:\s*([+-]?\d+(?:\.\d+)?)`)

// formatSignal renders the machine-readable score line heuristic analysts end
// their text with.
func formatSignal(label string, score float64) string {
	return fmt.Sprintf("%s: %+.2f", label, score)
}

// parseSignal reads the first signal line of text.
func parseSignal(text string) (float64, bool) {
	m := signalPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return clamp(v, -1, 1), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func formatPrices(prices []float64) string {
	if len(prices) == 0 {
		return "n/a"
	}
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = strconv.FormatFloat(p, 'f', 2, 64)
	}
	return strings.Join(parts, ", ")
}

func formatPortfolio(p models.PortfolioSnapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- Shares held: %.4f\n", p.CurrentShares)
	fmt.Fprintf(&sb, "- Cash: %.2f\n", p.Cash)
	fmt.Fprintf(&sb, "- Stock value: %.2f\n", p.StockValue)
	fmt.Fprintf(&sb, "- Total value: %.2f (initial %.2f)\n", p.TotalValue, p.InitialCapital)
	fmt.Fprintf(&sb, "- Average cost: %.2f\n", p.AvgCost)
	fmt.Fprintf(&sb, "- Unrealized P&L: %.2f (%.2f%%)\n", p.UnrealizedPnL, p.UnrealizedPnLPercent*100)
	fmt.Fprintf(&sb, "- Capital usage: %.2f%%, cash ratio %.2f%%, stock ratio %.2f%%\n",
		p.CapitalUsage*100, p.AvailableCashRatio*100, p.StockRatio*100)
	fmt.Fprintf(&sb, "- Trades so far: %d\n", p.TotalTrades)
	for _, tx := range p.RecentTransactions {
		fmt.Fprintf(&sb, "  - %s %s %.4f @ %.2f\n", tx.Date, tx.Action, tx.Shares, tx.Price)
	}
	return sb.String()
}
