package portfolio

import (
	"github.com/dyike/CortexQuant/models"
)

// Snapshot derives the analyst-facing view of state for one instrument at
// the given price.
func Snapshot(state models.PortfolioState, stockCode string, price float64) models.PortfolioSnapshot {
	shares := state.Positions[stockCode]
	stockValue := shares * price
	total := state.Cash + stockValue

	var bought float64
	for _, tx := range state.Transactions {
		if tx.StockCode == stockCode && tx.Action == models.ActionBuy {
			bought += tx.Amount
		}
	}

	var avgCost float64
	if shares > 0 {
		avgCost = bought / shares
	}
	totalCost := avgCost * shares
	pnl := stockValue - totalCost

	snap := models.PortfolioSnapshot{
		CurrentShares:  shares,
		Cash:           state.Cash,
		StockValue:     stockValue,
		TotalValue:     total,
		InitialCapital: state.InitialCapital,
		AvgCost:        avgCost,
		TotalCost:      totalCost,
		UnrealizedPnL:  pnl,
		TotalTrades:    len(state.Transactions),
	}
	if totalCost > 0 {
		snap.UnrealizedPnLPercent = pnl / totalCost
	}
	if state.InitialCapital > 0 {
		snap.CapitalUsage = (total - state.Cash) / state.InitialCapital
	}
	if total > 0 {
		snap.AvailableCashRatio = state.Cash / total
		snap.StockRatio = stockValue / total
	}

	n := len(state.Transactions)
	start := n - RecentTransactionLimit
	if start < 0 {
		start = 0
	}
	snap.RecentTransactions = append([]models.Transaction(nil), state.Transactions[start:]...)
	return snap
}
