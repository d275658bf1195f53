// Package portfolio applies investment decisions to a simulated cash and
// share ledger.
package portfolio

import (
	"github.com/dyike/CortexQuant/models"
)

// MinCash is the smallest cash balance a BUY may draw from.
const MinCash = 1.0

// RecentTransactionLimit bounds the transaction tail shown in snapshots.
const RecentTransactionLimit = 5

func NewState(initialCapital float64) models.PortfolioState {
	return models.PortfolioState{
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		Positions:      map[string]float64{},
	}
}

// Execute applies d to a copy of state. The input is never modified. The
// returned transaction is nil when nothing was traded.
//
// Position size is used as given: values outside [0,1] over- or under-spend
// cash on BUY. A SELL whose position size is not strictly between 0 and 1
// liquidates the whole position.
func Execute(state models.PortfolioState, d models.Decision, stockCode string, price float64, date string) (models.PortfolioState, *models.Transaction) {
	next := state.Clone()
	held := next.Positions[stockCode]

	switch {
	case d.Action == models.ActionBuy && d.Confidence > 0.5:
		if next.Cash <= MinCash || price <= 0 {
			return next, nil
		}
		amount := next.Cash * d.PositionSize
		shares := amount / price

		next.Cash -= amount
		next.Positions[stockCode] = held + shares
		tx := models.Transaction{
			Date:       date,
			StockCode:  stockCode,
			Action:     models.ActionBuy,
			Shares:     shares,
			Price:      price,
			Amount:     amount,
			Confidence: d.Confidence,
		}
		next.Transactions = append(next.Transactions, tx)
		return next, &tx

	case d.Action == models.ActionSell && held > 0:
		shares := held
		if d.PositionSize > 0 && d.PositionSize < 1 {
			shares = held * d.PositionSize
		}
		revenue := shares * price

		next.Cash += revenue
		next.Positions[stockCode] = held - shares
		tx := models.Transaction{
			Date:       date,
			StockCode:  stockCode,
			Action:     models.ActionSell,
			Shares:     shares,
			Price:      price,
			Amount:     revenue,
			Confidence: d.Confidence,
		}
		next.Transactions = append(next.Transactions, tx)
		return next, &tx
	}

	return next, nil
}

// Value is cash plus every held position marked at prices. Instruments
// missing from prices contribute nothing.
func Value(state models.PortfolioState, prices map[string]float64) float64 {
	total := state.Cash
	for code, shares := range state.Positions {
		if shares <= 0 {
			continue
		}
		if p, ok := prices[code]; ok && p > 0 {
			total += shares * p
		}
	}
	return total
}
