package portfolio

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexQuant/models"
)

func TestSnapshotEmptyPortfolio(t *testing.T) {
	snap := Snapshot(NewState(100000), code, 50)

	assert.Equal(t, 100000.0, snap.Cash)
	assert.Equal(t, 100000.0, snap.TotalValue)
	assert.Zero(t, snap.AvgCost)
	assert.Zero(t, snap.UnrealizedPnLPercent)
	assert.Zero(t, snap.CapitalUsage)
	assert.Equal(t, 1.0, snap.AvailableCashRatio)
	assert.Zero(t, snap.StockRatio)
	assert.Empty(t, snap.RecentTransactions)
}

func TestSnapshotAfterBuy(t *testing.T) {
	state, _ := Execute(NewState(100000), buy(0.9, 0.5), code, 100, "2024-01-02")

	snap := Snapshot(state, code, 110)

	assert.InDelta(t, 500, snap.CurrentShares, 1e-9)
	assert.InDelta(t, 55000, snap.StockValue, 1e-9)
	assert.InDelta(t, 105000, snap.TotalValue, 1e-9)
	assert.InDelta(t, 100, snap.AvgCost, 1e-9)
	assert.InDelta(t, 50000, snap.TotalCost, 1e-9)
	assert.InDelta(t, 5000, snap.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 0.1, snap.UnrealizedPnLPercent, 1e-9)
	assert.InDelta(t, 0.55, snap.CapitalUsage, 1e-9)
	assert.InDelta(t, 50000.0/105000.0, snap.AvailableCashRatio, 1e-9)
	assert.InDelta(t, 55000.0/105000.0, snap.StockRatio, 1e-9)
	assert.Equal(t, 1, snap.TotalTrades)
}

func TestSnapshotRecentTransactionsTail(t *testing.T) {
	state := NewState(1000)
	for i := 0; i < 8; i++ {
		state.Transactions = append(state.Transactions, models.Transaction{
			Date:      fmt.Sprintf("2024-01-%02d", i+1),
			StockCode: code,
			Action:    models.ActionSell,
		})
	}

	snap := Snapshot(state, code, 10)

	require.Len(t, snap.RecentTransactions, RecentTransactionLimit)
	assert.Equal(t, "2024-01-04", snap.RecentTransactions[0].Date)
	assert.Equal(t, "2024-01-08", snap.RecentTransactions[4].Date)
	assert.Equal(t, 8, snap.TotalTrades)
}
