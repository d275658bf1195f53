package models

// Transaction is an executed BUY or SELL. Entries are only ever appended.
type Transaction struct {
	Date       string  `json:"date"`
	StockCode  string  `json:"stock_code"`
	Action     Action  `json:"action"`
	Shares     float64 `json:"shares"`
	Price      float64 `json:"price"`
	Amount     float64 `json:"amount"`
	Confidence float64 `json:"confidence"`
}

// ValuationPoint is recorded once per processed backtest date.
type ValuationPoint struct {
	Date           string  `json:"date"`
	PortfolioValue float64 `json:"portfolio_value"`
	Cash           float64 `json:"cash"`
	StockValue     float64 `json:"stock_value"`
}

// PortfolioState is the ledger of one backtest run.
type PortfolioState struct {
	InitialCapital float64            `json:"initial_capital"`
	Cash           float64            `json:"cash"`
	Positions      map[string]float64 `json:"positions"`
	Transactions   []Transaction      `json:"transactions"`
	DailyValues    []ValuationPoint   `json:"daily_values"`
}

// Clone returns a deep copy so callers can evolve state without aliasing.
func (p PortfolioState) Clone() PortfolioState {
	out := PortfolioState{
		InitialCapital: p.InitialCapital,
		Cash:           p.Cash,
		Positions:      make(map[string]float64, len(p.Positions)),
		Transactions:   append([]Transaction(nil), p.Transactions...),
		DailyValues:    append([]ValuationPoint(nil), p.DailyValues...),
	}
	for k, v := range p.Positions {
		out.Positions[k] = v
	}
	return out
}

// PortfolioSnapshot is derived from PortfolioState for one instrument at one
// price and is what analysts see.
type PortfolioSnapshot struct {
	CurrentShares        float64       `json:"current_shares"`
	Cash                 float64       `json:"cash"`
	StockValue           float64       `json:"stock_value"`
	TotalValue           float64       `json:"total_value"`
	InitialCapital       float64       `json:"initial_capital"`
	AvgCost              float64       `json:"avg_cost"`
	TotalCost            float64       `json:"total_cost"`
	UnrealizedPnL        float64       `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64       `json:"unrealized_pnl_percent"`
	CapitalUsage         float64       `json:"capital_usage"`
	AvailableCashRatio   float64       `json:"available_cash_ratio"`
	StockRatio           float64       `json:"stock_ratio"`
	TotalTrades          int           `json:"total_trades"`
	RecentTransactions   []Transaction `json:"recent_transactions"`
}
