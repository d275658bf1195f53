package models

// Performance is the persisted backtest result. Field names are part of the
// on-disk format.
type Performance struct {
	InitialCapital float64          `json:"initial_capital"`
	FinalValue     float64          `json:"final_value"`
	TotalReturn    float64          `json:"total_return"`
	TotalProfit    float64          `json:"total_profit"`
	MaxValue       float64          `json:"max_value"`
	MinValue       float64          `json:"min_value"`
	Volatility     float64          `json:"volatility"`
	SharpeRatio    float64          `json:"sharpe_ratio"`
	MaxDrawdown    float64          `json:"max_drawdown"`
	TotalTrades    int              `json:"total_trades"`
	WinningTrades  int              `json:"winning_trades"`
	DailyValues    []ValuationPoint `json:"daily_values"`
	Transactions   []Transaction    `json:"transactions"`
}

// WinRate is winning over total trades, 0 without trades.
func (p *Performance) WinRate() float64 {
	if p == nil || p.TotalTrades == 0 {
		return 0
	}
	return float64(p.WinningTrades) / float64(p.TotalTrades)
}
