package dataflows

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one daily OHLCV row from a price provider.
type Bar struct {
	Symbol   string          `json:"symbol"`
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adj_close"`
	Volume   int64           `json:"volume"`
}

// ClosePrice returns the close as a float.
func (b Bar) ClosePrice() float64 {
	f, _ := b.Close.Float64()
	return f
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
