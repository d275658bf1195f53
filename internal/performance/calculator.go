// Package performance turns a valuation series and its trades into the
// backtest result.
package performance

import (
	"errors"
	"math"

	"github.com/dyike/CortexQuant/models"
)

var ErrEmptySeries = errors.New("valuation series is empty")

// Summarize computes the backtest result. Sharpe is mean over stddev of the
// per-step returns with no risk-free rate. Winning trades are the SELL
// transactions.
func Summarize(values []models.ValuationPoint, txs []models.Transaction, initialCapital float64) (*models.Performance, error) {
	if len(values) == 0 {
		return nil, ErrEmptySeries
	}

	series := make([]float64, len(values))
	for i, v := range values {
		series[i] = v.PortfolioValue
	}

	first, last := series[0], series[len(series)-1]
	var totalReturn float64
	if first != 0 {
		totalReturn = (last - first) / first
	}

	returns := Returns(series)
	var volatility, sharpe float64
	if len(returns) > 1 {
		volatility = StdDev(returns)
		if volatility > 0 {
			sharpe = mean(returns) / volatility
		}
	}

	maxValue, minValue := series[0], series[0]
	for _, v := range series[1:] {
		maxValue = math.Max(maxValue, v)
		minValue = math.Min(minValue, v)
	}

	winning := 0
	for _, tx := range txs {
		if tx.Action == models.ActionSell {
			winning++
		}
	}

	return &models.Performance{
		InitialCapital: initialCapital,
		FinalValue:     last,
		TotalReturn:    totalReturn,
		TotalProfit:    last - initialCapital,
		MaxValue:       maxValue,
		MinValue:       minValue,
		Volatility:     volatility,
		SharpeRatio:    sharpe,
		MaxDrawdown:    MaxDrawdown(series),
		TotalTrades:    len(txs),
		WinningTrades:  winning,
		DailyValues:    append([]models.ValuationPoint(nil), values...),
		Transactions:   append([]models.Transaction(nil), txs...),
	}, nil
}

// Returns gives the simple step returns of series. Steps from a zero value
// are skipped.
func Returns(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1]
		if prev == 0 {
			continue
		}
		out = append(out, (series[i]-prev)/prev)
	}
	return out
}

// StdDev is the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// MaxDrawdown scans left to right keeping the running peak.
func MaxDrawdown(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	peak := series[0]
	maxDD := 0.0
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
