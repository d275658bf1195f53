package dataflows

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when a series is shorter than the period.
var ErrInsufficientData = errors.New("insufficient data")

// SMA is the simple moving average of the last period closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period {
		return 0, ErrInsufficientData
	}
	return sum(closes[len(closes)-period:]) / float64(period), nil
}

// EMA seeds with the SMA of the first period closes and smooths the rest.
func EMA(closes []float64, period int) (float64, error) {
	values, err := emaValues(closes, period)
	if err != nil {
		return 0, err
	}
	return values[len(values)-1], nil
}

// RSI uses Wilder smoothing. A series without losses reads 100.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, ErrInsufficientData
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := splitChange(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		gain, loss := splitChange(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// Bollinger returns the middle band and the upper and lower bands at
// multiplier standard deviations.
func Bollinger(closes []float64, period int, multiplier float64) (middle, upper, lower float64, err error) {
	middle, err = SMA(closes, period)
	if err != nil {
		return 0, 0, 0, err
	}
	window := closes[len(closes)-period:]
	variance := 0.0
	for _, c := range window {
		variance += (c - middle) * (c - middle)
	}
	std := math.Sqrt(variance / float64(period))
	return middle, middle + multiplier*std, middle - multiplier*std, nil
}

// Momentum is the fractional change from the first close to the last.
func Momentum(closes []float64) (float64, error) {
	if len(closes) < 2 || closes[0] == 0 {
		return 0, ErrInsufficientData
	}
	return (closes[len(closes)-1] - closes[0]) / closes[0], nil
}

func emaValues(closes []float64, period int) ([]float64, error) {
	if period <= 0 || len(closes) < period {
		return nil, ErrInsufficientData
	}

	multiplier := 2.0 / (float64(period) + 1.0)
	ema := sum(closes[:period]) / float64(period)
	result := []float64{ema}

	for i := period; i < len(closes); i++ {
		ema = (closes[i] * multiplier) + (ema * (1 - multiplier))
		result = append(result, ema)
	}
	return result, nil
}

func splitChange(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
