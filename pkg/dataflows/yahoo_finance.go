package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
)

// YahooFinanceClient reads daily bars from the Yahoo chart API.
type YahooFinanceClient struct {
	retry *RetryConfig
}

func NewYahooFinanceClient(retry *RetryConfig) *YahooFinanceClient {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &YahooFinanceClient{retry: retry}
}

func (yf *YahooFinanceClient) Name() string { return "yahoo" }

// Bars gets historical daily bars for a symbol
func (yf *YahooFinanceClient) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	// the chart end bound is exclusive
	from, to := Day(start), Day(end).AddDate(0, 0, 1)

	var result []Bar
	err := WithRetry(ctx, yf.retry, func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&from),
			End:      datetime.New(&to),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)

		result = result[:0]
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, Bar{
				Symbol:   symbol,
				Date:     time.Unix(int64(bar.Timestamp), 0),
				Open:     bar.Open,
				High:     bar.High,
				Low:      bar.Low,
				Close:    bar.Close,
				AdjClose: bar.AdjClose,
				Volume:   int64(bar.Volume),
			})
		}

		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return filterRange(result, start, end), nil
}

// CompanyName looks up the short display name for symbol.
func (yf *YahooFinanceClient) CompanyName(ctx context.Context, symbol string) (string, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return "", err
	}
	symbol = NormalizeSymbol(symbol)

	var name string
	err := WithRetry(ctx, yf.retry, func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		if q == nil {
			return fmt.Errorf("no quote for %s: %w", symbol, ErrNoData)
		}
		name = q.ShortName
		return nil
	})
	return name, err
}
