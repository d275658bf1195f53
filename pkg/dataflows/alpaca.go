package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// AlpacaClient reads daily bars from the Alpaca market data API.
type AlpacaClient struct {
	client *marketdata.Client
	retry  *RetryConfig
}

func NewAlpacaClient(apiKey, apiSecret, dataURL string, retry *RetryConfig) (*AlpacaClient, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("alpaca: %w", ErrCredentials)
	}
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &AlpacaClient{
		client: marketdata.NewClient(opts),
		retry:  retry,
	}, nil
}

func (ac *AlpacaClient) Name() string { return "alpaca" }

func (ac *AlpacaClient) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var raw []marketdata.Bar
	err := WithRetry(ctx, ac.retry, func() error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var err error
		raw, err = ac.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     Day(start),
			End:       Day(end).AddDate(0, 0, 1),
		})
		if err != nil {
			return fmt.Errorf("GetBars: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, Bar{
			Symbol:   symbol,
			Date:     ab.Timestamp,
			Open:     decimal.NewFromFloat(ab.Open),
			High:     decimal.NewFromFloat(ab.High),
			Low:      decimal.NewFromFloat(ab.Low),
			Close:    decimal.NewFromFloat(ab.Close),
			AdjClose: decimal.NewFromFloat(ab.Close),
			Volume:   int64(ab.Volume),
		})
	}
	return filterRange(bars, start, end), nil
}
