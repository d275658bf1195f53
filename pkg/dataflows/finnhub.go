package dataflows

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient handles Finnhub candle requests
type FinnhubClient struct {
	client *resty.Client
	apiKey string
	retry  *RetryConfig
}

// finnhubCandles is the column-oriented /stock/candle payload.
type finnhubCandles struct {
	Close  []float64 `json:"c"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Open   []float64 `json:"o"`
	Time   []int64   `json:"t"`
	Volume []float64 `json:"v"`
	Status string    `json:"s"`
}

// NewFinnhubClient creates a new Finnhub client. baseURL may be empty.
func NewFinnhubClient(apiKey, baseURL string, retry *RetryConfig) (*FinnhubClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("finnhub: %w", ErrCredentials)
	}
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	if retry == nil {
		retry = DefaultRetryConfig()
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		apiKey: apiKey,
		retry:  retry,
	}, nil
}

func (fc *FinnhubClient) Name() string { return "finnhub" }

func (fc *FinnhubClient) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var result finnhubCandles
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol":     symbol,
				"resolution": "D",
				"from":       strconv.FormatInt(Day(start).Unix(), 10),
				"to":         strconv.FormatInt(Day(end).AddDate(0, 0, 1).Unix()-1, 10),
				"token":      fc.apiKey,
			}).
			SetResult(&result).
			Get("/stock/candle")
		if err != nil {
			return err
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub API error: %d %s", resp.StatusCode(), resp.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == "no_data" {
		return nil, nil
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("finnhub candles for %s: status %q", symbol, result.Status)
	}

	n := len(result.Time)
	if len(result.Close) < n {
		n = len(result.Close)
	}
	bars := make([]Bar, 0, n)
	for i := 0; i < n; i++ {
		bar := Bar{
			Symbol:   symbol,
			Date:     time.Unix(result.Time[i], 0),
			Close:    decimal.NewFromFloat(result.Close[i]),
			AdjClose: decimal.NewFromFloat(result.Close[i]),
		}
		if i < len(result.Open) {
			bar.Open = decimal.NewFromFloat(result.Open[i])
		}
		if i < len(result.High) {
			bar.High = decimal.NewFromFloat(result.High[i])
		}
		if i < len(result.Low) {
			bar.Low = decimal.NewFromFloat(result.Low[i])
		}
		if i < len(result.Volume) {
			bar.Volume = int64(result.Volume[i])
		}
		bars = append(bars, bar)
	}
	return filterRange(bars, start, end), nil
}
