package dataflows

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxLongportCandles is the largest count the candlestick endpoint serves.
const maxLongportCandles = 1000

type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// LongportClient reads daily candlesticks from Longport. The quote context
// is created lazily and rebuilt with backoff when a request fails.
type LongportClient struct {
	conf  LongportConfig
	retry *RetryConfig
	log   zerolog.Logger

	mu       sync.Mutex
	quoteCtx *quote.QuoteContext
	now      func() time.Time
}

func NewLongportClient(conf LongportConfig, retry *RetryConfig, log zerolog.Logger) (*LongportClient, error) {
	if conf.AppKey == "" || conf.AppSecret == "" || conf.AccessToken == "" {
		return nil, fmt.Errorf("longport: %w", ErrCredentials)
	}
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &LongportClient{
		conf:  conf,
		retry: retry,
		log:   log.With().Str("component", "longport").Logger(),
		now:   time.Now,
	}, nil
}

func (lpc *LongportClient) Name() string { return "longport" }

func (lpc *LongportClient) connect() (*quote.QuoteContext, error) {
	lpc.mu.Lock()
	defer lpc.mu.Unlock()

	if lpc.quoteCtx != nil {
		return lpc.quoteCtx, nil
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(lpc.conf.AppKey, lpc.conf.AppSecret, lpc.conf.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("longport config: %w", err)
	}
	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, fmt.Errorf("longport quote context: %w", err)
	}
	lpc.quoteCtx = quoteContext
	return quoteContext, nil
}

// reset drops the current quote context so the next attempt reconnects.
func (lpc *LongportClient) reset() {
	lpc.mu.Lock()
	defer lpc.mu.Unlock()
	lpc.quoteCtx = nil
}

// Bars fetches the most recent daily candlesticks reaching back to start and
// keeps the ones inside [start, end].
func (lpc *LongportClient) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	count := candleCount(lpc.now(), start)

	var sticks []*quote.Candlestick
	err := WithRetry(ctx, lpc.retry, func() error {
		qc, err := lpc.connect()
		if err != nil {
			return err
		}
		sticks, err = qc.Candlesticks(ctx, symbol, quote.PeriodDay, int32(count), quote.AdjustTypeNo)
		if err != nil {
			lpc.log.Warn().Err(err).Str("symbol", symbol).Msg("candlesticks failed, reconnecting")
			lpc.reset()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(sticks))
	for _, stick := range sticks {
		if stick == nil || stick.Close == nil {
			continue
		}
		bars = append(bars, Bar{
			Symbol:   symbol,
			Date:     time.Unix(stick.Timestamp, 0),
			Open:     deref(stick.Open),
			High:     deref(stick.High),
			Low:      deref(stick.Low),
			Close:    *stick.Close,
			AdjClose: *stick.Close,
			Volume:   stick.Volume,
		})
	}
	return filterRange(bars, start, end), nil
}

// CompanyName returns the English name from the static info endpoint.
func (lpc *LongportClient) CompanyName(ctx context.Context, symbol string) (string, error) {
	symbol = NormalizeSymbol(symbol)
	var name string
	err := WithRetry(ctx, lpc.retry, func() error {
		qc, err := lpc.connect()
		if err != nil {
			return err
		}
		infos, err := qc.StaticInfo(ctx, []string{symbol})
		if err != nil {
			lpc.reset()
			return err
		}
		if len(infos) == 0 || infos[0] == nil {
			return fmt.Errorf("static info for %s: %w", symbol, ErrNoData)
		}
		name = infos[0].NameEn
		if name == "" {
			name = infos[0].NameCn
		}
		return nil
	})
	return name, err
}

// candleCount sizes the request so the oldest returned trading day reaches
// start. Calendar days over-count trading days, which is fine.
func candleCount(now, start time.Time) int {
	days := int(math.Ceil(Day(now).Sub(Day(start)).Hours()/24)) + 1
	if days < 1 {
		days = 1
	}
	if days > maxLongportCandles {
		days = maxLongportCandles
	}
	return days
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
