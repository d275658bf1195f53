package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexQuant/config"
)

const barCacheTTL = 24 * time.Hour

// CompanyNamer is implemented by sources that can resolve a display name.
type CompanyNamer interface {
	CompanyName(ctx context.Context, symbol string) (string, error)
}

// NewBarSource builds the configured provider, wrapped with the disk cache
// and the request limiter.
func NewBarSource(cfg *config.Config, log zerolog.Logger) (BarSource, error) {
	retry := DefaultRetryConfig()

	var (
		src BarSource
		err error
	)
	switch strings.ToLower(cfg.DataSource) {
	case config.SourceYahoo, "":
		src = NewYahooFinanceClient(retry)
	case config.SourceLongport:
		src, err = NewLongportClient(LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		}, retry, log)
	case config.SourceAlpaca:
		src, err = NewAlpacaClient(cfg.AlpacaAPIKey, cfg.AlpacaAPISecret, cfg.AlpacaDataURL, retry)
	case config.SourceFinnhub:
		src, err = NewFinnhubClient(cfg.FinnhubAPIKey, "", retry)
	case config.SourceCSV:
		// local files need neither cache nor throttling
		return NewCSVSource(cfg.CSVDataDir), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheEnabled {
		cache := NewCacheManager(filepath.Join(cfg.DataCacheDir, src.Name()), barCacheTTL, true)
		src = NewCached(src, cache)
	}
	return NewRateLimited(src, cfg.RequestsPerSecond), nil
}

// LookupCompanyName asks the innermost source that knows company names and
// falls back to the symbol.
func LookupCompanyName(ctx context.Context, src BarSource, symbol string) string {
	for src != nil {
		if namer, ok := src.(CompanyNamer); ok {
			if name, err := namer.CompanyName(ctx, symbol); err == nil && name != "" {
				return name
			}
			break
		}
		u, ok := src.(interface{ Unwrap() BarSource })
		if !ok {
			break
		}
		src = u.Unwrap()
	}
	return symbol
}
