package dataflows

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexQuant/config"
)

func TestNewLongportClientRequiresCredentials(t *testing.T) {
	_, err := NewLongportClient(LongportConfig{AppKey: "k"}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrCredentials)
}

func TestCandleCount(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, 10, candleCount(now, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, candleCount(now, now.AddDate(0, 0, 3)))
	assert.Equal(t, maxLongportCandles, candleCount(now, now.AddDate(-10, 0, 0)))
}

func TestLongportClientBars(t *testing.T) {
	cfg := config.DefaultConfig()
	client, err := NewLongportClient(LongportConfig{
		AppKey:      cfg.LongportAppKey,
		AppSecret:   cfg.LongportAppSecret,
		AccessToken: cfg.LongportAccessToken,
	}, &RetryConfig{MaxRetries: 1, BaseDelay: time.Second, MaxDelay: time.Second, Multiplier: 1}, zerolog.Nop())
	if err != nil {
		t.Skipf("Skipping test due to missing Longport API credentials: %v", err)
	}

	end := time.Now()
	bars, err := client.Bars(context.Background(), "700.HK", end.AddDate(0, 0, -20), end)
	require.NoError(t, err)
	require.NotEmpty(t, bars)
	for _, b := range bars {
		assert.Positive(t, b.ClosePrice())
	}
}
