package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexQuant/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{LogFormat: "json", LogLevel: "info"}, &buf)

	log.Debug().Msg("hidden")
	log.Info().Str("component", "backtest").Msg("started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "started", entry["message"])
	assert.Equal(t, "backtest", entry["component"])
	assert.Equal(t, "cortexquant", entry["app"])
}

func TestDebugFlagLowersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{LogFormat: "json", LogLevel: "error", Debug: true}, &buf)

	log.Debug().Msg("visible")

	assert.Contains(t, buf.String(), "visible")
}
