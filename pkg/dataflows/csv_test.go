package dataflows

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-03,10.5,11,10,10.8,10.7,1200
2024-01-02,10,10.6,9.9,10.4,10.3,1000
bad-date,1,1,1,1,1,1
2024-01-04,10.8,11.2,10.6,,11.0,900
`

func TestReadBarsCSV(t *testing.T) {
	bars, err := ReadBarsCSV(strings.NewReader(sampleCSV), "TEST")
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, day("2024-01-02"), bars[0].Date)
	assert.Equal(t, 10.4, bars[0].ClosePrice())
	assert.Equal(t, "10.3", bars[0].AdjClose.String())
	assert.Equal(t, int64(1200), bars[1].Volume)
}

func TestReadBarsCSVRequiresClose(t *testing.T) {
	_, err := ReadBarsCSV(strings.NewReader("Date,Open\n2024-01-02,1\n"), "TEST")
	assert.Error(t, err)
}

func TestCSVSourceBars(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TEST.csv"), []byte(sampleCSV), 0o644))
	src := NewCSVSource(dir)

	bars, err := src.Bars(context.Background(), "test", day("2024-01-03"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 10.8, bars[0].ClosePrice())

	_, err = src.Bars(context.Background(), "MISSING", day("2024-01-01"), day("2024-01-31"))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestWriteBarsCSVIsReadable(t *testing.T) {
	bars, err := ReadBarsCSV(strings.NewReader(sampleCSV), "TEST")
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, WriteBarsCSV(&buf, bars))

	again, err := ReadBarsCSV(strings.NewReader(buf.String()), "TEST")
	require.NoError(t, err)
	require.Len(t, again, len(bars))
	for i := range bars {
		assert.Equal(t, bars[i].Date, again[i].Date)
		assert.True(t, bars[i].Close.Equal(again[i].Close))
		assert.True(t, bars[i].AdjClose.Equal(again[i].AdjClose))
		assert.Equal(t, bars[i].Volume, again[i].Volume)
	}
	assert.True(t, strings.HasPrefix(buf.String(), "Date,Open,High,Low,Close,Adj Close,Volume\n"))
}
