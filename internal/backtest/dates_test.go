package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGenerateDatesProperties(t *testing.T) {
	start, end := date("2024-01-01"), date("2024-06-30")

	for _, freq := range []Frequency{Daily, Weekly, Monthly, Frequency("quarterly")} {
		t.Run(string(freq), func(t *testing.T) {
			dates := GenerateDates(start, end, freq)
			require.NotEmpty(t, dates)

			assert.Equal(t, start, dates[0])
			assert.False(t, dates[len(dates)-1].After(end))
			for i := 1; i < len(dates); i++ {
				assert.True(t, dates[i].After(dates[i-1]))
				assert.Equal(t, dates[i-1].AddDate(0, 0, freq.StepDays()), dates[i])
			}
			// the next step would overshoot
			assert.True(t, dates[len(dates)-1].AddDate(0, 0, freq.StepDays()).After(end))
		})
	}
}

func TestGenerateDatesCounts(t *testing.T) {
	start := date("2024-01-01")

	assert.Len(t, GenerateDates(start, date("2024-01-10"), Daily), 10)
	assert.Len(t, GenerateDates(start, date("2024-01-29"), Weekly), 5)
	assert.Len(t, GenerateDates(start, date("2024-03-31"), Monthly), 4)
	assert.Len(t, GenerateDates(start, start, Weekly), 1)
	assert.Empty(t, GenerateDates(start, date("2023-12-31"), Daily))
}

func TestParseFrequency(t *testing.T) {
	assert.Equal(t, Daily, ParseFrequency(" Daily "))
	assert.Equal(t, Weekly, ParseFrequency("WEEKLY"))
	assert.Equal(t, Monthly, ParseFrequency("monthly"))
	assert.Equal(t, Monthly, ParseFrequency("yearly"))
	assert.Equal(t, 30, Frequency("").StepDays())
}
