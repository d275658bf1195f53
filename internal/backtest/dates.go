package backtest

import (
	"strings"
	"time"
)

// Frequency is how often the workflow is consulted during a backtest.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ParseFrequency is case-insensitive. Unknown values map to Monthly, which
// is also what GenerateDates does with them.
func ParseFrequency(s string) Frequency {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily
	case Weekly:
		return Weekly
	default:
		return Monthly
	}
}

// StepDays is the calendar-day increment. Months are a flat 30 days.
func (f Frequency) StepDays() int {
	switch f {
	case Daily:
		return 1
	case Weekly:
		return 7
	default:
		return 30
	}
}

// GenerateDates returns start, start+step, ... while not after end.
func GenerateDates(start, end time.Time, freq Frequency) []time.Time {
	if end.Before(start) {
		return nil
	}
	step := freq.StepDays()
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, step) {
		dates = append(dates, d)
	}
	return dates
}
