package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]+$`)

func validateTicker(val interface{}) error {
	str := strings.TrimSpace(strings.ToUpper(val.(string)))
	if len(str) == 0 {
		return fmt.Errorf("stock code cannot be empty")
	}
	if len(str) > 16 {
		return fmt.Errorf("stock code too long (max 16 characters)")
	}
	if !tickerPattern.MatchString(str) {
		return fmt.Errorf("invalid stock code (use letters, numbers, dots and hyphens only)")
	}
	return nil
}

func validateDate(val interface{}) error {
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(val.(string))); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

// PromptForTicker prompts the user to enter a stock code
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock code (e.g., AAPL, 700.HK, sh.600519):",
		Help:    "The symbol understood by the configured data source",
	}
	if err := survey.AskOne(prompt, &ticker, survey.WithValidator(validateTicker)); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToUpper(ticker)), nil
}

// PromptForDate asks for one YYYY-MM-DD date.
func PromptForDate(message string, def time.Time) (time.Time, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: message,
		Help:    "Format: YYYY-MM-DD (e.g., 2024-01-15)",
		Default: def.Format("2006-01-02"),
	}
	if err := survey.AskOne(prompt, &dateStr, survey.WithValidator(validateDate)); err != nil {
		return time.Time{}, err
	}
	return time.Parse("2006-01-02", strings.TrimSpace(dateStr))
}

// PromptForFrequency lets the user pick the backtest step.
func PromptForFrequency(def string) (string, error) {
	var freq string
	prompt := &survey.Select{
		Message: "Select the backtest frequency:",
		Options: []string{"daily", "weekly", "monthly"},
		Default: def,
	}
	if err := survey.AskOne(prompt, &freq); err != nil {
		return "", err
	}
	return freq, nil
}

// PromptForCapital asks for the starting cash.
func PromptForCapital(def float64) (float64, error) {
	var raw string
	prompt := &survey.Input{
		Message: "Initial capital:",
		Default: strconv.FormatFloat(def, 'f', -1, 64),
	}
	err := survey.AskOne(prompt, &raw, survey.WithValidator(func(val interface{}) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(val.(string)), 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("capital must be a positive number")
		}
		return nil
	}))
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
