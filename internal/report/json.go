// Package report renders and persists backtest results.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyike/CortexQuant/models"
)

// SaveJSON writes perf as indented JSON, creating parent directories.
func SaveJSON(path string, perf *models.Performance) error {
	if perf == nil {
		return fmt.Errorf("nothing to save")
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a file written by SaveJSON.
func LoadJSON(path string) (*models.Performance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var perf models.Performance
	if err := json.Unmarshal(data, &perf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &perf, nil
}

// DefaultFilename is backtest_<code>_<start>_<end>.json.
func DefaultFilename(stockCode, start, end string) string {
	return fmt.Sprintf("backtest_%s_%s_%s.json", stockCode, start, end)
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
