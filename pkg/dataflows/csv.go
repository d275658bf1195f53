package dataflows

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var csvDateLayouts = []string{"2006-01-02", "2006/01/02", "20060102", time.RFC3339}

// CSVSource serves bars from <dir>/<SYMBOL>.csv files. Columns are matched
// by header name; Date and Close are required.
type CSVSource struct {
	dir string

	mu     sync.Mutex
	loaded map[string][]Bar
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir, loaded: make(map[string][]Bar)}
}

func (c *CSVSource) Name() string { return "csv" }

func (c *CSVSource) Bars(_ context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	c.mu.Lock()
	bars, ok := c.loaded[symbol]
	c.mu.Unlock()
	if !ok {
		path := filepath.Join(c.dir, symbol+".csv")
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", path, ErrNoData)
			}
			return nil, err
		}
		defer file.Close()

		bars, err = ReadBarsCSV(file, symbol)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		c.mu.Lock()
		c.loaded[symbol] = bars
		c.mu.Unlock()
	}
	return filterRange(bars, start, end), nil
}

// ReadBarsCSV parses OHLCV rows. Rows with an unparsable date or close are
// skipped.
func ReadBarsCSV(r io.Reader, symbol string) ([]Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %v", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateIdx, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("CSV header has no Date column")
	}
	closeIdx, ok := cols["close"]
	if !ok {
		return nil, fmt.Errorf("CSV header has no Close column")
	}

	field := func(rec []string, name string) (decimal.Decimal, bool) {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return decimal.Zero, false
		}
		v, err := decimal.NewFromString(strings.TrimSpace(rec[idx]))
		return v, err == nil
	}

	bars := make([]Bar, 0, len(records)-1)
	for _, rec := range records[1:] {
		if dateIdx >= len(rec) || closeIdx >= len(rec) {
			continue
		}
		date, ok := parseCSVDate(rec[dateIdx])
		if !ok {
			continue
		}
		closePrice, err := decimal.NewFromString(strings.TrimSpace(rec[closeIdx]))
		if err != nil {
			continue
		}

		bar := Bar{Symbol: symbol, Date: date, Close: closePrice, AdjClose: closePrice}
		bar.Open, _ = field(rec, "open")
		bar.High, _ = field(rec, "high")
		bar.Low, _ = field(rec, "low")
		if adj, ok := field(rec, "adj close"); ok {
			bar.AdjClose = adj
		}
		if vol, ok := field(rec, "volume"); ok {
			bar.Volume = vol.IntPart()
		}
		bars = append(bars, bar)
	}
	sortBars(bars)
	return bars, nil
}

func parseCSVDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// WriteBarsCSV writes bars in the layout ReadBarsCSV accepts.
func WriteBarsCSV(w io.Writer, bars []Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Date.Format("2006-01-02"),
			b.Open.String(),
			b.High.String(),
			b.Low.String(),
			b.Close.String(),
			b.AdjClose.String(),
			fmt.Sprintf("%d", b.Volume),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
