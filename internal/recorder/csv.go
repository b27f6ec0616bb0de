package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"PullbackScanner/internal/model"
	"PullbackScanner/internal/scanner"
)

// CSVRecorder rewrites one CSV file with the latest scan, grouped by
// category and strongest first.
type CSVRecorder struct {
	path string
	mu   sync.Mutex
}

func NewCSVRecorder(path string) *CSVRecorder { return &CSVRecorder{path: path} }

var csvHeader = []string{"Ticker", "Category", "Time", "Close", "EMAFast", "EMASlow", "ATR", "Strength", "Note"}

func fixed(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

func (c *CSVRecorder) RecordScan(run *model.ScanRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create csv dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)
	_ = w.Write(csvHeader)
	groups := scanner.Partition(run.Results)
	for _, cat := range model.Categories {
		for _, r := range groups[cat] {
			note := r.Note
			if r.Err != "" {
				note = r.Err
			}
			ts := ""
			if !r.Time.IsZero() {
				ts = r.Time.Format("2006-01-02 15:04:05-07:00")
			}
			_ = w.Write([]string{
				r.Ticker, string(r.Category), ts, fixed(r.Price),
				fixed(r.EMAFast), fixed(r.EMASlow), fixed(r.ATR), fixed(r.Strength), note,
			})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	return os.Rename(tmp, c.path)
}

func (c *CSVRecorder) Close() error { return nil }
