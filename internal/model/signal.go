package model

import (
	"strings"
	"time"
)

// Category is the bucket a ticker lands in after classification.
type Category string

const (
	CategoryBuy      Category = "BUY"
	CategorySetup    Category = "SETUP"
	CategoryTrending Category = "TRENDING"
	CategoryNoTrade  Category = "NO_TRADE"
	CategoryNoData   Category = "NO_DATA"
	CategoryError    Category = "ERROR"
)

// Categories lists every category in presentation order.
var Categories = []Category{
	CategoryBuy,
	CategorySetup,
	CategoryTrending,
	CategoryNoTrade,
	CategoryNoData,
	CategoryError,
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// ScanResult is the outcome for one ticker in one scan.
type ScanResult struct {
	Ticker   string    `json:"ticker"`
	Category Category  `json:"category"`
	Price    float64   `json:"price"`
	Time     time.Time `json:"time"`
	Strength float64   `json:"strength"`
	EMAFast  float64   `json:"ema_fast,omitempty"`
	EMASlow  float64   `json:"ema_slow,omitempty"`
	ATR      float64   `json:"atr,omitempty"`
	Note     string    `json:"note,omitempty"`
	Err      string    `json:"error,omitempty"`
}

// ScanRun is one full pass over the ticker universe.
type ScanRun struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Interval   string       `json:"interval"`
	MarketOK   bool         `json:"market_ok"`
	Results    []ScanResult `json:"results"`
}

// Count returns how many results fall into the category.
func (r *ScanRun) Count(c Category) int {
	n := 0
	for _, res := range r.Results {
		if res.Category == c {
			n++
		}
	}
	return n
}
