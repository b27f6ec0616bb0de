package collector

import (
	"context"
	"fmt"
	"time"

	"PullbackScanner/internal/calculator"
	"PullbackScanner/internal/model"
)

// Options controls what the Collector fetches and computes.
type Options struct {
	Interval string
	Lookback string
	Timeout  time.Duration // per-fetch bound, zero means none
	MinBars  int
	Params   calculator.Params
}

// Collector orchestrates data fetching and indicator computation.
type Collector struct {
	Fetcher Fetcher
	Options Options
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options) *Collector {
	return &Collector{Fetcher: fetcher, Options: opts}
}

// Collect fetches bars for symbol and computes the indicator frame.
// Fetch failures come back as *FetchError; empty or short history as
// ErrDataUnavailable.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.IndicatorFrame, error) {
	if c.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Options.Timeout)
		defer cancel()
	}

	bars, err := c.Fetcher.FetchBars(ctx, symbol, c.Options.Interval, c.Options.Lookback)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Source: c.Fetcher.Name(), Err: err}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: no bars: %w", symbol, ErrDataUnavailable)
	}
	if len(bars) < c.Options.MinBars {
		return nil, fmt.Errorf("%s: %d bars, need %d: %w", symbol, len(bars), c.Options.MinBars, ErrDataUnavailable)
	}

	return calculator.Compute(bars, c.Options.Params), nil
}
