package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"PullbackScanner/internal/model"
)

// AlpacaFetcher implements Fetcher using the Alpaca market data API.
type AlpacaFetcher struct {
	Client *marketdata.Client
	Feed   string
	now    func() time.Time
}

// NewAlpacaFetcher creates a fetcher for the given feed ("iex" or "sip").
// The SDK takes no context, so timeout also bounds the underlying HTTP
// client; zero falls back to 30s.
func NewAlpacaFetcher(apiKey, apiSecret, feed string, timeout time.Duration) *AlpacaFetcher {
	if feed == "" {
		feed = "iex"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AlpacaFetcher{
		Client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:     apiKey,
			APISecret:  apiSecret,
			HTTPClient: &http.Client{Timeout: timeout},
		}),
		Feed: feed,
		now:  time.Now,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func alpacaTimeFrame(interval string) (marketdata.TimeFrame, error) {
	d, err := ParseInterval(interval)
	if err != nil {
		return marketdata.TimeFrame{}, err
	}
	switch {
	case d%(24*time.Hour) == 0:
		return marketdata.NewTimeFrame(int(d/(24*time.Hour)), marketdata.Day), nil
	case d%time.Hour == 0:
		return marketdata.NewTimeFrame(int(d/time.Hour), marketdata.Hour), nil
	default:
		return marketdata.NewTimeFrame(int(d/time.Minute), marketdata.Min), nil
	}
}

func (f *AlpacaFetcher) FetchBars(ctx context.Context, symbol, interval, lookback string) ([]model.Bar, error) {
	tf, err := alpacaTimeFrame(interval)
	if err != nil {
		return nil, err
	}
	span, err := ParseLookback(lookback)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		bars []marketdata.Bar
		err  error
	}
	end := f.now()
	done := make(chan result, 1)
	go func() {
		raw, err := f.Client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: tf,
			Start:     end.Add(-span),
			End:       end,
			Feed:      marketdata.Feed(f.Feed),
		})
		done <- result{raw, err}
	}()

	var raw []marketdata.Bar
	select {
	case <-ctx.Done():
		// the request keeps running until the HTTP client timeout
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("alpaca get bars: %w", res.err)
		}
		raw = res.bars
	}

	bars := make([]model.Bar, len(raw))
	for i, b := range raw {
		bars[i] = model.Bar{
			Time:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		}
	}
	return bars, nil
}
