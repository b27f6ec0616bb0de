package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"PullbackScanner/internal/calculator"
	"PullbackScanner/internal/collector"
	"PullbackScanner/internal/model"
	"PullbackScanner/internal/strategy"
)

var start = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

func bar(i int, o, h, l, c float64) model.Bar {
	return model.Bar{Time: start.Add(time.Duration(i) * 30 * time.Minute), Open: o, High: h, Low: l, Close: c}
}

func uptrend(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 100 + float64(i)*30/float64(n-1)
		bars[i] = bar(i, c-0.5, c+0.25, c-0.75, c)
	}
	return bars
}

func buyBars() []model.Bar {
	return append(uptrend(30), bar(30, 126.2, 127.8, 125.6, 127.5))
}

func downtrend(n int) []model.Bar {
	up := uptrend(n)
	bars := make([]model.Bar, n)
	for i := range up {
		src := up[n-1-i]
		bars[i] = bar(i, src.Open, src.High, src.Low, src.Close)
	}
	return bars
}

func newScanner(f collector.Fetcher, market string) *Scanner {
	p := calculator.DefaultParams()
	col := collector.NewCollector(f, collector.Options{
		Interval: "30m",
		Lookback: "7d",
		Timeout:  time.Second,
		MinBars:  strategy.MinBars(p),
		Params:   p,
	})
	rules := strategy.NewRules(p, strategy.DefaultThresholds(), strategy.DefaultGates())
	return NewScanner(col, rules, market)
}

type recordingObserver struct {
	results []model.ScanResult
	runs    int
}

func (o *recordingObserver) ObserveResult(res model.ScanResult)           { o.results = append(o.results, res) }
func (o *recordingObserver) ObserveRun(_ *model.ScanRun, _ time.Duration) { o.runs++ }

func TestScan_FetchErrorIsIsolated(t *testing.T) {
	f := &collector.MockFetcher{
		Bars: map[string][]model.Bar{
			"AAA": buyBars(),
			"CCC": downtrend(30),
		},
		Errs: map[string]error{"X": errors.New("dial tcp: i/o timeout")},
	}
	s := newScanner(f, "")
	obs := &recordingObserver{}
	s.Observer = obs

	run, err := s.Scan(context.Background(), []string{"AAA", "X", "CCC"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(run.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(run.Results))
	}
	want := map[string]model.Category{
		"AAA": model.CategoryBuy,
		"X":   model.CategoryError,
		"CCC": model.CategoryNoTrade,
	}
	for _, r := range run.Results {
		if r.Category != want[r.Ticker] {
			t.Errorf("%s: expected %s, got %s", r.Ticker, want[r.Ticker], r.Category)
		}
	}
	if run.Results[1].Err == "" {
		t.Error("expected error text on the failed ticker")
	}
	if run.Results[0].Price != 127.5 || run.Results[0].Time.IsZero() {
		t.Errorf("expected price and time on BUY result, got %+v", run.Results[0])
	}
	if len(obs.results) != 3 || obs.runs != 1 {
		t.Errorf("observer saw %d results, %d runs", len(obs.results), obs.runs)
	}
	if run.ID == "" {
		t.Error("expected a run id")
	}
}

func TestScan_EmptyUniverse(t *testing.T) {
	run, err := newScanner(&collector.MockFetcher{Price: 100}, "SPY").Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(run.Results) != 0 {
		t.Errorf("expected no results, got %d", len(run.Results))
	}
}

func TestScan_ShortHistoryIsNoData(t *testing.T) {
	f := &collector.MockFetcher{Bars: map[string][]model.Bar{"NEW": uptrend(10)}}
	run, err := newScanner(f, "").Scan(context.Background(), []string{"NEW"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := run.Results[0].Category; got != model.CategoryNoData {
		t.Errorf("expected NO_DATA, got %s", got)
	}
}

func TestScan_MarketFilter(t *testing.T) {
	tests := []struct {
		name   string
		market []model.Bar
		err    error
		want   model.Category
		ok     bool
	}{
		{"market up", uptrend(40), nil, model.CategoryBuy, true},
		{"market down", downtrend(40), nil, model.CategorySetup, false},
		{"market unavailable", nil, errors.New("502 bad gateway"), model.CategorySetup, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &collector.MockFetcher{Bars: map[string][]model.Bar{"AAA": buyBars()}}
			if tt.err != nil {
				f.Errs = map[string]error{"SPY": tt.err}
			} else {
				f.Bars["SPY"] = tt.market
			}
			run, err := newScanner(f, "SPY").Scan(context.Background(), []string{"AAA"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if run.MarketOK != tt.ok {
				t.Errorf("expected MarketOK=%v", tt.ok)
			}
			if got := run.Results[0].Category; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestScan_CancelledBetweenTickers(t *testing.T) {
	f := &collector.MockFetcher{Price: 100}
	ctx, cancel := context.WithCancel(context.Background())
	s := newScanner(f, "")
	s.Observer = cancelOnResult{cancel: cancel}

	run, err := s.Scan(ctx, []string{"A", "B", "C"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(run.Results) != 1 {
		t.Errorf("expected 1 result before cancellation, got %d", len(run.Results))
	}
	if calls := f.Calls(); len(calls) != 1 {
		t.Errorf("expected one fetch, got %v", calls)
	}
}

type cancelOnResult struct {
	cancel context.CancelFunc
}

func (c cancelOnResult) ObserveResult(model.ScanResult)           { c.cancel() }
func (c cancelOnResult) ObserveRun(*model.ScanRun, time.Duration) {}

func TestPartition(t *testing.T) {
	results := []model.ScanResult{
		{Ticker: "B", Category: model.CategoryBuy, Strength: 0.6},
		{Ticker: "A", Category: model.CategoryBuy, Strength: 0.9},
		{Ticker: "C", Category: model.CategoryBuy, Strength: 0.6},
		{Ticker: "Z", Category: model.CategoryError},
	}
	groups := Partition(results)
	buys := groups[model.CategoryBuy]
	if len(buys) != 3 {
		t.Fatalf("expected 3 BUY results, got %d", len(buys))
	}
	if buys[0].Ticker != "A" || buys[1].Ticker != "B" || buys[2].Ticker != "C" {
		t.Errorf("unexpected order: %s %s %s", buys[0].Ticker, buys[1].Ticker, buys[2].Ticker)
	}
	if len(groups[model.CategoryError]) != 1 {
		t.Error("expected one ERROR result")
	}
}
