package scanner

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"PullbackScanner/internal/collector"
	"PullbackScanner/internal/model"
	"PullbackScanner/internal/strategy"
)

// Observer is told about every finished ticker and every finished run.
type Observer interface {
	ObserveResult(res model.ScanResult)
	ObserveRun(run *model.ScanRun, elapsed time.Duration)
}

// Scanner runs one pass over the ticker universe.
type Scanner struct {
	Collector    *collector.Collector
	Rules        strategy.Rules
	MarketSymbol string // optional reference index for the market filter
	Observer     Observer
	now          func() time.Time
}

// NewScanner creates a new Scanner.
func NewScanner(col *collector.Collector, rules strategy.Rules, marketSymbol string) *Scanner {
	return &Scanner{
		Collector:    col,
		Rules:        rules,
		MarketSymbol: marketSymbol,
		now:          time.Now,
	}
}

// Scan classifies every ticker in order, one at a time. A failing ticker is
// recorded as ERROR or NO_DATA and never aborts the pass. Cancellation is
// checked between tickers; the partial run is returned with ctx.Err().
func (s *Scanner) Scan(ctx context.Context, universe []string) (*model.ScanRun, error) {
	started := s.now()
	run := &model.ScanRun{
		ID:        uuid.NewString(),
		StartedAt: started,
		Interval:  s.Collector.Options.Interval,
		MarketOK:  true,
		Results:   make([]model.ScanResult, 0, len(universe)),
	}

	if s.MarketSymbol != "" && len(universe) > 0 {
		run.MarketOK = s.marketTrendUp(ctx)
	}

	for _, ticker := range universe {
		if err := ctx.Err(); err != nil {
			run.FinishedAt = s.now()
			log.Printf("[WARN] scan %s stopped after %d/%d tickers: %v", run.ID, len(run.Results), len(universe), err)
			return run, err
		}

		res := s.scanTicker(ctx, ticker)
		if res.Category == model.CategoryBuy && !run.MarketOK {
			res.Category = model.CategorySetup
			res.Note = "market filter"
		}
		run.Results = append(run.Results, res)
		if s.Observer != nil {
			s.Observer.ObserveResult(res)
		}
	}

	run.FinishedAt = s.now()
	if s.Observer != nil {
		s.Observer.ObserveRun(run, run.FinishedAt.Sub(started))
	}
	log.Printf("[INFO] scan %s done: %d tickers, %d BUY, %d SETUP, %d errors",
		run.ID, len(run.Results), run.Count(model.CategoryBuy), run.Count(model.CategorySetup), run.Count(model.CategoryError))
	return run, nil
}

func (s *Scanner) scanTicker(ctx context.Context, ticker string) model.ScanResult {
	res := model.ScanResult{Ticker: ticker}

	frame, err := s.Collector.Collect(ctx, ticker)
	if err != nil {
		if errors.Is(err, collector.ErrDataUnavailable) {
			res.Category = model.CategoryNoData
			res.Note = err.Error()
			return res
		}
		log.Printf("[WARN] %s: %v", ticker, err)
		res.Category = model.CategoryError
		res.Err = err.Error()
		return res
	}

	sig := strategy.Evaluate(frame, s.Rules)
	res.Category = sig.Category
	if last, ok := frame.At(0); ok {
		res.Price = last.Close
		res.Time = last.Time
	}
	if sig.Category != model.CategoryNoData {
		res.Strength = sig.Strength
		res.EMAFast = sig.EMAFast
		res.EMASlow = sig.EMASlow
		res.ATR = sig.ATR
	}
	return res
}

// marketTrendUp evaluates the reference symbol once per scan. When it
// cannot be evaluated the filter fails closed.
func (s *Scanner) marketTrendUp(ctx context.Context) bool {
	frame, err := s.Collector.Collect(ctx, s.MarketSymbol)
	if err != nil {
		log.Printf("[WARN] market filter %s unavailable, holding BUY signals: %v", s.MarketSymbol, err)
		return false
	}
	sig := strategy.Evaluate(frame, s.Rules)
	if sig.Category == model.CategoryNoData {
		log.Printf("[WARN] market filter %s has too little history, holding BUY signals", s.MarketSymbol)
		return false
	}
	if !sig.Predicates.TrendUp {
		log.Printf("[INFO] market filter %s not in uptrend, BUY signals downgraded", s.MarketSymbol)
	}
	return sig.Predicates.TrendUp
}

// Partition groups results by category in presentation order. Within a
// category the strongest bar comes first, ties broken by ticker.
func Partition(results []model.ScanResult) map[model.Category][]model.ScanResult {
	groups := make(map[model.Category][]model.ScanResult, len(model.Categories))
	for _, r := range results {
		groups[r.Category] = append(groups[r.Category], r)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			if g[i].Strength != g[j].Strength {
				return g[i].Strength > g[j].Strength
			}
			return g[i].Ticker < g[j].Ticker
		})
	}
	return groups
}
