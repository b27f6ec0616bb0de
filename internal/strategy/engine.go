package strategy

import (
	"PullbackScanner/internal/calculator"
	"PullbackScanner/internal/model"
)

// Signal is the classifier output for one frame.
type Signal struct {
	Category   model.Category
	Strength   float64
	Predicates Predicates
	Price      float64
	EMAFast    float64
	EMASlow    float64
	ATR        float64
}

// MinBars returns the shortest history the classifier accepts for p: the
// largest configured window, and never fewer than two bars.
func MinBars(p calculator.Params) int {
	n := 2
	for _, w := range []int{p.FastSpan, p.SlowSpan, p.ATRWindow, p.ATRAvgWindow} {
		if w > n {
			n = w
		}
	}
	return n
}

// NewRules builds rules whose warm-up matches the indicator parameters.
func NewRules(p calculator.Params, th Thresholds, g Gates) Rules {
	return Rules{Thresholds: th, Gates: g, MinBars: MinBars(p)}
}

// Classify returns the category of the frame's last bar.
func Classify(f *model.IndicatorFrame, r Rules) model.Category {
	return Evaluate(f, r).Category
}

// Evaluate runs the predicate chain against the last bars of the frame.
// Tiers are checked top to bottom and the first match wins.
func Evaluate(f *model.IndicatorFrame, r Rules) *Signal {
	if f == nil || f.Len() < r.MinBars {
		return &Signal{Category: model.CategoryNoData}
	}
	s, ok := takeSnapshot(f)
	if !ok {
		return &Signal{Category: model.CategoryNoData}
	}

	p := evaluatePredicates(s, r.Thresholds)
	sig := &Signal{
		Predicates: p,
		Strength:   Strength(s.last, r.Thresholds.Epsilon),
		Price:      s.last.Close,
		EMAFast:    s.fast,
		EMASlow:    s.slow,
		ATR:        s.atr,
	}
	sig.Category = decide(p, r.Gates)
	return sig
}

func decide(p Predicates, g Gates) model.Category {
	trend := p.TrendUp && (p.EMASlopeUp || !g.RequireSlope)
	if !trend {
		return model.CategoryNoTrade
	}

	confirmed := p.PullbackConfirmed
	if g.AllowZoneRetest && p.EMAZoneRetest && p.BullishBar {
		confirmed = true
	}
	if g.RequireStrongBody && !p.StrongBullBody {
		confirmed = false
	}
	entry := confirmed || (g.AllowORBBreakout && p.ORBBreakout)

	volOK := !g.RequireVolatility || !p.VolChecked || p.VolOK
	calm := !g.RequireNotOverextended || !p.Overextended

	switch {
	case volOK && entry && calm:
		return model.CategoryBuy
	case p.PullbackTouch && !confirmed:
		return model.CategorySetup
	default:
		return model.CategoryTrending
	}
}
