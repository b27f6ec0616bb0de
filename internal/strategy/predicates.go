package strategy

import (
	"math"

	"PullbackScanner/internal/model"
)

// Predicates is the boolean snapshot of the last bar.
type Predicates struct {
	TrendUp           bool
	EMASlopeUp        bool
	VolOK             bool
	VolChecked        bool // false while the ATR average is still warming up
	BullishBar        bool
	StrongBullBody    bool
	PullbackTouch     bool
	PullbackConfirmed bool
	EMAZoneRetest     bool
	Overextended      bool
	ORBBreakout       bool
}

// snapshot is the last/prev view the predicates read from.
type snapshot struct {
	last, prev      model.Bar
	fast, slow, atr float64
	prevFast        float64
	atrAvg          model.Value
	orb             *model.OpeningRange
}

func takeSnapshot(f *model.IndicatorFrame) (snapshot, bool) {
	last, ok1 := f.At(0)
	prev, ok2 := f.At(1)
	fast := model.ValueAt(f.EMAFast, 0)
	slow := model.ValueAt(f.EMASlow, 0)
	atr := model.ValueAt(f.ATR, 0)
	if !ok1 || !ok2 || !fast.OK || !slow.OK || !atr.OK {
		return snapshot{}, false
	}
	return snapshot{
		last: last,
		prev: prev,
		fast: fast.V,
		// seeded from bar 0, so the value is usable before the warm-up mark
		prevFast: model.ValueAt(f.EMAFast, 1).V,
		slow:     slow.V,
		atr:      atr.V,
		atrAvg:   model.ValueAt(f.ATRAvg, 0),
		orb:      f.ORB,
	}, true
}

func evaluatePredicates(s snapshot, th Thresholds) Predicates {
	var p Predicates
	last := s.last

	p.TrendUp = s.fast > s.slow && last.Close > s.slow
	p.EMASlopeUp = s.fast > s.prevFast

	if s.atrAvg.OK {
		p.VolChecked = true
		p.VolOK = s.atr > s.atrAvg.V*th.VolatilityRatio
	}

	p.BullishBar = last.Close > last.Open
	p.StrongBullBody = p.BullishBar && last.Body() >= th.StrongBodyRatio*math.Max(last.Range(), th.Epsilon)

	p.PullbackTouch = last.Low <= s.fast+s.atr*th.PullbackATRMult
	p.PullbackConfirmed = p.PullbackTouch && p.BullishBar && last.Close > s.fast

	p.EMAZoneRetest = (last.Low <= s.fast && last.Low >= s.slow) ||
		(last.Low <= s.slow && last.Close > s.slow)

	if last.Close > 0 {
		p.Overextended = math.Abs(last.Close-s.fast)/last.Close*100 > th.OverextendedPct
	}

	p.ORBBreakout = s.orb != nil && last.Close > s.orb.High
	return p
}

// Strength is body / range, purely descriptive.
func Strength(b model.Bar, epsilon float64) float64 {
	return b.Body() / math.Max(b.Range(), epsilon)
}
