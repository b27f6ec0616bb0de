package calculator

import (
	"time"

	"PullbackScanner/internal/model"
)

// Params configures the indicator engine.
type Params struct {
	FastSpan            int
	SlowSpan            int
	ATRWindow           int
	ATRAvgWindow        int
	OpeningRangeMinutes int
	Interval            time.Duration
	Location            *time.Location
}

// DefaultParams returns EMA 9/21, ATR 14, ATR average 20 on 30 minute bars
// with the opening range disabled.
func DefaultParams() Params {
	return Params{
		FastSpan:     9,
		SlowSpan:     21,
		ATRWindow:    14,
		ATRAvgWindow: 20,
		Interval:     30 * time.Minute,
	}
}

// Compute derives every indicator for bars. Short input yields absent
// values rather than an error; callers check Value.OK before use.
func Compute(bars []model.Bar, p Params) *model.IndicatorFrame {
	closes := extractCloses(bars)
	atr := ATR(bars, p.ATRWindow)

	frame := &model.IndicatorFrame{
		Bars:    bars,
		EMAFast: present(EMA(closes, p.FastSpan), p.FastSpan-1),
		EMASlow: present(EMA(closes, p.SlowSpan), p.SlowSpan-1),
		ATR:     atr,
		ATRAvg:  RollingMean(atr, p.ATRAvgWindow),
	}
	if p.FastSpan <= 0 {
		frame.EMAFast = make([]model.Value, len(bars))
	}
	if p.SlowSpan <= 0 {
		frame.EMASlow = make([]model.Value, len(bars))
	}

	if k := OpeningRangeBars(p.OpeningRangeMinutes, p.Interval); k > 0 {
		if orb, ok := CalculateOpeningRange(bars, k, p.Location); ok {
			frame.ORB = orb
		}
	}
	return frame
}
