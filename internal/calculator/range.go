package calculator

import (
	"math"
	"time"

	"PullbackScanner/internal/model"
)

// OpeningRangeBars returns how many bars of the given interval cover the
// opening-range duration, rounding up. Zero means the range is disabled.
func OpeningRangeBars(minutes int, interval time.Duration) int {
	if minutes <= 0 || interval <= 0 || interval >= 24*time.Hour {
		return 0
	}
	step := interval.Minutes()
	return int(math.Ceil(float64(minutes) / step))
}

// CalculateOpeningRange returns the high/low of the first k bars of the most
// recent session. Sessions are split by calendar date in loc. The second
// return value is false when the current session has fewer than k bars.
func CalculateOpeningRange(bars []model.Bar, k int, loc *time.Location) (*model.OpeningRange, bool) {
	if k <= 0 || len(bars) == 0 {
		return nil, false
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := bars[len(bars)-1].Time.In(loc).Date()
	start := len(bars) - 1
	for start > 0 {
		py, pm, pd := bars[start-1].Time.In(loc).Date()
		if py != y || pm != m || pd != d {
			break
		}
		start--
	}
	if len(bars)-start < k {
		return nil, false
	}

	high := math.Inf(-1)
	low := math.Inf(1)
	for i := start; i < start+k; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return &model.OpeningRange{High: high, Low: low, Bars: k}, true
}
