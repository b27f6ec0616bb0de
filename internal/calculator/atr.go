package calculator

import (
	"math"

	"PullbackScanner/internal/model"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// Bar 0 has no previous close and uses high-low.
func TrueRange(bars []model.Bar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			tr[i] = b.High - b.Low
			continue
		}
		prevClose := bars[i-1].Close
		tr[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	return tr
}

// ATR is the simple rolling mean of true range over window bars.
func ATR(bars []model.Bar, window int) []model.Value {
	return RollingMean(present(TrueRange(bars), 0), window)
}
