package calculator

import "PullbackScanner/internal/model"

// EMA returns the exponential moving average of series with smoothing
// factor 2/(span+1). The first value is seeded from series[0], so the
// output has the same length as the input.
func EMA(series []float64, span int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1)
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RollingMean returns the simple mean over a sliding window of present
// values. Absent inputs are skipped; output is absent until window present
// inputs have been seen.
func RollingMean(values []model.Value, window int) []model.Value {
	out := make([]model.Value, len(values))
	if window <= 0 {
		return out
	}
	var (
		buf  = make([]float64, 0, window)
		sum  float64
		head int
	)
	for i, v := range values {
		if !v.OK {
			continue
		}
		if len(buf) < window {
			buf = append(buf, v.V)
			sum += v.V
		} else {
			sum += v.V - buf[head]
			buf[head] = v.V
			head = (head + 1) % window
		}
		if len(buf) == window {
			out[i] = model.Value{V: sum / float64(window), OK: true}
		}
	}
	return out
}

func present(xs []float64, from int) []model.Value {
	out := make([]model.Value, len(xs))
	for i, x := range xs {
		out[i] = model.Value{V: x, OK: i >= from}
	}
	return out
}

func extractCloses(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
