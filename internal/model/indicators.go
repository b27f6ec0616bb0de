package model

// Value is one point of a derived series. OK is false while the indicator
// is still warming up.
type Value struct {
	V  float64
	OK bool
}

// OpeningRange is the high/low band of the first minutes of a session.
type OpeningRange struct {
	High float64
	Low  float64
	Bars int // bars of the session that formed the range
}

// IndicatorFrame is the bar sequence augmented with per-bar indicators.
// All series have the same length as Bars.
type IndicatorFrame struct {
	Bars    []Bar
	EMAFast []Value
	EMASlow []Value
	ATR     []Value
	ATRAvg  []Value
	ORB     *OpeningRange // nil until the current session has enough bars
}

// Len returns the number of bars in the frame.
func (f *IndicatorFrame) Len() int { return len(f.Bars) }

// At returns the bar at index i counted from the end (0 = last).
func (f *IndicatorFrame) At(back int) (Bar, bool) {
	i := len(f.Bars) - 1 - back
	if i < 0 || i >= len(f.Bars) {
		return Bar{}, false
	}
	return f.Bars[i], true
}

// ValueAt returns the series point counted from the end (0 = last).
func ValueAt(series []Value, back int) Value {
	i := len(series) - 1 - back
	if i < 0 || i >= len(series) {
		return Value{}
	}
	return series[i]
}
