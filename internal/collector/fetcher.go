package collector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PullbackScanner/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns bars in chronological order. An empty result is not
	// an error.
	FetchBars(ctx context.Context, symbol, interval, lookback string) ([]model.Bar, error)
	Name() string
}

// ErrDataUnavailable is returned when a symbol has no or too little history.
var ErrDataUnavailable = errors.New("data unavailable")

// FetchError wraps a transport or lookup failure for one symbol.
type FetchError struct {
	Symbol string
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch %s: %v", e.Source, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseInterval converts a bar interval such as "15m", "1h" or "1d".
func ParseInterval(s string) (time.Duration, error) {
	n, unit, err := splitSpan(s)
	if err != nil {
		return 0, fmt.Errorf("interval %q: %w", s, err)
	}
	switch unit {
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "wk":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("interval %q: unknown unit %q", s, unit)
}

// ParseLookback converts a lookback period such as "7d", "1mo" or "1y".
func ParseLookback(s string) (time.Duration, error) {
	n, unit, err := splitSpan(s)
	if err != nil {
		return 0, fmt.Errorf("lookback %q: %w", s, err)
	}
	day := 24 * time.Hour
	switch unit {
	case "d":
		return time.Duration(n) * day, nil
	case "wk":
		return time.Duration(n) * 7 * day, nil
	case "mo":
		return time.Duration(n) * 30 * day, nil
	case "y":
		return time.Duration(n) * 365 * day, nil
	}
	return 0, fmt.Errorf("lookback %q: unknown unit %q", s, unit)
}

func splitSpan(s string) (int, string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, "", errors.New("expected <number><unit>")
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, "", err
	}
	if n <= 0 {
		return 0, "", errors.New("must be positive")
	}
	return n, s[i:], nil
}
