package strategy

// Thresholds holds the numeric constants of the predicates.
type Thresholds struct {
	VolatilityRatio float64 // volOk: atr > atrAvg * ratio
	PullbackATRMult float64 // pullbackTouch tolerance above the fast EMA, in ATRs
	OverextendedPct float64 // overextended: |close-emaFast|/close*100 above this
	StrongBodyRatio float64 // strongBullBody: body >= ratio * range
	Epsilon         float64 // floor for a zero-range bar
}

// DefaultThresholds returns 0.8 / 0.1 / 1.2 / 0.5.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VolatilityRatio: 0.8,
		PullbackATRMult: 0.1,
		OverextendedPct: 1.2,
		StrongBodyRatio: 0.5,
		Epsilon:         1e-6,
	}
}

// Gates selects which predicates decide the BUY and SETUP tiers.
type Gates struct {
	RequireSlope           bool `yaml:"require_slope"`
	RequireVolatility      bool `yaml:"require_volatility"`
	RequireNotOverextended bool `yaml:"require_not_overextended"`
	RequireStrongBody      bool `yaml:"require_strong_body"`
	AllowZoneRetest        bool `yaml:"allow_zone_retest"`
	AllowORBBreakout       bool `yaml:"allow_orb_breakout"`
}

// DefaultGates: trend, slope and volatility with a confirmed pullback or an
// opening-range breakout, never when overextended.
func DefaultGates() Gates {
	return Gates{
		RequireSlope:           true,
		RequireVolatility:      true,
		RequireNotOverextended: true,
		AllowORBBreakout:       true,
	}
}

// Rules bundles thresholds, gates and the warm-up length.
type Rules struct {
	Thresholds Thresholds
	Gates      Gates
	MinBars    int
}
