package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
scan:
  tickers: [spy, " qqq ", NVDA]
  interval: 15m
  lookback: 5d
  market_filter_symbol: SPY
indicators:
  opening_range_minutes: 30
thresholds:
  overextended_pct: 2.5
rules:
  require_volatility: false
  allow_zone_retest: true
telegram:
  bot_token: file-token
  chat_id: "42"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	for _, key := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "ALPACA_API_KEY", "ALPACA_API_SECRET", "DATA_PROVIDER", "SCAN_INTERVAL"} {
		if _, ok := os.LookupEnv(key); ok {
			t.Setenv(key, "")
		}
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if got := cfg.Scan.Tickers; len(got) != 3 || got[0] != "SPY" || got[1] != "QQQ" {
		t.Errorf("unexpected tickers %v", got)
	}
	if cfg.Indicators.FastSpan != 9 || cfg.Indicators.SlowSpan != 21 {
		t.Errorf("expected default spans, got %d/%d", cfg.Indicators.FastSpan, cfg.Indicators.SlowSpan)
	}
	if cfg.Thresholds.OverextendedPct != 2.5 || cfg.Thresholds.VolatilityRatio != 0.8 {
		t.Errorf("unexpected thresholds %+v", cfg.Thresholds)
	}
	if cfg.Rules.RequireVolatility || !cfg.Rules.AllowZoneRetest || !cfg.Rules.RequireSlope {
		t.Errorf("unexpected rules %+v", cfg.Rules)
	}
	if cfg.Scan.FetchTimeout != 20*time.Second {
		t.Errorf("expected default fetch timeout, got %v", cfg.Scan.FetchTimeout)
	}

	p := cfg.IndicatorParams()
	if p.Interval != 15*time.Minute || p.OpeningRangeMinutes != 30 {
		t.Errorf("unexpected params %+v", p)
	}
	if p.Location == nil || p.Location.String() != "America/New_York" {
		t.Errorf("unexpected location %v", p.Location)
	}
	opts := cfg.CollectorOptions()
	if opts.MinBars != 21 || opts.Lookback != "5d" {
		t.Errorf("unexpected collector options %+v", opts)
	}
	if r := cfg.StrategyRules(); r.Thresholds.OverextendedPct != 2.5 || r.MinBars != 21 {
		t.Errorf("unexpected rules %+v", r)
	}
}

func TestLoad_ExplicitZeroes(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
scan:
  tickers: [SPY]
thresholds:
  overextended_pct: 2.5
  pullback_atr_mult: 0
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero pullback tolerance should be valid: %v", err)
	}
	th := cfg.StrategyRules().Thresholds
	if th.PullbackATRMult != 0 {
		t.Errorf("expected explicit 0 to be kept, got %g", th.PullbackATRMult)
	}
	if th.OverextendedPct != 2.5 || th.StrongBodyRatio != 0.5 {
		t.Errorf("unexpected thresholds %+v", th)
	}

	cfg, err = Load(writeConfig(t, `
scan:
  tickers: [SPY]
indicators:
  atr_window: 0
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var ce *ConfigError
	if err := cfg.Validate(); !errors.As(err, &ce) || ce.Field != "indicators.atr_window" {
		t.Errorf("expected indicators.atr_window error, got %v", err)
	}
}

func TestLoad_ATRAverageWindowRaisesMinBars(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
scan:
  tickers: [SPY]
indicators:
  atr_avg_window: 30
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := cfg.CollectorOptions().MinBars; got != 30 {
		t.Errorf("collector MinBars: expected 30, got %d", got)
	}
	if got := cfg.StrategyRules().MinBars; got != 30 {
		t.Errorf("rules MinBars: expected 30, got %d", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, sample)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("SCAN_TICKERS", "aapl,msft")
	t.Setenv("DATA_PROVIDER", "rest")
	t.Setenv("DATA_BASE_URL", "http://bars.local")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("expected env token, got %q", cfg.Telegram.BotToken)
	}
	if len(cfg.Scan.Tickers) != 2 || cfg.Scan.Tickers[1] != "MSFT" {
		t.Errorf("unexpected tickers %v", cfg.Scan.Tickers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataSource.Provider != "yahoo" || cfg.Scan.Interval != "30m" {
		t.Errorf("expected defaults, got provider=%q interval=%q", cfg.DataSource.Provider, cfg.Scan.Interval)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		field string
		edit  func(*Config)
	}{
		{"no tickers", "scan.tickers", func(c *Config) { c.Scan.Tickers = nil }},
		{"bad interval", "scan.interval", func(c *Config) { c.Scan.Interval = "soon" }},
		{"bad timezone", "scan.session_timezone", func(c *Config) { c.Scan.SessionTimezone = "Mars/Olympus" }},
		{"negative window", "indicators.atr_window", func(c *Config) { c.Indicators.ATRWindow = -3 }},
		{"fast above slow", "indicators.fast_span", func(c *Config) { c.Indicators.FastSpan = 30 }},
		{"negative threshold", "thresholds.pullback_atr_mult", func(c *Config) { c.Thresholds.PullbackATRMult = -0.1 }},
		{"unknown provider", "data_source.provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"alpaca without keys", "data_source.api_key", func(c *Config) { c.DataSource.Provider = "alpaca" }},
		{"half telegram", "telegram", func(c *Config) { c.Telegram.ChatID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sample))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.edit(cfg)
			err = cfg.Validate()
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ce.Field)
			}
		})
	}
}
