package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"PullbackScanner/internal/calculator"
	"PullbackScanner/internal/collector"
	"PullbackScanner/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Scan struct {
		Tickers            []string      `yaml:"tickers"`
		Interval           string        `yaml:"interval"`
		Lookback           string        `yaml:"lookback"`
		MarketFilterSymbol string        `yaml:"market_filter_symbol"`
		FetchTimeout       time.Duration `yaml:"fetch_timeout"`
		SessionTimezone    string        `yaml:"session_timezone"`
	} `yaml:"scan"`
	Indicators struct {
		FastSpan            int `yaml:"fast_span"`
		SlowSpan            int `yaml:"slow_span"`
		ATRWindow           int `yaml:"atr_window"`
		ATRAvgWindow        int `yaml:"atr_avg_window"`
		OpeningRangeMinutes int `yaml:"opening_range_minutes"`
	} `yaml:"indicators"`
	Thresholds struct {
		VolatilityRatio float64 `yaml:"volatility_ratio"`
		PullbackATRMult float64 `yaml:"pullback_atr_mult"`
		OverextendedPct float64 `yaml:"overextended_pct"`
		StrongBodyRatio float64 `yaml:"strong_body_ratio"`
	} `yaml:"thresholds"`
	Rules    strategy.Gates `yaml:"rules"`
	Schedule struct {
		ScanCron   string `yaml:"scan_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	DataSource struct {
		Provider  string `yaml:"provider"` // yahoo | alpaca | rest
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Feed      string `yaml:"feed"`
	} `yaml:"data_source"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresURL string `yaml:"postgres_url"`
	} `yaml:"database"`
	Output struct {
		CSVPath      string `yaml:"csv_path"`
		SnapshotFile string `yaml:"snapshot_file"`
	} `yaml:"output"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// envOverrides lists the environment variables that win over the file.
type envOverrides struct {
	TelegramBotToken string   `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string   `envconfig:"TELEGRAM_CHAT_ID"`
	Tickers          []string `envconfig:"SCAN_TICKERS"`
	Interval         string   `envconfig:"SCAN_INTERVAL"`
	Lookback         string   `envconfig:"SCAN_LOOKBACK"`
	MarketSymbol     string   `envconfig:"MARKET_FILTER_SYMBOL"`
	Provider         string   `envconfig:"DATA_PROVIDER"`
	BaseURL          string   `envconfig:"DATA_BASE_URL"`
	AlpacaKey        string   `envconfig:"ALPACA_API_KEY"`
	AlpacaSecret     string   `envconfig:"ALPACA_API_SECRET"`
	Proxy            string   `envconfig:"HTTPS_PROXY"`
	ScanCron         string   `envconfig:"CRON_SCAN"`
	RunOnStart       bool     `envconfig:"RUN_ON_START"`
	SQLitePath       string   `envconfig:"SQLITE_PATH"`
	PostgresURL      string   `envconfig:"POSTGRES_URL"`
	CSVPath          string   `envconfig:"CSV_PATH"`
	ServerAddr       string   `envconfig:"SERVER_ADDR"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Zero is a real value for these, so defaults go in before decoding
	// and only keys present in the file replace them.
	cfg.Rules = strategy.DefaultGates()
	cfg.setIndicatorDefaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Telegram.BotToken, env.TelegramBotToken)
	set(&c.Telegram.ChatID, env.TelegramChatID)
	set(&c.Scan.Interval, env.Interval)
	set(&c.Scan.Lookback, env.Lookback)
	set(&c.Scan.MarketFilterSymbol, env.MarketSymbol)
	set(&c.DataSource.Provider, env.Provider)
	set(&c.DataSource.BaseURL, env.BaseURL)
	set(&c.DataSource.APIKey, env.AlpacaKey)
	set(&c.DataSource.APISecret, env.AlpacaSecret)
	set(&c.Proxy, env.Proxy)
	set(&c.Schedule.ScanCron, env.ScanCron)
	set(&c.Database.SQLitePath, env.SQLitePath)
	set(&c.Database.PostgresURL, env.PostgresURL)
	set(&c.Output.CSVPath, env.CSVPath)
	set(&c.Server.Addr, env.ServerAddr)
	if len(env.Tickers) > 0 {
		c.Scan.Tickers = env.Tickers
	}
	if env.RunOnStart {
		c.Schedule.RunOnStart = true
	}
}

func (c *Config) applyDefaults() {
	for i, t := range c.Scan.Tickers {
		c.Scan.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if c.Scan.Interval == "" {
		c.Scan.Interval = "30m"
	}
	if c.Scan.Lookback == "" {
		c.Scan.Lookback = "7d"
	}
	if c.Scan.FetchTimeout == 0 {
		c.Scan.FetchTimeout = 20 * time.Second
	}
	if c.Scan.SessionTimezone == "" {
		c.Scan.SessionTimezone = "America/New_York"
	}

	if c.Schedule.ScanCron == "" {
		// every 30 minutes during US cash hours, Monday to Friday
		c.Schedule.ScanCron = "0 1,31 9-16 * * 1-5"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/scanner.db"
	}
	if c.Output.SnapshotFile == "" {
		c.Output.SnapshotFile = "data/latest_scan.json"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

func (c *Config) setIndicatorDefaults() {
	p := calculator.DefaultParams()
	c.Indicators.FastSpan = p.FastSpan
	c.Indicators.SlowSpan = p.SlowSpan
	c.Indicators.ATRWindow = p.ATRWindow
	c.Indicators.ATRAvgWindow = p.ATRAvgWindow

	th := strategy.DefaultThresholds()
	c.Thresholds.VolatilityRatio = th.VolatilityRatio
	c.Thresholds.PullbackATRMult = th.PullbackATRMult
	c.Thresholds.OverextendedPct = th.OverextendedPct
	c.Thresholds.StrongBodyRatio = th.StrongBodyRatio
}

// ConfigError reports an invalid setting. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	if len(c.Scan.Tickers) == 0 {
		return invalid("scan.tickers", "at least one ticker is required")
	}
	if _, err := collector.ParseInterval(c.Scan.Interval); err != nil {
		return invalid("scan.interval", "%v", err)
	}
	if _, err := collector.ParseLookback(c.Scan.Lookback); err != nil {
		return invalid("scan.lookback", "%v", err)
	}
	if c.Scan.FetchTimeout < 0 {
		return invalid("scan.fetch_timeout", "must not be negative")
	}
	if _, err := time.LoadLocation(c.Scan.SessionTimezone); err != nil {
		return invalid("scan.session_timezone", "%v", err)
	}

	ind := c.Indicators
	for _, w := range []struct {
		name string
		v    int
	}{
		{"indicators.fast_span", ind.FastSpan},
		{"indicators.slow_span", ind.SlowSpan},
		{"indicators.atr_window", ind.ATRWindow},
		{"indicators.atr_avg_window", ind.ATRAvgWindow},
	} {
		if w.v <= 0 {
			return invalid(w.name, "must be positive, got %d", w.v)
		}
	}
	if ind.FastSpan >= ind.SlowSpan {
		return invalid("indicators.fast_span", "must be below slow_span (%d >= %d)", ind.FastSpan, ind.SlowSpan)
	}
	if ind.OpeningRangeMinutes < 0 {
		return invalid("indicators.opening_range_minutes", "must not be negative")
	}

	th := c.Thresholds
	for _, v := range []struct {
		name string
		v    float64
	}{
		{"thresholds.volatility_ratio", th.VolatilityRatio},
		{"thresholds.pullback_atr_mult", th.PullbackATRMult},
		{"thresholds.overextended_pct", th.OverextendedPct},
		{"thresholds.strong_body_ratio", th.StrongBodyRatio},
	} {
		if v.v < 0 {
			return invalid(v.name, "must not be negative, got %g", v.v)
		}
	}
	if th.StrongBodyRatio > 1 {
		return invalid("thresholds.strong_body_ratio", "must be at most 1, got %g", th.StrongBodyRatio)
	}

	switch c.DataSource.Provider {
	case "yahoo":
	case "alpaca":
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			return invalid("data_source.api_key", "alpaca needs api_key and api_secret")
		}
	case "rest":
		if c.DataSource.BaseURL == "" {
			return invalid("data_source.base_url", "rest provider needs base_url")
		}
	default:
		return invalid("data_source.provider", "unknown provider %q", c.DataSource.Provider)
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return invalid("telegram", "bot_token and chat_id must be set together")
	}
	return nil
}

// IndicatorParams returns the engine parameters. Call after Validate.
func (c *Config) IndicatorParams() calculator.Params {
	interval, _ := collector.ParseInterval(c.Scan.Interval)
	loc, err := time.LoadLocation(c.Scan.SessionTimezone)
	if err != nil {
		loc = time.UTC
	}
	return calculator.Params{
		FastSpan:            c.Indicators.FastSpan,
		SlowSpan:            c.Indicators.SlowSpan,
		ATRWindow:           c.Indicators.ATRWindow,
		ATRAvgWindow:        c.Indicators.ATRAvgWindow,
		OpeningRangeMinutes: c.Indicators.OpeningRangeMinutes,
		Interval:            interval,
		Location:            loc,
	}
}

// StrategyRules returns the classifier rules.
func (c *Config) StrategyRules() strategy.Rules {
	th := strategy.DefaultThresholds()
	th.VolatilityRatio = c.Thresholds.VolatilityRatio
	th.PullbackATRMult = c.Thresholds.PullbackATRMult
	th.OverextendedPct = c.Thresholds.OverextendedPct
	th.StrongBodyRatio = c.Thresholds.StrongBodyRatio
	return strategy.NewRules(c.IndicatorParams(), th, c.Rules)
}

// CollectorOptions returns what the collector needs per ticker.
func (c *Config) CollectorOptions() collector.Options {
	p := c.IndicatorParams()
	return collector.Options{
		Interval: c.Scan.Interval,
		Lookback: c.Scan.Lookback,
		Timeout:  c.Scan.FetchTimeout,
		MinBars:  strategy.MinBars(p),
		Params:   p,
	}
}
