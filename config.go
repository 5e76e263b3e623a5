// FILE: config.go
// Package main – Runtime configuration model and loader.
//
// Config holds every knob the bot uses: the grid itself, loop cadence, the
// broker selection and its credentials, and ops settings. Values are layered:
//
//   defaults (reference EUR_USD grid)  <  YAML file (-config)  <  env
//
// Typical flow (see main.go):
//   loadBotEnv(log, envPath)
//   cfg, err := loadConfig(cfgPath)
//   cfg.Validate()
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// RetriggerMode selects how often a level may fire while the price lingers
// in its tolerance band.
type RetriggerMode string

const (
	// RetriggerAlways fires on every cycle the price is in band.
	RetriggerAlways RetriggerMode = "always"
	// RetriggerReenter fires once per band entry; the level re-arms after the
	// price leaves the band.
	RetriggerReenter RetriggerMode = "reenter"
)

// Config holds all runtime knobs for trading and operations.
type Config struct {
	Grid GridConfig `yaml:"grid"`

	// Loop control
	ToleranceDivisor decimal.Decimal `yaml:"tolerance_divisor"` // band = spacing / divisor
	PollInterval     time.Duration   `yaml:"poll_interval"`
	FeedBackoff      time.Duration   `yaml:"feed_backoff"`
	Retrigger        RetriggerMode   `yaml:"retrigger"`
	SeedLadder       bool            `yaml:"seed_ladder"`

	// Execution
	Broker     string          `yaml:"broker"` // oanda | paper
	DryRun     bool            `yaml:"dry_run"`
	OANDA      OANDAConfig     `yaml:"oanda"`
	PaperPrice decimal.Decimal `yaml:"paper_price"`

	// Ops
	Port        int       `yaml:"port"`
	JournalPath string    `yaml:"journal_path"`
	Log         LogConfig `yaml:"log"`
}

// ConfigurationError reports an invalid knob. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func newConfigError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// defaultConfig mirrors the reference EUR_USD ladder.
func defaultConfig() Config {
	return Config{
		Grid: GridConfig{
			Instrument:     "EUR_USD",
			LowerPrice:     decimal.RequireFromString("1.05"),
			UpperPrice:     decimal.RequireFromString("1.15"),
			LevelCount:     10,
			Capital:        decimal.NewFromInt(1000),
			StopLossPips:   decimal.Zero,
			TakeProfitPips: decimal.Zero,
			UnitScale:      decimal.NewFromInt(1000),
			PipScale:       decimal.NewFromInt(10000),
			QuotePrecision: 5,
		},
		ToleranceDivisor: decimal.NewFromInt(10),
		PollInterval:     10 * time.Second,
		FeedBackoff:      10 * time.Second,
		Retrigger:        RetriggerAlways,
		SeedLadder:       true,
		Broker:           "oanda",
		DryRun:           false,
		OANDA: OANDAConfig{
			BaseURL: defaultOANDAURL,
			Timeout: 15 * time.Second,
			Retries: 2,
		},
		Port: 8080,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// loadConfig builds the runtime Config. path may be empty (no YAML layer).
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays env keys on cfg; unset keys keep the current value.
func applyEnv(cfg *Config) {
	g := &cfg.Grid
	g.Instrument = getEnv("INSTRUMENT", g.Instrument)
	g.LowerPrice = getEnvDecimal("LOWER_PRICE", g.LowerPrice)
	g.UpperPrice = getEnvDecimal("UPPER_PRICE", g.UpperPrice)
	g.LevelCount = getEnvInt("GRID_LEVELS", g.LevelCount)
	g.Capital = getEnvDecimal("CAPITAL", g.Capital)
	g.StopLossPips = getEnvDecimal("STOP_LOSS_PIPS", g.StopLossPips)
	g.TakeProfitPips = getEnvDecimal("TAKE_PROFIT_PIPS", g.TakeProfitPips)
	g.UnitScale = getEnvDecimal("UNIT_SCALE", g.UnitScale)
	g.PipScale = getEnvDecimal("PIP_SCALE", g.PipScale)
	g.QuotePrecision = int32(getEnvInt("QUOTE_PRECISION", int(g.QuotePrecision)))

	cfg.ToleranceDivisor = getEnvDecimal("TOLERANCE_DIVISOR", cfg.ToleranceDivisor)
	cfg.PollInterval = getEnvSeconds("POLL_INTERVAL_SEC", cfg.PollInterval)
	cfg.FeedBackoff = getEnvSeconds("FEED_BACKOFF_SEC", cfg.FeedBackoff)
	cfg.Retrigger = RetriggerMode(strings.ToLower(getEnv("RETRIGGER_MODE", string(cfg.Retrigger))))
	cfg.SeedLadder = getEnvBool("SEED_LADDER", cfg.SeedLadder)

	cfg.Broker = strings.ToLower(getEnv("BROKER", cfg.Broker))
	cfg.DryRun = getEnvBool("DRY_RUN", cfg.DryRun)
	cfg.PaperPrice = getEnvDecimal("PAPER_PRICE", cfg.PaperPrice)
	cfg.OANDA.APIKey = getEnv("OANDA_API_KEY", cfg.OANDA.APIKey)
	cfg.OANDA.AccountID = getEnv("OANDA_ACCOUNT_ID", cfg.OANDA.AccountID)
	cfg.OANDA.BaseURL = getEnv("OANDA_API_URL", cfg.OANDA.BaseURL)
	cfg.OANDA.Timeout = getEnvSeconds("OANDA_TIMEOUT_SEC", cfg.OANDA.Timeout)
	cfg.OANDA.Retries = getEnvInt("OANDA_RETRIES", cfg.OANDA.Retries)

	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.JournalPath = getEnv("JOURNAL_PATH", cfg.JournalPath)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", cfg.Log.MaxBackups)
	cfg.Log.MaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", cfg.Log.MaxAgeDays)
	cfg.Log.Compress = getEnvBool("LOG_COMPRESS", cfg.Log.Compress)
}

// Validate checks the grid and the loop knobs. Broker credentials are
// checked by the broker constructor, and only when that broker is used.
func (c Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	switch {
	case !c.ToleranceDivisor.IsPositive():
		return newConfigError("tolerance_divisor", "must be > 0")
	case c.PollInterval <= 0:
		return newConfigError("poll_interval", "must be > 0")
	case c.FeedBackoff <= 0:
		return newConfigError("feed_backoff", "must be > 0")
	case c.Retrigger != RetriggerAlways && c.Retrigger != RetriggerReenter:
		return newConfigError("retrigger", fmt.Sprintf("must be %q or %q (got %q)", RetriggerAlways, RetriggerReenter, c.Retrigger))
	case c.Broker != "oanda" && c.Broker != "paper":
		return newConfigError("broker", fmt.Sprintf("must be oanda or paper (got %q)", c.Broker))
	}
	return nil
}

// Tolerance is the half-width of the band around each level.
func (c Config) Tolerance() decimal.Decimal {
	return c.Grid.LevelSpacing().Div(c.ToleranceDivisor)
}
