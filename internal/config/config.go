// Package config defines the top-level configuration for the whaleflow
// trading engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by WHALEFLOW_* environment
// variables.
type Config struct {
	Trade    TradeConfig    `toml:"trade"`
	Entry    EntryConfig    `toml:"entry"`
	Risk     RiskConfig     `toml:"risk"`
	SixDim   SixDimConfig   `toml:"six_dim"`
	Feed     FeedConfig     `toml:"feed"`
	Journal  JournalConfig  `toml:"journal"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TradeConfig holds the sizing and cadence of the paper-trading loop.
type TradeConfig struct {
	Symbol          string  `toml:"symbol"`
	TickIntervalSec float64 `toml:"tick_interval_sec"`
	SizeUSD         float64 `toml:"size_usd"`
	Leverage        int     `toml:"leverage"`
	// FeeRate is the per-side taker fee as a fraction of notional; the
	// round trip charges it twice.
	FeeRate float64 `toml:"fee_rate"`
}

// EntryConfig holds the entry-gate thresholds.
type EntryConfig struct {
	ProbMin float64 `toml:"prob_min"`
	// ProbMax is an anti-overfitting ceiling: probabilities above it are
	// treated as degenerate and rejected.
	ProbMax         float64 `toml:"prob_max"`
	OBILongMin      float64 `toml:"obi_long_min"`
	OBILongMax      float64 `toml:"obi_long_max"`
	OBIShortMin     float64 `toml:"obi_short_min"`
	OBIShortMax     float64 `toml:"obi_short_max"`
	MinConflictProb float64 `toml:"min_conflict_prob"`
	ConflictRatio   float64 `toml:"conflict_ratio"`
	// ExcludedHours are UTC hours during which no entries are taken.
	ExcludedHours []int `toml:"excluded_hours"`
}

// RiskConfig holds the exit-rule thresholds. All percentages are leveraged
// PnL percentages.
type RiskConfig struct {
	StopLossPct   float64 `toml:"stop_loss_pct"`
	TakeProfitPct float64 `toml:"take_profit_pct"`
	// No-momentum early stop: if the position never reached
	// NoMomentumProfitFloorPct favorable and has reached NoMomentumTriggerPct
	// adverse, cut it at the adverse threshold.
	NoMomentumProfitFloorPct float64 `toml:"no_momentum_profit_floor_pct"`
	NoMomentumTriggerPct     float64 `toml:"no_momentum_trigger_pct"`
	// Profit protection: once the position was up ProfitProtectTriggerPct,
	// exit at breakeven if PnL falls back to zero.
	ProfitProtectTriggerPct float64 `toml:"profit_protect_trigger_pct"`
	TrailingLockTriggerPct  float64 `toml:"trailing_lock_trigger_pct"`
	TrailingDistancePct     float64 `toml:"trailing_distance_pct"`
	MaxHoldSeconds          int     `toml:"max_hold_seconds"`
}

// SixDimConfig holds the direction-eligibility minimums for the six-dimension
// score. Asymmetric on purpose: market structure is not symmetric.
type SixDimConfig struct {
	MinScoreLong  int `toml:"min_score_long"`
	MinScoreShort int `toml:"min_score_short"`
}

// FeedConfig holds market-data feed parameters.
type FeedConfig struct {
	WsHost      string  `toml:"ws_host"`
	DepthLevels int     `toml:"depth_levels"`
	// WhaleMinQty is the base-quantity threshold above which a trade counts
	// toward whale net flow.
	WhaleMinQty float64 `toml:"whale_min_qty"`
	// StalenessFactor multiplies the tick interval to form the maximum
	// snapshot age accepted by the trading loop.
	StalenessFactor float64 `toml:"staleness_factor"`
	// ReplayPath points at a snapshot JSONL file for replay mode.
	ReplayPath string `toml:"replay_path"`
}

// JournalConfig holds trade-journal parameters.
type JournalConfig struct {
	Dir string `toml:"dir"`
}

// PostgresConfig holds the optional trade-archive database parameters.
// Leave DSN empty to disable the archive.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
	RunMigration bool   `toml:"run_migration"`
}

// RedisConfig holds the optional snapshot cache / event bus parameters.
// Leave Addr empty to disable.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds the optional journal-archive object storage parameters.
// Leave Bucket empty to disable.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"`
}

// ServerConfig holds the status API parameters. Port 0 disables the server.
type ServerConfig struct {
	Port int `toml:"port"`
}

var validModes = map[string]bool{
	"trade":  true,
	"replay": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns the built-in configuration. Threshold values mirror the
// most recent calibration pass; they are expected to be overwritten by the
// calibration feedback loop.
func Defaults() Config {
	return Config{
		Trade: TradeConfig{
			Symbol:          "BTCUSDT",
			TickIntervalSec: 5,
			SizeUSD:         100,
			Leverage:        10,
			FeeRate:         0.0004,
		},
		Entry: EntryConfig{
			ProbMin:         0.75,
			ProbMax:         0.92,
			OBILongMin:      0.2,
			OBILongMax:      0.85,
			OBIShortMin:     -0.85,
			OBIShortMax:     -0.2,
			MinConflictProb: 0.5,
			ConflictRatio:   0.6,
			ExcludedHours:   []int{1, 2, 3, 4, 5, 6},
		},
		// A wide hard stop paired with an early no-momentum cut: trades that
		// never got going are booked at -5% while winners get room to run.
		Risk: RiskConfig{
			StopLossPct:              12.0,
			TakeProfitPct:            10.0,
			NoMomentumProfitFloorPct: 1.0,
			NoMomentumTriggerPct:     5.0,
			ProfitProtectTriggerPct:  4.0,
			TrailingLockTriggerPct:   0.5,
			TrailingDistancePct:      0.3,
			MaxHoldSeconds:           1800,
		},
		SixDim: SixDimConfig{
			MinScoreLong:  8,
			MinScoreShort: 9,
		},
		Feed: FeedConfig{
			WsHost:          "wss://fstream.binance.com",
			DepthLevels:     20,
			WhaleMinQty:     5.0,
			StalenessFactor: 2.0,
		},
		Journal: JournalConfig{
			Dir: "logs/trades",
		},
		Postgres: PostgresConfig{
			PoolMaxConns: 10,
			PoolMinConns: 2,
			RunMigration: true,
		},
		Redis: RedisConfig{
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Prefix:         "journal",
			UseSSL:         true,
			ForcePathStyle: false,
		},
		Server: ServerConfig{
			Port: 0,
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// Validate checks every numeric threshold at load time. An invalid config is
// rejected outright; the engine must refuse to start rather than run with
// nonsensical thresholds.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, replay)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trade
	if c.Trade.Symbol == "" {
		errs = append(errs, "trade: symbol must not be empty")
	}
	if c.Trade.TickIntervalSec <= 0 {
		errs = append(errs, "trade: tick_interval_sec must be positive")
	}
	if c.Trade.SizeUSD <= 0 {
		errs = append(errs, "trade: size_usd must be positive")
	}
	if c.Trade.Leverage < 1 {
		errs = append(errs, "trade: leverage must be at least 1")
	}
	if c.Trade.FeeRate < 0 || c.Trade.FeeRate > 0.01 {
		errs = append(errs, fmt.Sprintf("trade: fee_rate %g out of range [0, 0.01]", c.Trade.FeeRate))
	}

	// Entry
	if c.Entry.ProbMin < 0 || c.Entry.ProbMin > 1 {
		errs = append(errs, fmt.Sprintf("entry: prob_min %g out of range [0, 1]", c.Entry.ProbMin))
	}
	if c.Entry.ProbMax < 0 || c.Entry.ProbMax > 1 {
		errs = append(errs, fmt.Sprintf("entry: prob_max %g out of range [0, 1]", c.Entry.ProbMax))
	}
	if c.Entry.ProbMin > c.Entry.ProbMax {
		errs = append(errs, fmt.Sprintf("entry: prob_min %g exceeds prob_max %g", c.Entry.ProbMin, c.Entry.ProbMax))
	}
	if c.Entry.OBILongMin > c.Entry.OBILongMax {
		errs = append(errs, "entry: obi_long_min exceeds obi_long_max")
	}
	if c.Entry.OBIShortMin > c.Entry.OBIShortMax {
		errs = append(errs, "entry: obi_short_min exceeds obi_short_max")
	}
	if c.Entry.MinConflictProb < 0 || c.Entry.MinConflictProb > 1 {
		errs = append(errs, fmt.Sprintf("entry: min_conflict_prob %g out of range [0, 1]", c.Entry.MinConflictProb))
	}
	if c.Entry.ConflictRatio <= 0 {
		errs = append(errs, "entry: conflict_ratio must be positive")
	}
	for _, h := range c.Entry.ExcludedHours {
		if h < 0 || h > 23 {
			errs = append(errs, fmt.Sprintf("entry: excluded hour %d out of range [0, 23]", h))
		}
	}

	// Risk
	if c.Risk.StopLossPct <= 0 {
		errs = append(errs, "risk: stop_loss_pct must be positive")
	}
	if c.Risk.TakeProfitPct <= 0 {
		errs = append(errs, "risk: take_profit_pct must be positive")
	}
	if c.Risk.NoMomentumTriggerPct <= 0 {
		errs = append(errs, "risk: no_momentum_trigger_pct must be positive")
	}
	if c.Risk.NoMomentumProfitFloorPct < 0 {
		errs = append(errs, "risk: no_momentum_profit_floor_pct must not be negative")
	}
	if c.Risk.ProfitProtectTriggerPct <= 0 {
		errs = append(errs, "risk: profit_protect_trigger_pct must be positive")
	}
	if c.Risk.TrailingLockTriggerPct <= 0 {
		errs = append(errs, "risk: trailing_lock_trigger_pct must be positive")
	}
	if c.Risk.TrailingDistancePct <= 0 {
		errs = append(errs, "risk: trailing_distance_pct must be positive")
	}
	if c.Risk.MaxHoldSeconds <= 0 {
		errs = append(errs, "risk: max_hold_seconds must be positive")
	}
	// The threshold orderings keep every exit reason reachable: the hard stop
	// must sit beyond the no-momentum trigger, and take-profit beyond the
	// profit-protect trigger, or those rules can never fire.
	if c.Risk.NoMomentumTriggerPct >= c.Risk.StopLossPct {
		errs = append(errs, fmt.Sprintf("risk: no_momentum_trigger_pct %g must be below stop_loss_pct %g",
			c.Risk.NoMomentumTriggerPct, c.Risk.StopLossPct))
	}
	if c.Risk.ProfitProtectTriggerPct >= c.Risk.TakeProfitPct {
		errs = append(errs, fmt.Sprintf("risk: profit_protect_trigger_pct %g must be below take_profit_pct %g",
			c.Risk.ProfitProtectTriggerPct, c.Risk.TakeProfitPct))
	}

	// SixDim
	if c.SixDim.MinScoreLong < 0 || c.SixDim.MinScoreLong > 12 {
		errs = append(errs, fmt.Sprintf("six_dim: min_score_long %d out of range [0, 12]", c.SixDim.MinScoreLong))
	}
	if c.SixDim.MinScoreShort < 0 || c.SixDim.MinScoreShort > 12 {
		errs = append(errs, fmt.Sprintf("six_dim: min_score_short %d out of range [0, 12]", c.SixDim.MinScoreShort))
	}

	// Feed
	if c.Feed.DepthLevels <= 0 {
		errs = append(errs, "feed: depth_levels must be positive")
	}
	if c.Feed.StalenessFactor <= 0 {
		errs = append(errs, "feed: staleness_factor must be positive")
	}
	if strings.ToLower(c.Mode) == "trade" && c.Feed.WsHost == "" {
		errs = append(errs, "feed: ws_host must not be empty in trade mode")
	}
	if strings.ToLower(c.Mode) == "replay" && c.Feed.ReplayPath == "" {
		errs = append(errs, "feed: replay_path must be set in replay mode")
	}

	// Journal
	if c.Journal.Dir == "" {
		errs = append(errs, "journal: dir must not be empty")
	}

	// Server
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
