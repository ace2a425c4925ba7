package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WHALEFLOW_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WHALEFLOW_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "WHALEFLOW_MODE")
	setStr(&cfg.LogLevel, "WHALEFLOW_LOG_LEVEL")

	// ── Trade ──
	setStr(&cfg.Trade.Symbol, "WHALEFLOW_TRADE_SYMBOL")
	setFloat64(&cfg.Trade.TickIntervalSec, "WHALEFLOW_TRADE_TICK_INTERVAL_SEC")
	setFloat64(&cfg.Trade.SizeUSD, "WHALEFLOW_TRADE_SIZE_USD")
	setInt(&cfg.Trade.Leverage, "WHALEFLOW_TRADE_LEVERAGE")
	setFloat64(&cfg.Trade.FeeRate, "WHALEFLOW_TRADE_FEE_RATE")

	// ── Entry ──
	setFloat64(&cfg.Entry.ProbMin, "WHALEFLOW_ENTRY_PROB_MIN")
	setFloat64(&cfg.Entry.ProbMax, "WHALEFLOW_ENTRY_PROB_MAX")
	setFloat64(&cfg.Entry.OBILongMin, "WHALEFLOW_ENTRY_OBI_LONG_MIN")
	setFloat64(&cfg.Entry.OBILongMax, "WHALEFLOW_ENTRY_OBI_LONG_MAX")
	setFloat64(&cfg.Entry.OBIShortMin, "WHALEFLOW_ENTRY_OBI_SHORT_MIN")
	setFloat64(&cfg.Entry.OBIShortMax, "WHALEFLOW_ENTRY_OBI_SHORT_MAX")
	setFloat64(&cfg.Entry.MinConflictProb, "WHALEFLOW_ENTRY_MIN_CONFLICT_PROB")
	setFloat64(&cfg.Entry.ConflictRatio, "WHALEFLOW_ENTRY_CONFLICT_RATIO")
	setIntSlice(&cfg.Entry.ExcludedHours, "WHALEFLOW_ENTRY_EXCLUDED_HOURS")

	// ── Risk ──
	setFloat64(&cfg.Risk.StopLossPct, "WHALEFLOW_RISK_STOP_LOSS_PCT")
	setFloat64(&cfg.Risk.TakeProfitPct, "WHALEFLOW_RISK_TAKE_PROFIT_PCT")
	setFloat64(&cfg.Risk.NoMomentumProfitFloorPct, "WHALEFLOW_RISK_NO_MOMENTUM_PROFIT_FLOOR_PCT")
	setFloat64(&cfg.Risk.NoMomentumTriggerPct, "WHALEFLOW_RISK_NO_MOMENTUM_TRIGGER_PCT")
	setFloat64(&cfg.Risk.ProfitProtectTriggerPct, "WHALEFLOW_RISK_PROFIT_PROTECT_TRIGGER_PCT")
	setFloat64(&cfg.Risk.TrailingLockTriggerPct, "WHALEFLOW_RISK_TRAILING_LOCK_TRIGGER_PCT")
	setFloat64(&cfg.Risk.TrailingDistancePct, "WHALEFLOW_RISK_TRAILING_DISTANCE_PCT")
	setInt(&cfg.Risk.MaxHoldSeconds, "WHALEFLOW_RISK_MAX_HOLD_SECONDS")

	// ── SixDim ──
	setInt(&cfg.SixDim.MinScoreLong, "WHALEFLOW_SIX_DIM_MIN_SCORE_LONG")
	setInt(&cfg.SixDim.MinScoreShort, "WHALEFLOW_SIX_DIM_MIN_SCORE_SHORT")

	// ── Feed ──
	setStr(&cfg.Feed.WsHost, "WHALEFLOW_FEED_WS_HOST")
	setInt(&cfg.Feed.DepthLevels, "WHALEFLOW_FEED_DEPTH_LEVELS")
	setFloat64(&cfg.Feed.WhaleMinQty, "WHALEFLOW_FEED_WHALE_MIN_QTY")
	setFloat64(&cfg.Feed.StalenessFactor, "WHALEFLOW_FEED_STALENESS_FACTOR")
	setStr(&cfg.Feed.ReplayPath, "WHALEFLOW_FEED_REPLAY_PATH")

	// ── Journal ──
	setStr(&cfg.Journal.Dir, "WHALEFLOW_JOURNAL_DIR")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "WHALEFLOW_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "WHALEFLOW_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "WHALEFLOW_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigration, "WHALEFLOW_POSTGRES_RUN_MIGRATION")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "WHALEFLOW_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WHALEFLOW_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WHALEFLOW_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WHALEFLOW_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WHALEFLOW_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WHALEFLOW_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "WHALEFLOW_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WHALEFLOW_S3_REGION")
	setStr(&cfg.S3.Bucket, "WHALEFLOW_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "WHALEFLOW_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "WHALEFLOW_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WHALEFLOW_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WHALEFLOW_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WHALEFLOW_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WHALEFLOW_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WHALEFLOW_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "WHALEFLOW_NOTIFY_DISCORD_WEBHOOK")
	setStringSlice(&cfg.Notify.Events, "WHALEFLOW_NOTIFY_EVENTS")

	// ── Server ──
	setInt(&cfg.Server.Port, "WHALEFLOW_SERVER_PORT")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func setIntSlice(dst *[]int, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]int, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if n, err := strconv.Atoi(p); err == nil {
				cleaned = append(cleaned, n)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
