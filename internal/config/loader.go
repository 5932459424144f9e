package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPOTDESK_* environment variable overrides, and
// returns the final Config. A missing file is not an error: defaults plus
// environment are enough to run. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPOTDESK_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Balance ──
	setFloat64(&cfg.Balance.Initial, "SPOTDESK_BALANCE_INITIAL")
	setStr(&cfg.Balance.Currency, "SPOTDESK_BALANCE_CURRENCY")

	// ── Oracle ──
	setStr(&cfg.Oracle.Provider, "SPOTDESK_ORACLE_PROVIDER")
	setStr(&cfg.Oracle.BaseURL, "SPOTDESK_ORACLE_BASE_URL")
	setStr(&cfg.Oracle.WsURL, "SPOTDESK_ORACLE_WS_URL")
	setDuration(&cfg.Oracle.CacheMaxAge, "SPOTDESK_ORACLE_CACHE_MAX_AGE")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "SPOTDESK_FEED_ENABLED")
	setStringSlice(&cfg.Feed.Symbols, "SPOTDESK_FEED_SYMBOLS")

	// ── Monitor ──
	setBool(&cfg.Monitor.Enabled, "SPOTDESK_MONITOR_ENABLED")
	setDuration(&cfg.Monitor.Interval, "SPOTDESK_MONITOR_INTERVAL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SPOTDESK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPOTDESK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPOTDESK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPOTDESK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPOTDESK_REDIS_MAX_RETRIES")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SPOTDESK_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SPOTDESK_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "SPOTDESK_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "SPOTDESK_SERVER_CORS_ORIGINS")
	setBool(&cfg.Server.RateLimitEnabled, "SPOTDESK_SERVER_RATE_LIMIT_ENABLED")
	setInt(&cfg.Server.RateLimit, "SPOTDESK_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "SPOTDESK_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setBool(&cfg.Notify.Enabled, "SPOTDESK_NOTIFY_ENABLED")
	setStringSlice(&cfg.Notify.Events, "SPOTDESK_NOTIFY_EVENTS")
	setStr(&cfg.Notify.TelegramToken, "SPOTDESK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPOTDESK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPOTDESK_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "SPOTDESK_MODE")
	setStr(&cfg.LogLevel, "SPOTDESK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
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
