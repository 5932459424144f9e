// Package config defines the top-level configuration for spotdesk and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SPOTDESK_* environment variables.
type Config struct {
	Balance  BalanceConfig `toml:"balance"`
	Oracle   OracleConfig  `toml:"oracle"`
	Feed     FeedConfig    `toml:"feed"`
	Monitor  MonitorConfig `toml:"monitor"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Notify   NotifyConfig  `toml:"notify"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// BalanceConfig seeds the in-memory ledger.
type BalanceConfig struct {
	Initial  float64 `toml:"initial"`
	Currency string  `toml:"currency"`
}

// OracleConfig selects and parametrizes the price source.
type OracleConfig struct {
	Provider     string             `toml:"provider"` // "binance" or "static"
	BaseURL      string             `toml:"base_url"`
	WsURL        string             `toml:"ws_url"`
	CacheMaxAge  duration           `toml:"cache_max_age"`
	StaticPrices map[string]float64 `toml:"static_prices"`
}

// FeedConfig controls the live websocket price feed.
type FeedConfig struct {
	Enabled bool     `toml:"enabled"`
	Symbols []string `toml:"symbols"`
}

// MonitorConfig controls the protective-stop monitor.
type MonitorConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables
// Redis entirely: the bus, price cache and rate limiter are simply not
// wired.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// ServerConfig holds the HTTP API server configuration.
type ServerConfig struct {
	Enabled          bool     `toml:"enabled"`
	Port             int      `toml:"port"`
	APIKey           string   `toml:"api_key"`
	CORSOrigins      []string `toml:"cors_origins"`
	RateLimitEnabled bool     `toml:"rate_limit_enabled"`
	RateLimit        int      `toml:"rate_limit"`
	RateLimitWindow  duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials and event filters.
type NotifyConfig struct {
	Enabled           bool     `toml:"enabled"`
	Events            []string `toml:"events"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
}

// duration wraps time.Duration so TOML files can use "5s" / "1m" strings.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults returns a Config populated with sensible defaults for every
// section. Load starts from these before applying the file and environment.
func Defaults() Config {
	return Config{
		Mode:     "serve",
		LogLevel: "info",
		Balance: BalanceConfig{
			Initial:  1000,
			Currency: "USDT",
		},
		Oracle: OracleConfig{
			Provider:    "binance",
			BaseURL:     "https://api.binance.com",
			WsURL:       "wss://stream.binance.com:9443",
			CacheMaxAge: duration{5 * time.Second},
		},
		Feed: FeedConfig{
			Enabled: true,
			Symbols: []string{"BTC/USDT"},
		},
		Monitor: MonitorConfig{
			Enabled:  true,
			Interval: duration{time.Second},
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8080,
			RateLimit:       100,
			RateLimitWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"position_opened", "position_closed", "stop_triggered", "error"},
		},
	}
}

// Validate checks the configuration for internal consistency and collects
// every problem into a single error so operators can fix them all at once.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.Mode) {
	case "serve", "monitor":
	default:
		problems = append(problems, fmt.Sprintf("mode: unsupported %q (want serve or monitor)", c.Mode))
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level: unsupported %q", c.LogLevel))
	}

	if c.Balance.Initial < 0 {
		problems = append(problems, "balance.initial: must be >= 0")
	}
	if c.Balance.Currency == "" {
		problems = append(problems, "balance.currency: required")
	}

	switch c.Oracle.Provider {
	case "binance":
		if c.Oracle.BaseURL == "" {
			problems = append(problems, "oracle.base_url: required for the binance provider")
		}
		if c.Feed.Enabled {
			if c.Oracle.WsURL == "" {
				problems = append(problems, "oracle.ws_url: required when the feed is enabled")
			}
			if len(c.Feed.Symbols) == 0 {
				problems = append(problems, "feed.symbols: at least one symbol required when the feed is enabled")
			}
		}
	case "static":
		if len(c.Oracle.StaticPrices) == 0 {
			problems = append(problems, "oracle.static_prices: required for the static provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("oracle.provider: unsupported %q (want binance or static)", c.Oracle.Provider))
	}
	if c.Oracle.CacheMaxAge.Duration < 0 {
		problems = append(problems, "oracle.cache_max_age: must be >= 0")
	}

	if c.Monitor.Enabled && c.Monitor.Interval.Duration <= 0 {
		problems = append(problems, "monitor.interval: must be > 0 when the monitor is enabled")
	}

	if c.Server.Enabled {
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port: %d out of range", c.Server.Port))
		}
		if c.Server.RateLimitEnabled {
			if c.Server.RateLimit <= 0 {
				problems = append(problems, "server.rate_limit: must be > 0 when rate limiting is enabled")
			}
			if c.Server.RateLimitWindow.Duration <= 0 {
				problems = append(problems, "server.rate_limit_window: must be > 0 when rate limiting is enabled")
			}
			if c.Redis.Addr == "" {
				problems = append(problems, "server.rate_limit_enabled: requires redis.addr")
			}
		}
	}

	if c.Notify.Enabled {
		hasTelegram := c.Notify.TelegramToken != "" && c.Notify.TelegramChatID != ""
		hasDiscord := c.Notify.DiscordWebhookURL != ""
		if !hasTelegram && !hasDiscord {
			problems = append(problems, "notify: at least one sender (telegram or discord) required when enabled")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
