package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, "binance", cfg.Oracle.Provider)
	assert.InDelta(t, 1000, cfg.Balance.Initial, 1e-9)
	assert.Equal(t, "USDT", cfg.Balance.Currency)
	assert.Equal(t, time.Second, cfg.Monitor.Interval.Duration)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "monitor"
log_level = "debug"

[balance]
initial = 5000.0
currency = "USDC"

[oracle]
provider = "static"
cache_max_age = "10s"

[oracle.static_prices]
"BTC/USDT" = 50000.0

[monitor]
enabled = true
interval = "250ms"

[feed]
enabled = false
`), 0o600))

	t.Setenv("SPOTDESK_BALANCE_INITIAL", "2500")
	t.Setenv("SPOTDESK_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// File over defaults.
	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "USDC", cfg.Balance.Currency)
	assert.Equal(t, "static", cfg.Oracle.Provider)
	assert.Equal(t, 10*time.Second, cfg.Oracle.CacheMaxAge.Duration)
	assert.Equal(t, 250*time.Millisecond, cfg.Monitor.Interval.Duration)
	assert.InDelta(t, 50000, cfg.Oracle.StaticPrices["BTC/USDT"], 1e-9)

	// Env over file.
	assert.InDelta(t, 2500, cfg.Balance.Initial, 1e-9)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "serve", cfg.Mode)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "backtest"
	cfg.Balance.Initial = -1
	cfg.Oracle.Provider = "static" // no static_prices set
	cfg.Monitor.Interval.Duration = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "balance.initial")
	assert.Contains(t, err.Error(), "oracle.static_prices")
	assert.Contains(t, err.Error(), "monitor.interval")
}

func TestValidateRateLimitRequiresRedis(t *testing.T) {
	cfg := Defaults()
	cfg.Server.RateLimitEnabled = true
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Password = "hunter2"
	cfg.Server.APIKey = "secret-key"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Originals untouched.
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Equal(t, "secret-key", cfg.Server.APIKey)
}
