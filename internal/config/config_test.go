package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"RiskSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "okx", cfg.PrimaryVenue())
	assert.Equal(t, 120, cfg.Scan.MaxCandidates)
	assert.Equal(t, 220, cfg.Monitor.Limit)
	assert.Equal(t, 1500*time.Second, cfg.Storage.Lock.TTL)
	assert.InDelta(t, 3.0, cfg.Monitor.Trailing.MinStopPct, 1e-9)
}

func TestLoad_PartialFileKeepsNestedDefaults(t *testing.T) {
	path := writeConfig(t, `
scan:
  top_n: 5
  style: aggressive
monitor:
  trailing:
    k_sl: 2.5
storage:
  lock:
    ttl: 10m
styles:
  cautious:
    buy_score: 80
    breakout_score: 85
    breakout_window: 30
    breakout_tolerance_pct: 0.2
    watch_score: 65
    max_spread_pct: 0.1
    max_chase_return: 0.1
    return_periods: 7
    require_above_ma200: true
    min_history: 60
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Scan.TopN)
	assert.Equal(t, "aggressive", cfg.Scan.Style)
	assert.Equal(t, 500, cfg.Scan.Limit)
	assert.InDelta(t, 2.5, cfg.Monitor.Trailing.KStop, 1e-9)
	assert.InDelta(t, 12.0, cfg.Monitor.Trailing.ActivationPct, 1e-9)
	assert.Equal(t, 10*time.Minute, cfg.Storage.Lock.TTL)

	styles := cfg.StyleTable()
	assert.Len(t, styles, 4)
	assert.Equal(t, "cautious", styles["cautious"].Name)
	assert.Equal(t, 30, styles["cautious"].BreakoutWindow)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TRAIL_BACKEND", "redis")
	t.Setenv("SCAN_TOP_N", "3")
	t.Setenv("LOCK_TTL", "90s")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "tok", cfg.Telegram.BotToken)
	assert.Equal(t, BackendRedis, cfg.Storage.Trail.Backend)
	assert.Equal(t, 3, cfg.Scan.TopN)
	assert.Equal(t, 90*time.Second, cfg.Storage.Lock.TTL)

	t.Setenv("SCAN_TOP_N", "many")
	_, err = Load("")
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "scan: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"weights", func(c *Config) { c.Weights.Trend = 0.5 }},
		{"unknown style", func(c *Config) { c.Scan.Style = "yolo" }},
		{"scan top_n", func(c *Config) { c.Scan.TopN = 0 }},
		{"monitor limit", func(c *Config) { c.Monitor.Limit = 0 }},
		{"no venues", func(c *Config) { c.Venues.Order = nil }},
		{"unknown venue", func(c *Config) { c.Venues.Order = []string{"okx", "kraken"} }},
		{"duplicate venue", func(c *Config) { c.Venues.Order = []string{"okx", "okx"} }},
		{"alpaca without keys", func(c *Config) { c.Venues.Order = []string{"okx", "alpaca"} }},
		{"default venue missing", func(c *Config) { c.Monitor.DefaultVenue = "binance"; c.Venues.Order = []string{"okx"} }},
		{"driver", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"trail backend", func(c *Config) { c.Storage.Trail.Backend = "etcd" }},
		{"redis trail without addr", func(c *Config) { c.Storage.Trail.Backend = BackendRedis }},
		{"redis lock without addr", func(c *Config) { c.Storage.Lock.Backend = BackendRedis }},
		{"lock ttl", func(c *Config) { c.Storage.Lock.TTL = 0 }},
		{"chat id", func(c *Config) { c.Telegram.BotToken = "tok" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), model.ErrInvalidConfiguration)
		})
	}
}
