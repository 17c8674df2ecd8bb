package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WealthPulse/internal/model"
)

var envKeys = []string{
	"PORT", "CORS_ORIGINS", "LOG_LEVEL", "LOG_PRETTY", "IBJA_API_KEY", "GOLDAPI_KEY",
	"MF_FUND_CODES", "SQLITE_PATH", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"RUN_ON_START", "GEMINI_API_KEY", "ADVISOR_MODEL", "HTTPS_PROXY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Collector.Retry.Attempts)
	assert.Equal(t, 10*time.Second, cfg.Collector.Retry.Timeout)
	assert.Equal(t, time.Second, cfg.Collector.Retry.Backoff)
	assert.Equal(t, 5, cfg.Collector.MaxParallel)
	assert.Equal(t, "data/wealthpulse.db", cfg.Database.SQLitePath)
	assert.Equal(t, 20, cfg.Advisor.MaxPerHour)
	assert.Len(t, cfg.Schedule.Refresh, 4)
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 9000
collector:
  waterfalls:
    equities: [groww, yahoo]
  symbol_timeout: 4s
  retry:
    attempts: 2
    timeout: 5s
    backoff: 500ms
  fund_codes: ["118989"]
cache:
  ttls:
    gold: 1h
telegram:
  bot_token: yaml-token
  chat_id: "42"
`)
	t.Setenv("PORT", "9100")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("MF_FUND_CODES", "118989, 120503")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9100, cfg.Server.Port, "env wins over yaml")
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, 500*time.Millisecond, cfg.Collector.Retry.Backoff)
	assert.Equal(t, 4*time.Second, cfg.Collector.SymbolTimeout)
	assert.Equal(t, []string{"118989", "120503"}, cfg.Collector.FundCodes)

	wf, err := cfg.Waterfalls()
	require.NoError(t, err)
	assert.Equal(t, map[model.Dataset][]string{model.DatasetEquities: {"groww", "yahoo"}}, wf)

	ttls, err := cfg.TTLs()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttls[model.DatasetGold])
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"zero attempts", func(c *Config) { c.Collector.Retry.Attempts = 0 }},
		{"unknown waterfall dataset", func(c *Config) { c.Collector.Waterfalls = map[string][]string{"crypto": {"x"}} }},
		{"empty waterfall", func(c *Config) { c.Collector.Waterfalls = map[string][]string{"gold": nil} }},
		{"negative ttl", func(c *Config) { c.Cache.TTLs = map[string]time.Duration{"gold": -time.Second} }},
		{"bad cron", func(c *Config) { c.Schedule.Refresh = map[string]string{"gold": "every hour"} }},
		{"telegram half set", func(c *Config) { c.Telegram.BotToken = "t" }},
		{"symbol timeout not below attempt timeout", func(c *Config) { c.Collector.SymbolTimeout = c.Collector.Retry.Timeout }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
