package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
  chat_id: -100200
backend:
  base_url: "http://localhost:8000/"
polling:
  tick_interval: 2s
schedule:
  cron: "0 30 8 * * *"
  on_demand_chat_id: 42
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, int64(-100200), cfg.Telegram.ChatID)
	assert.Equal(t, 2*time.Second, cfg.Polling.TickInterval)
	assert.Equal(t, time.Minute, cfg.Polling.RefreshInterval)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "0 30 8 * * *", cfg.Schedule.Cron)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, int64(-100200), cfg.Schedule.ChatID)
	assert.Equal(t, int64(42), cfg.Schedule.OnDemandChatID)
	assert.Equal(t, 500, cfg.Schedule.History)
	assert.Equal(t, "data/balances.jsonl", cfg.Store.Path)
	assert.Equal(t, "svg", cfg.Render.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ScheduleCanBeDisabled(t *testing.T) {
	path := writeConfig(t, "schedule:\n  enabled: false\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Schedule.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "telegram:\n  bot_token: from-file\n")
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_CHAT_ID", "77")
	t.Setenv("BACKEND_BASE_URL", "http://backend:8000")
	t.Setenv("STORE_PATH", "/tmp/x.jsonl")
	t.Setenv("SCHEDULE_CRON", "*/10 * * * * *")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.BotToken)
	assert.Equal(t, int64(77), cfg.Telegram.ChatID)
	assert.Equal(t, "http://backend:8000", cfg.Backend.BaseURL)
	assert.Equal(t, "/tmp/x.jsonl", cfg.Store.Path)
	assert.Equal(t, "*/10 * * * * *", cfg.Schedule.Cron)
}

func TestLoad_BadChatIDEnv(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0 0 9 * * *", cfg.Schedule.Cron)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "telegram: [unterminated")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		cfg.Telegram.BotToken = "token"
		cfg.Telegram.ChatID = 1
		cfg.Backend.BaseURL = "http://localhost:8000"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Telegram.BotToken = "" }, wantErr: true},
		{name: "missing chat", mutate: func(c *Config) { c.Telegram.ChatID = 0 }, wantErr: true},
		{name: "bad backend url", mutate: func(c *Config) { c.Backend.BaseURL = "::nope" }, wantErr: true},
		{name: "unknown render mode", mutate: func(c *Config) { c.Render.Mode = "gif" }, wantErr: true},
		{name: "http render without endpoint", mutate: func(c *Config) { c.Render.Mode = "http" }, wantErr: true},
		{name: "http render with endpoint", mutate: func(c *Config) {
			c.Render.Mode = "http"
			c.Render.Endpoint = "http://chart:3000/render"
		}},
		{name: "bad redis addr", mutate: func(c *Config) { c.Redis.Addr = "no-port" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
