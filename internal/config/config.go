package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token" validate:"required"`
		ChatID   int64  `yaml:"chat_id" validate:"required"`
		Proxy    string `yaml:"proxy" validate:"omitempty,url"`
	} `yaml:"telegram"`
	Backend struct {
		BaseURL string        `yaml:"base_url" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	} `yaml:"backend"`
	Polling struct {
		TickInterval    time.Duration `yaml:"tick_interval" validate:"gt=0"`
		RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gt=0"`
	} `yaml:"polling"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Store    struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"store"`
	Render struct {
		Mode     string `yaml:"mode" validate:"oneof=svg http"`
		Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
		Width    int    `yaml:"width" validate:"gt=0"`
		Height   int    `yaml:"height" validate:"gt=0"`
	} `yaml:"render"`
	Database struct {
		Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite postgres"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
	} `yaml:"redis"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// ScheduleConfig describes the balance report cycle. It is read once at
// startup and never changed.
type ScheduleConfig struct {
	Cron           string `yaml:"cron" validate:"required"`
	Enabled        bool   `yaml:"enabled"`
	Message        string `yaml:"message"`
	ChatID         int64  `yaml:"chat_id"`
	OnDemandChatID int64  `yaml:"on_demand_chat_id"`
	History        int    `yaml:"history" validate:"gt=0"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults and the environment still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Schedule.Enabled = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Telegram.Proxy = v
	}
	if v := os.Getenv("SCHEDULE_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}
	if cfg.Polling.TickInterval == 0 {
		cfg.Polling.TickInterval = 5 * time.Second
	}
	if cfg.Polling.RefreshInterval == 0 {
		cfg.Polling.RefreshInterval = time.Minute
	}
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "0 0 9 * * *"
	}
	if cfg.Schedule.Message == "" {
		cfg.Schedule.Message = "📊 <b>Balance report</b>"
	}
	if cfg.Schedule.ChatID == 0 {
		cfg.Schedule.ChatID = cfg.Telegram.ChatID
	}
	if cfg.Schedule.History == 0 {
		cfg.Schedule.History = 500
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "data/balances.jsonl"
	}
	if cfg.Render.Mode == "" {
		cfg.Render.Mode = "svg"
	}
	if cfg.Render.Width == 0 {
		cfg.Render.Width = 480
	}
	if cfg.Render.Height == 0 {
		cfg.Render.Height = 330
	}
	if cfg.Database.Driver == "" && cfg.Database.DSN == "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = "data/botherald.db"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks that all required fields are set and well formed.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Render.Mode == "http" && c.Render.Endpoint == "" {
		return fmt.Errorf("render.endpoint is required when render.mode is http")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	return nil
}
