package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const defaultMinConfidence = 60.0

// Config holds all application configuration.
type Config struct {
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr        string        `yaml:"addr"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
	} `yaml:"redis"`
	MarketData struct {
		Provider    string `yaml:"provider"` // yahoo | mock
		HistoryDays int    `yaml:"history_days"`
	} `yaml:"market_data"`
	Advisor struct {
		BatchSize        int           `yaml:"batch_size"`
		BatchPause       time.Duration `yaml:"batch_pause"`
		MinConfidence    *float64      `yaml:"min_confidence"` // nil means 60; 0 disables the floor
		LegacyMACDSignal bool          `yaml:"legacy_macd_signal"`
	} `yaml:"advisor"`
	Schedule struct {
		GenerateCron string `yaml:"generate_cron"`
		SweepCron    string `yaml:"sweep_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Profiles struct {
		UsersFile string `yaml:"users_file"`
	} `yaml:"profiles"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// A missing .env is normal; existing variables win over the file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// Environment variable overrides
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MARKET_DATA_PROVIDER"); v != "" {
		cfg.MarketData.Provider = v
	}
	if v := os.Getenv("MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("MIN_CONFIDENCE: %w", err)
		}
		cfg.Advisor.MinConfidence = &f
	}
	if v := os.Getenv("CRON_GENERATE"); v != "" {
		cfg.Schedule.GenerateCron = v
	}
	if v := os.Getenv("CRON_SWEEP"); v != "" {
		cfg.Schedule.SweepCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("USERS_FILE"); v != "" {
		cfg.Profiles.UsersFile = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stock_adviser.db"
	}
	if cfg.Redis.SnapshotTTL == 0 {
		cfg.Redis.SnapshotTTL = 15 * time.Minute
	}
	if cfg.MarketData.Provider == "" {
		cfg.MarketData.Provider = "yahoo"
	}
	if cfg.MarketData.HistoryDays == 0 {
		cfg.MarketData.HistoryDays = 300
	}
	if cfg.Advisor.BatchSize == 0 {
		cfg.Advisor.BatchSize = 5
	}
	if cfg.Advisor.BatchPause == 0 {
		cfg.Advisor.BatchPause = 200 * time.Millisecond
	}
	if cfg.Advisor.MinConfidence == nil {
		def := defaultMinConfidence
		cfg.Advisor.MinConfidence = &def
	}
	if cfg.Schedule.GenerateCron == "" {
		cfg.Schedule.GenerateCron = "0 0 6 * * 1-5"
	}
	if cfg.Schedule.SweepCron == "" {
		cfg.Schedule.SweepCron = "0 0 * * * *"
	}
	if cfg.Profiles.UsersFile == "" {
		cfg.Profiles.UsersFile = "configs/users.json"
	}

	return cfg, nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	switch c.MarketData.Provider {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("market_data.provider must be yahoo or mock, got %q", c.MarketData.Provider)
	}
	if c.MarketData.HistoryDays < 200 {
		return fmt.Errorf("market_data.history_days must be at least 200")
	}
	if c.Advisor.BatchSize <= 0 {
		return fmt.Errorf("advisor.batch_size must be positive")
	}
	if c.Advisor.BatchPause < 0 {
		return fmt.Errorf("advisor.batch_pause must not be negative")
	}
	if mc := c.Advisor.MinConfidence; mc != nil && (*mc < 0 || *mc > 100) {
		return fmt.Errorf("advisor.min_confidence must be within 0-100")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.GenerateCron); err != nil {
		return fmt.Errorf("schedule.generate_cron: %w", err)
	}
	if _, err := parser.Parse(c.Schedule.SweepCron); err != nil {
		return fmt.Errorf("schedule.sweep_cron: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// MinConfidence returns the confidence threshold as a decimal.
func (c *Config) MinConfidence() decimal.Decimal {
	if c.Advisor.MinConfidence == nil {
		return decimal.NewFromFloat(defaultMinConfidence)
	}
	return decimal.NewFromFloat(*c.Advisor.MinConfidence)
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
