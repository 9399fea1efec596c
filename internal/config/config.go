package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id"`
		Enabled    bool   `yaml:"enabled"`
		SendCharts bool   `yaml:"send_charts"`
	} `yaml:"telegram"`
	Monitoring struct {
		CooldownHours        float64 `yaml:"notification_cooldown_hours"`
		PriceComparisonDays  []int   `yaml:"price_comparison_days"`
		MarketHoursOnly      bool    `yaml:"market_hours_only"`
		MarketOpenTime       string  `yaml:"market_open_time"`
		MarketCloseTime      string  `yaml:"market_close_time"`
		LivePointStaleMins   int     `yaml:"live_point_staleness_minutes"`
		HistoricalCloseDays  []int   `yaml:"historical_close_days"`
	} `yaml:"monitoring"`
	Data struct {
		MetadataFile   string `yaml:"isin_config_file"`
		PriceFile      string `yaml:"price_file"`
		MaxHistoryDays int    `yaml:"max_history_days"`
	} `yaml:"data"`
	API struct {
		RateLimitDelayMS  int `yaml:"rate_limit_delay_ms"`
		RequestTimeoutSec int `yaml:"request_timeout_seconds"`
	} `yaml:"api"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		CheckCron string `yaml:"check_cron"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and fills defaults. A missing file is not an error; defaults
// plus environment cover the minimal setup.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// Booleans default on; yaml only overrides what the file sets.
	cfg.Telegram.Enabled = true
	cfg.Telegram.SendCharts = true
	cfg.Monitoring.MarketHoursOnly = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("ISIN_CONFIG_FILE"); v != "" {
		cfg.Data.MetadataFile = v
	}
	if v := os.Getenv("PRICE_FILE"); v != "" {
		cfg.Data.PriceFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_CHECK"); v != "" {
		cfg.Schedule.CheckCron = v
	}
	if v := os.Getenv("MAX_HISTORY_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Data.MaxHistoryDays = days
		}
	}

	// Defaults
	if cfg.Monitoring.CooldownHours == 0 {
		cfg.Monitoring.CooldownHours = 6
	}
	if len(cfg.Monitoring.PriceComparisonDays) == 0 {
		cfg.Monitoring.PriceComparisonDays = []int{30, 7}
	}
	if cfg.Monitoring.MarketOpenTime == "" {
		cfg.Monitoring.MarketOpenTime = "08:55"
	}
	if cfg.Monitoring.MarketCloseTime == "" {
		cfg.Monitoring.MarketCloseTime = "18:05"
	}
	if cfg.Monitoring.LivePointStaleMins == 0 {
		cfg.Monitoring.LivePointStaleMins = 60
	}
	if len(cfg.Monitoring.HistoricalCloseDays) == 0 {
		cfg.Monitoring.HistoricalCloseDays = []int{1, 7, 30, 90, 365}
	}
	if cfg.Data.MetadataFile == "" {
		cfg.Data.MetadataFile = "isin_metadata.csv"
	}
	if cfg.Data.PriceFile == "" {
		cfg.Data.PriceFile = "price_history_wide.csv"
	}
	if cfg.Data.MaxHistoryDays == 0 {
		cfg.Data.MaxHistoryDays = 365
	}
	if cfg.API.RateLimitDelayMS == 0 {
		cfg.API.RateLimitDelayMS = 500
	}
	if cfg.API.RequestTimeoutSec == 0 {
		cfg.API.RequestTimeoutSec = 10
	}
	if cfg.Schedule.CheckCron == "" {
		cfg.Schedule.CheckCron = "0 */5 * * * *"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Data.MaxHistoryDays < 0 {
		return fmt.Errorf("data.max_history_days must not be negative")
	}
	for _, days := range c.Monitoring.PriceComparisonDays {
		if days <= 0 {
			return fmt.Errorf("monitoring.price_comparison_days entries must be positive")
		}
	}
	return nil
}
