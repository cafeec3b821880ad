package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Watchlist struct {
		Tickers []string `yaml:"tickers"`
	} `yaml:"watchlist"`
	Thresholds struct {
		UptrendMin              float64 `yaml:"uptrend_min"`
		DowntrendMax            float64 `yaml:"downtrend_max"`
		VolumeAnomalyMultiplier float64 `yaml:"volume_anomaly_multiplier"`
		TopMoversCount          int     `yaml:"top_movers_count"`
	} `yaml:"thresholds"`
	History struct {
		BackfillDays int `yaml:"backfill_days"`
		SeriesLimit  int `yaml:"series_limit"`
	} `yaml:"history"`
	Schedule struct {
		DailyCron string   `yaml:"daily_cron"`
		Timezone  string   `yaml:"timezone"`
		Holidays  []string `yaml:"holidays"` // YYYY-MM-DD market holidays
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Provider struct {
		Name   string `yaml:"name"` // "yahoo" or "alphavantage"
		APIKey string `yaml:"api_key"`
	} `yaml:"provider"`
	Reports struct {
		Dir string `yaml:"dir"`
	} `yaml:"reports"`
	Email struct {
		Enabled    bool     `yaml:"enabled"`
		SMTPHost   string   `yaml:"smtp_host"`
		SMTPPort   int      `yaml:"smtp_port"`
		Username   string   `yaml:"username"`
		Password   string   `yaml:"password"`
		From       string   `yaml:"from"`
		Recipients []string `yaml:"recipients"`
	} `yaml:"email"`
	Twitter struct {
		Enabled     bool   `yaml:"enabled"`
		BearerToken string `yaml:"bearer_token"`
		MaxChars    int    `yaml:"max_chars"`
	} `yaml:"twitter"`
	Health struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"health"`
	LogLevel string `yaml:"log_level"`
	DryRun   bool   `yaml:"dry_run"`
	Proxy    string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
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

	// Environment variable overrides
	if v := os.Getenv("TICKERS"); v != "" {
		cfg.Watchlist.Tickers = splitList(v)
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Email.SMTPPort = p
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.Email.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Email.Password = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Email.From = v
	}
	if v := os.Getenv("EMAIL_RECIPIENTS"); v != "" {
		cfg.Email.Recipients = splitList(v)
	}
	if v := os.Getenv("TWITTER_BEARER_TOKEN"); v != "" {
		cfg.Twitter.BearerToken = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v, ok := envBool("ENABLE_EMAIL"); ok {
		cfg.Email.Enabled = v
	}
	if v, ok := envBool("ENABLE_TWITTER"); ok {
		cfg.Twitter.Enabled = v
	}
	if v, ok := envBool("DRY_RUN"); ok {
		cfg.DryRun = v
	}

	// Defaults
	if cfg.Thresholds.UptrendMin == 0 {
		cfg.Thresholds.UptrendMin = 62.0
	}
	if cfg.Thresholds.DowntrendMax == 0 {
		cfg.Thresholds.DowntrendMax = 38.0
	}
	if cfg.Thresholds.VolumeAnomalyMultiplier == 0 {
		cfg.Thresholds.VolumeAnomalyMultiplier = 2.0
	}
	if cfg.Thresholds.TopMoversCount == 0 {
		cfg.Thresholds.TopMoversCount = 5
	}
	if cfg.History.BackfillDays == 0 {
		cfg.History.BackfillDays = 365
	}
	if cfg.History.SeriesLimit == 0 {
		cfg.History.SeriesLimit = 300
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 30 17 * * 1-5" // weekdays 17:30, after close
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "America/New_York"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/trendwatch.db"
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "yahoo"
	}
	if cfg.Reports.Dir == "" {
		cfg.Reports.Dir = "reports"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Twitter.MaxChars == 0 {
		cfg.Twitter.MaxChars = 280
	}
	if cfg.Health.Host == "" {
		cfg.Health.Host = "0.0.0.0"
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 8080
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Watchlist.Tickers) == 0 {
		return fmt.Errorf("watchlist.tickers is required")
	}
	if c.Thresholds.DowntrendMax >= c.Thresholds.UptrendMin {
		return fmt.Errorf("thresholds: downtrend_max (%.1f) must be below uptrend_min (%.1f)",
			c.Thresholds.DowntrendMax, c.Thresholds.UptrendMin)
	}
	if c.Thresholds.VolumeAnomalyMultiplier <= 0 {
		return fmt.Errorf("thresholds.volume_anomaly_multiplier must be positive")
	}
	switch c.Provider.Name {
	case "yahoo":
	case "alphavantage":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key is required for alphavantage")
		}
	default:
		return fmt.Errorf("provider.name must be yahoo or alphavantage, got %q", c.Provider.Name)
	}
	if c.Email.Enabled {
		if c.Email.SMTPHost == "" || c.Email.From == "" || len(c.Email.Recipients) == 0 {
			return fmt.Errorf("email enabled but smtp_host, from, or recipients missing")
		}
	}
	if c.Twitter.Enabled && c.Twitter.BearerToken == "" {
		return fmt.Errorf("twitter enabled but bearer_token missing")
	}
	if c.Twitter.MaxChars <= 0 {
		return fmt.Errorf("twitter.max_chars must be positive, got %d", c.Twitter.MaxChars)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envBool(key string) (value, set bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}
