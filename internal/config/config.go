package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultInterval = 12 * time.Hour
	defaultTimeout  = 15 * time.Second
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sources  SourcesConfig  `yaml:"sources"`
	Filter   FilterConfig   `yaml:"filter"`
	Server   ServerConfig   `yaml:"server"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures the collection cycle. Cron, when set, wins over
// Interval.
type ScheduleConfig struct {
	Interval   string `yaml:"interval"`
	Cron       string `yaml:"cron"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// ParseInterval returns the collection interval as time.Duration.
func (s ScheduleConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return defaultInterval
	}
	return d
}

// Spec returns the cron expression driving the scheduler.
func (s ScheduleConfig) Spec() string {
	if c := strings.TrimSpace(s.Cron); c != "" {
		return c
	}
	return "@every " + s.ParseInterval().String()
}

// SourcesConfig holds configuration for all platforms. Order lists the
// platforms in collection order; unknown names are ignored.
type SourcesConfig struct {
	Order   []string     `yaml:"order"`
	Timeout string       `yaml:"timeout"`
	Baidu   BasicConfig  `yaml:"baidu"`
	Weibo   WeiboConfig  `yaml:"weibo"`
	Douyin  DouyinConfig `yaml:"douyin"`
	Zhihu   ZhihuConfig  `yaml:"zhihu"`
	Cailian BasicConfig  `yaml:"cailian"`
	RSS     RSSConfig    `yaml:"rss"`
}

// ParseTimeout returns the per request timeout.
func (s SourcesConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

// BasicConfig is shared by platforms that only need an endpoint.
type BasicConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// WeiboConfig for the Weibo hot search list.
type WeiboConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Cookie  string `yaml:"cookie"`
}

// DouyinConfig for the Douyin billboard.
type DouyinConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	UserAgent string `yaml:"user_agent"`
	Cookie    string `yaml:"cookie"`
}

// ZhihuConfig for the Zhihu hot list.
type ZhihuConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Endpoints []string `yaml:"endpoints"`
	Limit     int      `yaml:"limit"`
}

// RSSConfig for generic feeds.
type RSSConfig struct {
	Enabled bool       `yaml:"enabled"`
	Feeds   []FeedItem `yaml:"feeds"`
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FilterConfig configures content filtering.
type FilterConfig struct {
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int `yaml:"port"`
	PageSize int `yaml:"page_size"`
}

// AlertsConfig configures digest destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./data/hot_items.db"},
		Schedule: ScheduleConfig{Interval: "12h", RunOnStart: true},
		Sources: SourcesConfig{
			Order:   []string{"zhihu", "weibo", "douyin", "baidu", "cailian", "rss"},
			Timeout: "15s",
			Baidu:   BasicConfig{Enabled: true},
			Weibo:   WeiboConfig{Enabled: true},
			Douyin:  DouyinConfig{Enabled: true},
			Zhihu:   ZhihuConfig{Enabled: true, Limit: 50},
			Cailian: BasicConfig{Enabled: true},
			RSS:     RSSConfig{Enabled: false},
		},
		Server: ServerConfig{Port: 8080, PageSize: 50},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOTBOARD_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HOTBOARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("WEIBO_COOKIE"); v != "" {
		cfg.Sources.Weibo.Cookie = v
	}
	if v := os.Getenv("DOUYIN_COOKIE"); v != "" {
		cfg.Sources.Douyin.Cookie = v
	}
	if v := os.Getenv("DOUYIN_UA"); v != "" {
		cfg.Sources.Douyin.UserAgent = v
	}
	if v := os.Getenv("DOUYIN_HOT_URL"); v != "" {
		cfg.Sources.Douyin.URL = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}
