package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// ChannelsConfig lists chat ids the bot reports to.
type ChannelsConfig struct {
	// LogChatID receives aggregated event logs and system alerts.
	LogChatID int64 `yaml:"log_chat_id" envconfig:"LOG_CHAT_ID"`
}

// SteamConfig configures the Steam Web API collectors.
type SteamConfig struct {
	APIKey              string `yaml:"api_key" envconfig:"STEAM_API_KEY"`
	AppID               int    `yaml:"app_id" envconfig:"STEAM_APP_ID"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds" envconfig:"STEAM_POLL_INTERVAL_SECONDS"`
}

// CacheConfig points at the shared JSON stats cache file.
type CacheConfig struct {
	Path string `yaml:"path" envconfig:"CACHE_PATH"`
}

// LocaleConfig locates translation files.
type LocaleConfig struct {
	Dir         string `yaml:"dir" envconfig:"LOCALE_DIR"`
	DefaultLang string `yaml:"default_lang" envconfig:"LOCALE_DEFAULT_LANG"`
}

// SessionsConfig tunes the in-memory session store.
type SessionsConfig struct {
	LifetimeMinutes      int `yaml:"lifetime_minutes" envconfig:"SESSION_LIFETIME_MINUTES"`
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes" envconfig:"SESSION_SWEEP_INTERVAL_MINUTES"`
	// AskTimeoutSeconds bounds ask/listen waits in multi-step conversations.
	AskTimeoutSeconds int `yaml:"ask_timeout_seconds" envconfig:"SESSION_ASK_TIMEOUT_SECONDS"`
}

// LogQueueConfig tunes the chat log forwarding queue.
type LogQueueConfig struct {
	DrainIntervalSeconds int `yaml:"drain_interval_seconds" envconfig:"LOGQUEUE_DRAIN_INTERVAL_SECONDS"`
}

// StatsConfig tunes periodic counter reporting.
type StatsConfig struct {
	ReportIntervalHours int `yaml:"report_interval_hours" envconfig:"STATS_REPORT_INTERVAL_HOURS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// RateLimitConfig holds settings for per-user rate limiting.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates all application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Steam     SteamConfig     `yaml:"steam"`
	Cache     CacheConfig     `yaml:"cache"`
	Locale    LocaleConfig    `yaml:"locale"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	LogQueue  LogQueueConfig  `yaml:"log_queue"`
	Stats     StatsConfig     `yaml:"stats"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Steam.AppID <= 0 {
		cfg.Steam.AppID = 730
	}
	if cfg.Steam.PollIntervalSeconds <= 0 {
		cfg.Steam.PollIntervalSeconds = 45
	}
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = "data/stats_cache.json"
	}
	if strings.TrimSpace(cfg.Locale.Dir) == "" {
		cfg.Locale.Dir = "locales"
	}
	if strings.TrimSpace(cfg.Locale.DefaultLang) == "" {
		cfg.Locale.DefaultLang = "en"
	}
	if cfg.Sessions.LifetimeMinutes <= 0 {
		cfg.Sessions.LifetimeMinutes = 60
	}
	if cfg.Sessions.SweepIntervalMinutes <= 0 {
		cfg.Sessions.SweepIntervalMinutes = 10
	}
	if cfg.Sessions.AskTimeoutSeconds <= 0 {
		cfg.Sessions.AskTimeoutSeconds = 300
	}
	if cfg.LogQueue.DrainIntervalSeconds <= 0 {
		cfg.LogQueue.DrainIntervalSeconds = 10
	}
	if cfg.Stats.ReportIntervalHours <= 0 {
		cfg.Stats.ReportIntervalHours = 8
	}

	return nil
}

// SessionLifetime returns the idle lifetime as a duration.
func (c *Config) SessionLifetime() time.Duration {
	return time.Duration(c.Sessions.LifetimeMinutes) * time.Minute
}

// AskTimeout returns the ask/listen timeout as a duration.
func (c *Config) AskTimeout() time.Duration {
	return time.Duration(c.Sessions.AskTimeoutSeconds) * time.Second
}
