package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	Search   SearchConfig   `mapstructure:"search"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	BotToken           string `mapstructure:"bot_token"`
	WatcherToken       string `mapstructure:"watcher_token"`
	NotificationChatID int64  `mapstructure:"notification_chat_id"`
	AllowedIDsRaw      string `mapstructure:"allowed_ids"`
	Debug              bool   `mapstructure:"debug"`

	// AllowedIDs is parsed from AllowedIDsRaw
	AllowedIDs []int64 `mapstructure:"-"`
}

type DatabaseConfig struct {
	URI         string        `mapstructure:"uri"`
	Name        string        `mapstructure:"name"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UseInMemory bool          `mapstructure:"use_in_memory"`
}

type SearchConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"api_key"`
	Index  string `mapstructure:"index"`
}

// Enabled reports whether the notification history index is configured
func (s SearchConfig) Enabled() bool {
	return s.Host != ""
}

type WatcherConfig struct {
	SyncInterval  time.Duration `mapstructure:"sync_interval"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Retention     time.Duration `mapstructure:"retention"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// environment variable names, kept compatible with existing deployments
var envBindings = map[string]string{
	"telegram.bot_token":            "BOT_TOKEN",
	"telegram.watcher_token":        "WATCHER_BOT_TOKEN",
	"telegram.notification_chat_id": "NOTIFICATION_CHAT_ID",
	"telegram.allowed_ids":          "ALLOWED_IDS",
	"telegram.debug":                "TELEGRAM_DEBUG",
	"database.uri":                  "MONGODB_URI",
	"database.name":                 "MONGODB_DB",
	"database.timeout":              "MONGODB_TIMEOUT",
	"database.use_in_memory":        "USE_IN_MEMORY",
	"search.host":                   "MEILI_HOST",
	"search.api_key":                "MEILI_API_KEY",
	"search.index":                  "MEILI_INDEX",
	"watcher.sync_interval":         "WATCHER_SYNC_INTERVAL",
	"watcher.sweep_interval":        "WATCHER_SWEEP_INTERVAL",
	"watcher.retention":             "WATCHER_RETENTION",
	"log.level":                     "LOG_LEVEL",
	"log.development":               "LOG_DEVELOPMENT",
}

// Load reads configuration from the environment and, if path is set, from a config file.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.watcher_token", "")
	v.SetDefault("telegram.notification_chat_id", 0)
	v.SetDefault("telegram.allowed_ids", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "monitor")
	v.SetDefault("database.timeout", 5*time.Second)
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("search.host", "")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.index", "notifications")
	v.SetDefault("watcher.sync_interval", 60*time.Second)
	v.SetDefault("watcher.sweep_interval", time.Hour)
	v.SetDefault("watcher.retention", 7*24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	ids, err := ParseIDs(cfg.Telegram.AllowedIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOWED_IDS: %w", err)
	}
	cfg.Telegram.AllowedIDs = ids

	return &cfg, nil
}

// ParseIDs parses a comma separated list of Telegram ids. Blank entries are skipped.
func ParseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) validateDatabase() error {
	if c.Database.UseInMemory {
		return nil
	}
	if c.Database.URI == "" {
		return errors.New("MONGODB_URI is not set")
	}
	if c.Database.Name == "" {
		return errors.New("MONGODB_DB is not set")
	}
	return nil
}

// ValidateWatch checks the settings the watch command needs
func (c *Config) ValidateWatch() error {
	if c.Telegram.WatcherToken == "" {
		return errors.New("WATCHER_BOT_TOKEN is not set")
	}
	if c.Telegram.BotToken == "" {
		return errors.New("BOT_TOKEN is not set")
	}
	if c.Telegram.NotificationChatID == 0 {
		return errors.New("NOTIFICATION_CHAT_ID is not set")
	}
	return c.validateDatabase()
}

// ValidateAdmin checks the settings the admin command needs
func (c *Config) ValidateAdmin() error {
	if c.Telegram.BotToken == "" {
		return errors.New("BOT_TOKEN is not set")
	}
	if len(c.Telegram.AllowedIDs) == 0 {
		return errors.New("ALLOWED_IDS is empty, nobody could use the admin bot")
	}
	return c.validateDatabase()
}
