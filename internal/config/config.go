package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Xtream   XtreamConfig   `mapstructure:"xtream"`
	Fallback FallbackConfig `mapstructure:"fallback"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	API      APIConfig      `mapstructure:"api"`
}

// SourceConfig holds the upstream HTTP settings shared by Xtream and M3U fetches
type SourceConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	RetryAttempts  int    `mapstructure:"retry_attempts"`
	MaxPlaylistMB  int64  `mapstructure:"max_playlist_mb"`
}

// Timeout returns the per-request timeout
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// XtreamConfig holds Xtream Codes client settings
type XtreamConfig struct {
	SeriesInfoConcurrency int `mapstructure:"series_info_concurrency"`
	NewWindowDays         int `mapstructure:"new_window_days"`
}

// FallbackConfig controls the sample dataset served when a source fails
type FallbackConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DatasetPath string `mapstructure:"dataset_path"`
}

// FilterConfig holds sort locale and group rules
type FilterConfig struct {
	Locale     string    `mapstructure:"locale"`
	GroupTitle FilterDef `mapstructure:"group_title"`
	Name       FilterDef `mapstructure:"name"`
}

// FilterDef represents a filter definition
type FilterDef struct {
	IncludePatterns []string `mapstructure:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
}

// StoreConfig holds account store settings
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig holds upstream response cache settings
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	RedisURL   string `mapstructure:"redis_url"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// TTL returns the cache entry lifetime
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string         `mapstructure:"level"`
	Format string         `mapstructure:"format"`
	App    LogLevelConfig `mapstructure:"app"`
	Store  LogLevelConfig `mapstructure:"store"`
}

// LogLevelConfig represents log level configuration for a specific component
type LogLevelConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// APIConfig holds API server settings
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var (
	cfg        *Config
	configFile string
)

// SetFile points Load at an explicit config file instead of the search path
func SetFile(path string) {
	configFile = path
}

// bindEnvWithAlternatives binds a viper key to environment variables with alternative names
func bindEnvWithAlternatives(key string, alternatives ...string) {
	viper.BindEnv(key)
	for _, alt := range alternatives {
		if value := os.Getenv(alt); value != "" {
			viper.Set(key, value)
			break
		}
	}
}

// Load reads configuration from .env, the config file and environment variables
func Load() error {
	// A missing .env file is the common case
	_ = godotenv.Load()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/iptvplayer")
	}

	setDefaults()

	viper.SetEnvPrefix("IPTVPLAYER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("source.timeout_seconds")
	viper.BindEnv("source.user_agent")
	viper.BindEnv("source.retry_attempts")
	viper.BindEnv("source.max_playlist_mb")
	viper.BindEnv("xtream.series_info_concurrency")
	viper.BindEnv("xtream.new_window_days")
	viper.BindEnv("fallback.enabled")
	viper.BindEnv("fallback.dataset_path")
	viper.BindEnv("filter.locale")

	viper.BindEnv("store.driver")
	viper.BindEnv("store.path")
	bindEnvWithAlternatives("store.dsn", "DATABASE_URL")

	viper.BindEnv("cache.enabled")
	bindEnvWithAlternatives("cache.redis_url", "REDIS_URL")
	viper.BindEnv("cache.ttl_seconds")

	bindEnvWithAlternatives("logging.level", "LOG_LEVEL")
	viper.BindEnv("logging.format")
	viper.BindEnv("logging.app.level")
	viper.BindEnv("logging.store.level")

	bindEnvWithAlternatives("api.port", "API_PORT")
	viper.BindEnv("api.allowed_origins")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := loaded.validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg = loaded
	return nil
}

// Get returns the current configuration, or the defaults when Load was never called
func Get() *Config {
	if cfg == nil {
		d := Defaults()
		return &d
	}
	return cfg
}

// Set replaces the current configuration (primarily for testing)
func Set(c *Config) {
	cfg = c
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			TimeoutSeconds: 10,
			UserAgent:      "iptvplayer/1.0",
			RetryAttempts:  1,
			MaxPlaylistMB:  200,
		},
		Xtream: XtreamConfig{
			SeriesInfoConcurrency: 8,
			NewWindowDays:         14,
		},
		Fallback: FallbackConfig{Enabled: true},
		Filter:   FilterConfig{Locale: "en"},
		Store:    StoreConfig{Driver: "sqlite", Path: "./iptvplayer.db"},
		Cache:    CacheConfig{TTLSeconds: 300},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		API:      APIConfig{Port: 8080},
	}
}

func setDefaults() {
	d := Defaults()

	viper.SetDefault("source.timeout_seconds", d.Source.TimeoutSeconds)
	viper.SetDefault("source.user_agent", d.Source.UserAgent)
	viper.SetDefault("source.retry_attempts", d.Source.RetryAttempts)
	viper.SetDefault("source.max_playlist_mb", d.Source.MaxPlaylistMB)

	viper.SetDefault("xtream.series_info_concurrency", d.Xtream.SeriesInfoConcurrency)
	viper.SetDefault("xtream.new_window_days", d.Xtream.NewWindowDays)

	viper.SetDefault("fallback.enabled", d.Fallback.Enabled)
	viper.SetDefault("filter.locale", d.Filter.Locale)

	viper.SetDefault("store.driver", d.Store.Driver)
	viper.SetDefault("store.path", d.Store.Path)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)

	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("logging.format", d.Logging.Format)

	viper.SetDefault("api.port", d.API.Port)
}

func (c *Config) validate() error {
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be positive")
	}
	if c.Source.RetryAttempts < 1 {
		return fmt.Errorf("source.retry_attempts must be at least 1")
	}
	if c.Xtream.SeriesInfoConcurrency < 1 {
		return fmt.Errorf("xtream.series_info_concurrency must be at least 1")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be one of: sqlite, postgres")
	}

	if c.Cache.Enabled && c.Cache.RedisURL != "" && !strings.HasPrefix(c.Cache.RedisURL, "redis://") && !strings.HasPrefix(c.Cache.RedisURL, "rediss://") {
		return fmt.Errorf("cache.redis_url must use the redis:// or rediss:// scheme")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats := map[string]bool{"json": true, "text": true}

	if c.Logging.Format != "" && !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.App.Level != "" && !validLevels[c.Logging.App.Level] {
		return fmt.Errorf("logging.app.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Store.Level != "" && !validLevels[c.Logging.Store.Level] {
		return fmt.Errorf("logging.store.level must be one of: debug, info, warn, error")
	}

	return nil
}

// GetAppLogLevel returns the log level for application logging
// Priority: logging.app.level → logging.level → "info"
func (c *Config) GetAppLogLevel() string {
	if c.Logging.App.Level != "" {
		return c.Logging.App.Level
	}
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	return "info"
}

// GetStoreLogLevel returns the log level for account store logging
// Priority: logging.store.level → logging.level → "info"
func (c *Config) GetStoreLogLevel() string {
	if c.Logging.Store.Level != "" {
		return c.Logging.Store.Level
	}
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	return "info"
}
