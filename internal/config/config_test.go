package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp isolates Load from any config.yml or .env in the package dir
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
		viper.Reset()
		cfg = nil
	})
	viper.Reset()
	return dir
}

func TestLoad_WithDefaults(t *testing.T) {
	chdirTemp(t)

	require.NoError(t, Load())

	c := Get()
	assert.Equal(t, 10, c.Source.TimeoutSeconds)
	assert.Equal(t, 10*time.Second, c.Source.Timeout())
	assert.Equal(t, 1, c.Source.RetryAttempts)
	assert.Equal(t, 8, c.Xtream.SeriesInfoConcurrency)
	assert.Equal(t, 14, c.Xtream.NewWindowDays)
	assert.True(t, c.Fallback.Enabled)
	assert.Equal(t, "en", c.Filter.Locale)
	assert.Equal(t, "sqlite", c.Store.Driver)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, 8080, c.API.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("IPTVPLAYER_SOURCE_TIMEOUT_SECONDS", "3")
	t.Setenv("IPTVPLAYER_FALLBACK_ENABLED", "false")
	t.Setenv("API_PORT", "9090")

	require.NoError(t, Load())

	c := Get()
	assert.Equal(t, 3, c.Source.TimeoutSeconds)
	assert.False(t, c.Fallback.Enabled)
	assert.Equal(t, 9090, c.API.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	content := `
xtream:
  series_info_concurrency: 2
filter:
  locale: fr
  group_title:
    exclude_patterns:
      - "(?i)adult"
store:
  driver: postgres
  dsn: postgres://u:p@localhost:5432/iptv
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644))

	require.NoError(t, Load())

	c := Get()
	assert.Equal(t, 2, c.Xtream.SeriesInfoConcurrency)
	assert.Equal(t, "fr", c.Filter.Locale)
	assert.Equal(t, []string{"(?i)adult"}, c.Filter.GroupTitle.ExcludePatterns)
	assert.Equal(t, "postgres", c.Store.Driver)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IPTVPLAYER_XTREAM_NEW_WINDOW_DAYS=30\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("IPTVPLAYER_XTREAM_NEW_WINDOW_DAYS") })

	require.NoError(t, Load())
	assert.Equal(t, 30, Get().Xtream.NewWindowDays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level must be one of"},
		{"bad store log level", func(c *Config) { c.Logging.Store.Level = "x" }, "logging.store.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"zero timeout", func(c *Config) { c.Source.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"zero concurrency", func(c *Config) { c.Xtream.SeriesInfoConcurrency = 0 }, "series_info_concurrency"},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }, "store.dsn"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"bad redis url", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.RedisURL = "http://localhost"
		}, "cache.redis_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			err := c.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestLogLevels(t *testing.T) {
	c := &Config{Logging: LoggingConfig{Level: "warn", App: LogLevelConfig{Level: "debug"}}}
	assert.Equal(t, "debug", c.GetAppLogLevel())
	assert.Equal(t, "warn", c.GetStoreLogLevel())

	empty := &Config{}
	assert.Equal(t, "info", empty.GetAppLogLevel())
	assert.Equal(t, "info", empty.GetStoreLogLevel())
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "player.yaml")
	content := `
api:
  port: 7070
  allowed_origins:
    - http://player.local
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	SetFile(path)
	t.Cleanup(func() { SetFile("") })

	require.NoError(t, Load())
	assert.Equal(t, 7070, Get().API.Port)
	assert.Equal(t, []string{"http://player.local"}, Get().API.AllowedOrigins)

	SetFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, Load())
}
