package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conduit/pkg/storage"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

// TestGetEnvTyped tests the typed helpers
func TestGetEnvTyped(t *testing.T) {
	t.Setenv("TEST_BOOL_TRUE", "TRUE")
	t.Setenv("TEST_BOOL_ONE", "1")
	t.Setenv("TEST_BOOL_NO", "no")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "forty")
	t.Setenv("TEST_DUR", "1m30s")
	t.Setenv("TEST_DUR_BAD", "soon")

	assert.True(t, getEnvBool("TEST_BOOL_TRUE", false))
	assert.True(t, getEnvBool("TEST_BOOL_ONE", false))
	assert.False(t, getEnvBool("TEST_BOOL_NO", true))
	assert.True(t, getEnvBool("TEST_BOOL_UNSET", true))

	assert.Equal(t, 42, getEnvInt("TEST_INT", 0))
	assert.Equal(t, 7, getEnvInt("TEST_INT_BAD", 7))

	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DUR", 0))
	assert.Equal(t, time.Second, getEnvDuration("TEST_DUR_BAD", time.Second))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"warning", logrus.WarnLevel},
		{" error ", logrus.ErrorLevel},
		{"trace", logrus.TraceLevel},
		{"loud", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Len(t, cfg.Plugins.SearchPaths, 1)
	assert.True(t, cfg.Plugins.Watch)
	assert.Equal(t, 2*time.Second, cfg.Plugins.WatchDebounce)
	assert.Equal(t, "127.0.0.1:8086", cfg.Server.Addr())
	assert.Equal(t, storage.TypeFile, cfg.Storage.Type)
	assert.Equal(t, logrus.InfoLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("CONDUIT_PLUGIN_PATH", "/a"+string(os.PathListSeparator)+"/b")
	t.Setenv("CONDUIT_UI", "gtk")
	t.Setenv("CONDUIT_WATCH", "false")
	t.Setenv("CONDUIT_HTTP_PORT", "9999")
	t.Setenv("CONDUIT_STORAGE_TYPE", "redis")
	t.Setenv("CONDUIT_REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("CONDUIT_REDIS_DB", "2")
	t.Setenv("CONDUIT_LOG_LEVEL", "debug")
	t.Setenv("CONDUIT_LOG_FORMAT", "json")
	t.Setenv("CONDUIT_AUDIT_ENABLED", "true")
	t.Setenv("CONDUIT_AUDIT_DIR", "/var/lib/conduit/audit")
	t.Setenv("CONDUIT_WEBHOOK_URL", "https://hooks.example.com/conduit")
	t.Setenv("CONDUIT_WEBHOOK_EVENTS", "plugin.load, plugin.unload")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b"}, cfg.Plugins.SearchPaths)
	assert.Equal(t, "gtk", cfg.Plugins.UI)
	assert.False(t, cfg.Plugins.Watch)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, storage.TypeRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Storage.RedisURL)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
	assert.Equal(t, logrus.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "/var/lib/conduit/audit", cfg.Audit.Dir)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, "https://hooks.example.com/conduit", cfg.Webhooks[0].URL)
	assert.Equal(t, []string{"plugin.load", "plugin.unload"}, cfg.Webhooks[0].Events)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conduit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plugins:
  search_paths: [/opt/conduit]
  watch_debounce: 500ms
server:
  port: "7000"
storage:
  type: sqlite
  path: /tmp/state.db
log_level: warn
webhooks:
  - url: http://localhost:9000/hook
    secret: abc
`), 0o644))
	t.Setenv("CONDUIT_CONFIG", path)
	t.Setenv("CONDUIT_HTTP_PORT", "7001")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"/opt/conduit"}, cfg.Plugins.SearchPaths)
	assert.Equal(t, 500*time.Millisecond, cfg.Plugins.WatchDebounce)
	assert.Equal(t, 64, cfg.Plugins.QueueDepth, "unset fields keep defaults")
	assert.Equal(t, "7001", cfg.Server.Port, "env wins over the file")
	assert.Equal(t, storage.TypeSQLite, cfg.Storage.Type)
	assert.Equal(t, "/tmp/state.db", cfg.Storage.SQLitePath)
	assert.Equal(t, logrus.WarnLevel, cfg.Observability.LogLevel)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, "abc", cfg.Webhooks[0].Secret)
}

func TestLoadConfig_FileErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		t.Setenv("CONDUIT_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := LoadConfig()
		assert.Error(t, err)
	})
	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("plugins: [unterminated"), 0o644))
		t.Setenv("CONDUIT_CONFIG", path)
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "no search paths", mutate: func(c *Config) { c.Plugins.SearchPaths = nil }, wantErr: true},
		{name: "negative debounce", mutate: func(c *Config) { c.Plugins.WatchDebounce = -time.Second }, wantErr: true},
		{name: "zero queue", mutate: func(c *Config) { c.Plugins.QueueDepth = 0 }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = "http" }, wantErr: true},
		{name: "bad port ignored when disabled", mutate: func(c *Config) {
			c.Server.Enabled = false
			c.Server.Port = ""
		}},
		{name: "postgres without url", mutate: func(c *Config) { c.Storage.Type = storage.TypePostgres }, wantErr: true},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Type = "tape" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Observability.LogFormat = "xml" }, wantErr: true},
		{name: "otel without endpoint", mutate: func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, wantErr: true},
		{name: "otel complete", mutate: func(c *Config) { c.Observability.OTelEnabled = true }},
		{name: "otel sample ratio above one", mutate: func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelSampleRatio = 1.5
		}, wantErr: true},
		{name: "webhook without url", mutate: func(c *Config) { c.Webhooks = []WebhookConfig{{Secret: "x"}} }, wantErr: true},
		{name: "audit without dir", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.Dir = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
