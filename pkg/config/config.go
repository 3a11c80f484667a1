package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/conduit/pkg/storage"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	// Plugin host configuration
	Plugins PluginsConfig `yaml:"plugins"`

	// Debug API configuration
	Server ServerConfig `yaml:"server"`

	// Saved plugin list backend
	Storage storage.Config `yaml:"-"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`

	// Lifecycle audit trail
	Audit AuditConfig `yaml:"audit"`

	// Lifecycle event receivers
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig is one lifecycle event receiver
type WebhookConfig struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
	// Event types to deliver; empty means all.
	Events []string `yaml:"events"`
}

// AuditConfig holds the lifecycle audit trail settings
type AuditConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Dir      string `yaml:"dir"`
	MaxSize  int64  `yaml:"max_size"`
	MaxFiles int    `yaml:"max_files"`
}

// PluginsConfig holds plugin host settings
type PluginsConfig struct {
	// Directories probed for modules, in order.
	SearchPaths []string `yaml:"search_paths"`
	// UI requirement string modules are checked against.
	UI string `yaml:"ui"`
	// Probe files as they appear in the search paths.
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
	// Cron spec for the account keepalive check.
	KeepaliveSchedule string `yaml:"keepalive_schedule"`
	// Control loop queue depth.
	QueueDepth int `yaml:"queue_depth"`
}

// ServerConfig holds debug API server configuration
type ServerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// Requests per minute per client under /api/v1. Zero disables.
	RateLimit      int `yaml:"rate_limit"`
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return net.JoinHostPort(s.Host, s.Port) }

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  logrus.Level `yaml:"-"`
	LogFormat string       `yaml:"log_format"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
	// Share of new traces kept, in (0, 1]; zero keeps everything.
	OTelSampleRatio float64 `yaml:"otel_sample_ratio"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Plugins: PluginsConfig{
			SearchPaths:       []string{defaultPluginDir()},
			Watch:             true,
			WatchDebounce:     2 * time.Second,
			KeepaliveSchedule: "@every 5s",
			QueueDepth:        64,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "127.0.0.1",
			Port:            "8086",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: storage.DefaultConfig(),
		Observability: ObservabilityConfig{
			LogLevel:           logrus.InfoLevel,
			LogFormat:          "text",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "conduit",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
		Audit: AuditConfig{
			Dir:      "audit",
			MaxSize:  10 * 1024 * 1024,
			MaxFiles: 5,
		},
	}
}

// LoadConfig loads configuration from an optional YAML file named by
// CONDUIT_CONFIG, then applies environment variables on top.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(getEnv("CONDUIT_CONFIG", ""))
}

// LoadConfigFile is LoadConfig with an explicit file path. An empty path
// skips the file.
func LoadConfigFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	loadPluginsConfig(&cfg.Plugins)
	loadServerConfig(&cfg.Server)
	loadStorageConfig(&cfg.Storage)
	loadObservabilityConfig(&cfg.Observability)
	loadAuditConfig(&cfg.Audit)
	cfg.Webhooks = loadWebhookConfig(cfg.Webhooks)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// fileConfig mirrors the YAML layout; fields that need parsing are strings.
type fileConfig struct {
	Plugins       *PluginsConfig       `yaml:"plugins"`
	Server        *ServerConfig        `yaml:"server"`
	Observability *ObservabilityConfig `yaml:"observability"`
	Audit         *AuditConfig         `yaml:"audit"`
	Webhooks      []WebhookConfig      `yaml:"webhooks"`
	LogLevel      string               `yaml:"log_level"`
	Storage       *struct {
		Type      string `yaml:"type"`
		Namespace string `yaml:"namespace"`
		Path      string `yaml:"path"`
		URL       string `yaml:"url"`
		Bucket    string `yaml:"bucket"`
		Prefix    string `yaml:"prefix"`
		Region    string `yaml:"region"`
		Endpoint  string `yaml:"endpoint"`
	} `yaml:"storage"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := fileConfig{
		Plugins:       &c.Plugins,
		Server:        &c.Server,
		Observability: &c.Observability,
		Audit:         &c.Audit,
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if len(fc.Webhooks) > 0 {
		c.Webhooks = fc.Webhooks
	}
	if fc.LogLevel != "" {
		c.Observability.LogLevel = parseLogLevel(fc.LogLevel)
	}
	if s := fc.Storage; s != nil {
		if s.Type != "" {
			c.Storage.Type = s.Type
		}
		if s.Namespace != "" {
			c.Storage.Namespace = s.Namespace
		}
		switch c.Storage.Type {
		case storage.TypeFile:
			setIf(&c.Storage.FilePath, s.Path)
		case storage.TypeSQLite:
			setIf(&c.Storage.SQLitePath, s.Path)
		case storage.TypePostgres:
			setIf(&c.Storage.PostgresURL, s.URL)
		case storage.TypeRedis:
			setIf(&c.Storage.RedisURL, s.URL)
		case storage.TypeS3:
			setIf(&c.Storage.S3Bucket, s.Bucket)
			setIf(&c.Storage.S3Prefix, s.Prefix)
			setIf(&c.Storage.S3Region, s.Region)
			setIf(&c.Storage.S3Endpoint, s.Endpoint)
		}
	}
	return nil
}

// loadPluginsConfig loads plugin host configuration from environment
func loadPluginsConfig(cfg *PluginsConfig) {
	if paths := getEnv("CONDUIT_PLUGIN_PATH", ""); paths != "" {
		cfg.SearchPaths = filepath.SplitList(paths)
	}
	cfg.UI = getEnv("CONDUIT_UI", cfg.UI)
	cfg.Watch = getEnvBool("CONDUIT_WATCH", cfg.Watch)
	cfg.WatchDebounce = getEnvDuration("CONDUIT_WATCH_DEBOUNCE", cfg.WatchDebounce)
	cfg.KeepaliveSchedule = getEnv("CONDUIT_KEEPALIVE_SCHEDULE", cfg.KeepaliveSchedule)
	cfg.QueueDepth = getEnvInt("CONDUIT_QUEUE_DEPTH", cfg.QueueDepth)
}

// loadServerConfig loads server configuration from environment
func loadServerConfig(cfg *ServerConfig) {
	cfg.Enabled = getEnvBool("CONDUIT_HTTP_ENABLED", cfg.Enabled)
	cfg.Host = getEnv("CONDUIT_HTTP_HOST", cfg.Host)
	cfg.Port = getEnv("CONDUIT_HTTP_PORT", cfg.Port)
	cfg.ReadTimeout = getEnvDuration("CONDUIT_HTTP_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvDuration("CONDUIT_HTTP_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = getEnvDuration("CONDUIT_HTTP_IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.ShutdownTimeout = getEnvDuration("CONDUIT_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.RateLimit = getEnvInt("CONDUIT_HTTP_RATE_LIMIT", cfg.RateLimit)
	cfg.RateLimitBurst = getEnvInt("CONDUIT_HTTP_RATE_LIMIT_BURST", cfg.RateLimitBurst)
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig(cfg *storage.Config) {
	cfg.Type = getEnv("CONDUIT_STORAGE_TYPE", cfg.Type)
	cfg.Namespace = getEnv("CONDUIT_STORAGE_NAMESPACE", cfg.Namespace)

	// File config
	cfg.FilePath = getEnv("CONDUIT_STATE_FILE", cfg.FilePath)

	// SQL config
	cfg.PostgresURL = getEnv("CONDUIT_POSTGRES_URL", cfg.PostgresURL)
	if maxConns := getEnvInt("CONDUIT_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("CONDUIT_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("CONDUIT_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}
	cfg.SQLitePath = getEnv("CONDUIT_SQLITE_PATH", cfg.SQLitePath)

	// Redis config
	cfg.RedisURL = getEnv("CONDUIT_REDIS_URL", cfg.RedisURL)
	cfg.RedisPassword = getEnv("CONDUIT_REDIS_PASSWORD", cfg.RedisPassword)
	if redisDB := getEnvInt("CONDUIT_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("CONDUIT_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("CONDUIT_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// S3 config
	cfg.S3Endpoint = getEnv("CONDUIT_S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3Region = getEnv("CONDUIT_S3_REGION", cfg.S3Region)
	cfg.S3Bucket = getEnv("CONDUIT_S3_BUCKET", cfg.S3Bucket)
	cfg.S3Prefix = getEnv("CONDUIT_S3_PREFIX", cfg.S3Prefix)
	cfg.S3AccessKey = getEnv("CONDUIT_S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = getEnv("CONDUIT_S3_SECRET_KEY", cfg.S3SecretKey)
	cfg.S3UsePathStyle = getEnvBool("CONDUIT_S3_USE_PATH_STYLE", cfg.S3UsePathStyle)
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig(cfg *ObservabilityConfig) {
	if level := getEnv("CONDUIT_LOG_LEVEL", ""); level != "" {
		cfg.LogLevel = parseLogLevel(level)
	}
	cfg.LogFormat = getEnv("CONDUIT_LOG_FORMAT", cfg.LogFormat)
	cfg.MetricsEnabled = getEnvBool("CONDUIT_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.OTelEnabled = getEnvBool("CONDUIT_OTEL_ENABLED", cfg.OTelEnabled)
	cfg.OTelEndpoint = getEnv("CONDUIT_OTEL_ENDPOINT", cfg.OTelEndpoint)
	cfg.OTelServiceName = getEnv("CONDUIT_OTEL_SERVICE_NAME", cfg.OTelServiceName)
	cfg.OTelServiceVersion = getEnv("CONDUIT_OTEL_SERVICE_VERSION", cfg.OTelServiceVersion)
	cfg.OTelInsecure = getEnvBool("CONDUIT_OTEL_INSECURE", cfg.OTelInsecure)
	cfg.OTelSampleRatio = getEnvFloat("CONDUIT_OTEL_SAMPLE_RATIO", cfg.OTelSampleRatio)
}

// loadAuditConfig loads audit trail configuration from environment
func loadAuditConfig(cfg *AuditConfig) {
	cfg.Enabled = getEnvBool("CONDUIT_AUDIT_ENABLED", cfg.Enabled)
	cfg.Dir = getEnv("CONDUIT_AUDIT_DIR", cfg.Dir)
	if size := getEnvInt("CONDUIT_AUDIT_MAX_SIZE", 0); size > 0 {
		cfg.MaxSize = int64(size)
	}
	if files := getEnvInt("CONDUIT_AUDIT_MAX_FILES", 0); files > 0 {
		cfg.MaxFiles = files
	}
}

// loadWebhookConfig appends the receiver named by CONDUIT_WEBHOOK_URL
func loadWebhookConfig(hooks []WebhookConfig) []WebhookConfig {
	url := getEnv("CONDUIT_WEBHOOK_URL", "")
	if url == "" {
		return hooks
	}
	hook := WebhookConfig{URL: url, Secret: getEnv("CONDUIT_WEBHOOK_SECRET", "")}
	if events := getEnv("CONDUIT_WEBHOOK_EVENTS", ""); events != "" {
		for _, e := range strings.Split(events, ",") {
			if e = strings.TrimSpace(e); e != "" {
				hook.Events = append(hook.Events, e)
			}
		}
	}
	return append(hooks, hook)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Plugins.SearchPaths) == 0 {
		return fmt.Errorf("%w: at least one plugin search path is required", ErrInvalidConfig)
	}
	if c.Plugins.WatchDebounce < 0 {
		return fmt.Errorf("%w: watch debounce must not be negative", ErrInvalidConfig)
	}
	if c.Plugins.QueueDepth <= 0 {
		return fmt.Errorf("%w: queue depth must be positive", ErrInvalidConfig)
	}

	if c.Server.Enabled {
		port, err := strconv.Atoi(c.Server.Port)
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("%w: invalid server port %q", ErrInvalidConfig, c.Server.Port)
		}
		if c.Server.RateLimit < 0 || c.Server.RateLimitBurst < 0 {
			return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
		}
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format must be text or json, got %q", ErrInvalidConfig, c.Observability.LogFormat)
	}

	if c.Audit.Enabled && c.Audit.Dir == "" {
		return fmt.Errorf("%w: audit directory is required when auditing is enabled", ErrInvalidConfig)
	}

	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("%w: webhook %d has no url", ErrInvalidConfig, i)
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("%w: OpenTelemetry endpoint is required when OTel is enabled", ErrInvalidConfig)
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("%w: OpenTelemetry service name is required when OTel is enabled", ErrInvalidConfig)
		}
		if r := c.Observability.OTelSampleRatio; r < 0 || r > 1 {
			return fmt.Errorf("%w: OpenTelemetry sample ratio %v is outside [0, 1]", ErrInvalidConfig, r)
		}
	}

	return nil
}

// defaultPluginDir is the per-user module directory.
func defaultPluginDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "conduit", "plugins")
	}
	return "plugins"
}

// parseLogLevel parses a log level string, falling back to info
func parseLogLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
