package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid storage config")

// SavedState is the persisted list of modules to load on startup.
type SavedState struct {
	Plugins   []string  `yaml:"plugins" json:"plugins"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// StateReader reads the saved state. A backend with nothing saved returns
// an empty state and no error.
type StateReader interface {
	LoadState(ctx context.Context) (*SavedState, error)
}

// StateWriter replaces the saved state.
type StateWriter interface {
	SaveState(ctx context.Context, state *SavedState) error
}

// HealthChecker reports backend connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Store is a saved-state backend.
type Store interface {
	StateReader
	StateWriter
	HealthChecker
	Close() error
}

// Backend types.
const (
	TypeFile     = "file"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
	TypeRedis    = "redis"
	TypeS3       = "s3"
)

// Config for storage backend
type Config struct {
	Type string

	// Namespace separates hosts sharing one backend.
	Namespace string

	// File config
	FilePath string

	// SQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration
	SQLitePath       string

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// S3 config
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3Prefix       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             TypeFile,
		Namespace:        "default",
		FilePath:         "saved-plugins.yaml",
		PostgresMaxConns: 4,
		PostgresMinConns: 1,
		PostgresTimeout:  10 * time.Second,
		RedisMaxRetries:  3,
		RedisPoolSize:    4,
		S3Region:         "us-east-1",
		S3Prefix:         "conduit",
	}
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidConfig)
	}
	switch c.Type {
	case TypeFile:
		if c.FilePath == "" {
			return fmt.Errorf("%w: file path is required", ErrInvalidConfig)
		}
	case TypePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("%w: postgres URL is required", ErrInvalidConfig)
		}
	case TypeSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite path is required", ErrInvalidConfig)
		}
	case TypeRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis URL is required", ErrInvalidConfig)
		}
	case TypeS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("%w: s3 bucket is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidConfig, c.Type)
	}
	return nil
}
