package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/conduit/pkg/storage"
)

// Store keeps the saved state in a Redis list plus a timestamp key.
type Store struct {
	client    *redis.Client
	namespace string
}

// New creates a Redis-backed store
func New(cfg storage.Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB > 0 {
		opts.DB = cfg.RedisDB
	}
	if cfg.RedisMaxRetries > 0 {
		opts.MaxRetries = cfg.RedisMaxRetries
	}
	if cfg.RedisPoolSize > 0 {
		opts.PoolSize = cfg.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client, namespace: cfg.Namespace}, nil
}

func (s *Store) listKey() string    { return fmt.Sprintf("conduit:saved:%s", s.namespace) }
func (s *Store) updatedKey() string { return fmt.Sprintf("conduit:saved:%s:updated", s.namespace) }

// LoadState implements storage.StateReader.
func (s *Store) LoadState(ctx context.Context) (*storage.SavedState, error) {
	paths, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	state := &storage.SavedState{}
	if len(paths) > 0 {
		state.Plugins = paths
	}

	raw, err := s.client.Get(ctx, s.updatedKey()).Result()
	if errors.Is(err, redis.Nil) {
		return state, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	if at, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
		state.UpdatedAt = at
	}
	return state, nil
}

// SaveState implements storage.StateWriter. The list and its timestamp
// are replaced in one MULTI/EXEC.
func (s *Store) SaveState(ctx context.Context, state *storage.SavedState) error {
	updated := state.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.listKey())
		if len(state.Plugins) > 0 {
			values := make([]interface{}, len(state.Plugins))
			for i, p := range state.Plugins {
				values[i] = p
			}
			pipe.RPush(ctx, s.listKey(), values...)
		}
		pipe.Set(ctx, s.updatedKey(), updated.Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

// HealthCheck implements storage.HealthChecker.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
