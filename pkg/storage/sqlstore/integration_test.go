//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/conduit/pkg/storage"
)

func setupPostgres(t *testing.T) storage.Config {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("conduit_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := storage.DefaultConfig()
	cfg.Type = storage.TypePostgres
	cfg.PostgresURL = connStr
	return cfg
}

func TestPostgresStore_Integration(t *testing.T) {
	cfg := setupPostgres(t)
	ctx := context.Background()

	store, err := NewPostgresStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveState(ctx, &storage.SavedState{Plugins: []string{"/p/a.so", "/p/b.so"}}))
	state, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a.so", "/p/b.so"}, state.Plugins)

	// a second store on the same namespace sees the same rows
	again, err := NewPostgresStore(cfg)
	require.NoError(t, err)
	defer again.Close()
	state, err = again.LoadState(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Plugins, 2)
}
