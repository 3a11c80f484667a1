package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conduit/pkg/storage"
)

func TestStore_SaveStatePostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conduit_saved_plugins WHERE namespace = $1")).
		WithArgs("host-a").
		WillReturnResult(sqlmock.NewResult(0, 3))
	insert := regexp.QuoteMeta("INSERT INTO conduit_saved_plugins (namespace, position, path, updated_at) VALUES ($1, $2, $3, $4)")
	mock.ExpectExec(insert).WithArgs("host-a", 0, "/p/a.so", at).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insert).WithArgs("host-a", 1, "/p/b.so", at).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	store := New(db, Postgres, "host-a")
	err = store.SaveState(context.Background(), &storage.SavedState{Plugins: []string{"/p/a.so", "/p/b.so"}, UpdatedAt: at})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveStateRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM conduit_saved_plugins").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO conduit_saved_plugins").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	store := New(db, Postgres, "host-a")
	err = store.SaveState(context.Background(), &storage.SavedState{Plugins: []string{"/p/a.so"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadStatePostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	older := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT path, updated_at FROM conduit_saved_plugins WHERE namespace = $1 ORDER BY position")).
		WithArgs("host-a").
		WillReturnRows(sqlmock.NewRows([]string{"path", "updated_at"}).
			AddRow("/p/a.so", older).
			AddRow("/p/b.so", newer))

	state, err := New(db, Postgres, "host-a").LoadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a.so", "/p/b.so"}, state.Plugins)
	assert.True(t, newer.Equal(state.UpdatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadStateQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT path").WillReturnError(errors.New("connection reset"))

	_, err = New(db, Postgres, "host-a").LoadState(context.Background())
	assert.Error(t, err)
}

func TestStore_HealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	store := New(db, Postgres, "host-a")
	mock.ExpectPing()
	assert.NoError(t, store.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("gone"))
	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "postgres", Postgres.String())
	assert.Equal(t, "sqlite3", SQLite.String())

	assert.Equal(t, "$1, $2, $3", New(nil, Postgres, "").placeholders(3))
	assert.Equal(t, "?, ?, ?", New(nil, SQLite, "").placeholders(3))
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	cfg := storage.DefaultConfig()
	cfg.Type = storage.TypeSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "state.db")

	store, err := NewSQLiteStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	state, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Plugins)

	require.NoError(t, store.SaveState(ctx, &storage.SavedState{Plugins: []string{"/p/a.so", "/p/b.so"}}))
	require.NoError(t, store.SaveState(ctx, &storage.SavedState{Plugins: []string{"/p/c.so"}}))

	other := New(store.db, SQLite, "host-b")
	require.NoError(t, other.SaveState(ctx, &storage.SavedState{Plugins: []string{"/p/z.so"}}))

	state, err = store.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/c.so"}, state.Plugins)
	assert.False(t, state.UpdatedAt.IsZero())
	assert.NoError(t, store.HealthCheck(ctx))
}
