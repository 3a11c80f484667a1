package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/conduit/pkg/storage"
)

var tracer = otel.Tracer("github.com/platinummonkey/conduit/pkg/storage/sqlstore")

const table = "conduit_saved_plugins"

// Store keeps the saved state in a table, one row per module path.
type Store struct {
	db        *sql.DB
	dialect   Dialect
	namespace string
}

// NewPostgresStore connects to PostgreSQL and creates the table if needed.
func NewPostgresStore(cfg storage.Config) (*Store, error) {
	db, err := open(Postgres, cfg.PostgresURL, PoolConfig{
		MaxConns:    cfg.PostgresMaxConns,
		MinConns:    cfg.PostgresMinConns,
		Timeout:     cfg.PostgresTimeout,
		MaxLifetime: time.Hour,
		MaxIdleTime: 10 * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	return newMigrated(db, Postgres, cfg.Namespace, cfg.PostgresTimeout)
}

// NewSQLiteStore opens the SQLite database at cfg.SQLitePath and creates
// the table if needed.
func NewSQLiteStore(cfg storage.Config) (*Store, error) {
	// one writer at a time
	db, err := open(SQLite, cfg.SQLitePath, PoolConfig{MaxConns: 1, MinConns: 1})
	if err != nil {
		return nil, err
	}
	return newMigrated(db, SQLite, cfg.Namespace, 0)
}

func newMigrated(db *sql.DB, d Dialect, namespace string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := New(db, d, namespace)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database.
func New(db *sql.DB, d Dialect, namespace string) *Store {
	return &Store{db: db, dialect: d, namespace: namespace}
}

// Migrate creates the table.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
	namespace TEXT NOT NULL,
	position INTEGER NOT NULL,
	path TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, position)
)`)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}
	return nil
}

// LoadState implements storage.StateReader.
func (s *Store) LoadState(ctx context.Context) (*storage.SavedState, error) {
	ctx, span := s.start(ctx, "SQL.LoadState")
	defer span.End()

	query := fmt.Sprintf("SELECT path, updated_at FROM %s WHERE namespace = %s ORDER BY position",
		table, s.dialect.placeholder(1))
	rows, err := s.db.QueryContext(ctx, query, s.namespace)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("failed to query saved plugins: %w", err))
	}
	defer rows.Close()

	state := &storage.SavedState{}
	for rows.Next() {
		var path string
		var updated time.Time
		if err := rows.Scan(&path, &updated); err != nil {
			return nil, spanError(span, fmt.Errorf("failed to scan saved plugin: %w", err))
		}
		state.Plugins = append(state.Plugins, path)
		if updated.After(state.UpdatedAt) {
			state.UpdatedAt = updated
		}
	}
	if err := rows.Err(); err != nil {
		return nil, spanError(span, fmt.Errorf("failed to read saved plugins: %w", err))
	}

	span.SetAttributes(attribute.Int("plugins.count", len(state.Plugins)))
	return state, nil
}

// SaveState implements storage.StateWriter. The namespace's rows are
// replaced in one transaction.
func (s *Store) SaveState(ctx context.Context, state *storage.SavedState) (err error) {
	ctx, span := s.start(ctx, "SQL.SaveState")
	defer span.End()
	span.SetAttributes(attribute.Int("plugins.count", len(state.Plugins)))

	updated := state.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return spanError(span, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	del := fmt.Sprintf("DELETE FROM %s WHERE namespace = %s", table, s.dialect.placeholder(1))
	if _, err = tx.ExecContext(ctx, del, s.namespace); err != nil {
		return spanError(span, fmt.Errorf("failed to clear saved plugins: %w", err))
	}

	ins := fmt.Sprintf("INSERT INTO %s (namespace, position, path, updated_at) VALUES (%s)", table, s.placeholders(4))
	for i, path := range state.Plugins {
		if _, err = tx.ExecContext(ctx, ins, s.namespace, i, path, updated); err != nil {
			return spanError(span, fmt.Errorf("failed to save plugin %s: %w", path, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return spanError(span, fmt.Errorf("failed to commit saved plugins: %w", err))
	}
	return nil
}

// HealthCheck implements storage.HealthChecker.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s unhealthy: %w", s.dialect, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.dialect.placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

func (s *Store) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", s.dialect.String()),
		attribute.String("storage.namespace", s.namespace),
	))
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
