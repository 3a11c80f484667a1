package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Dialect selects driver name and placeholder style.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

// placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

func open(d Dialect, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open(d.String(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", d, err)
	}

	if pool.MaxConns > 0 {
		db.SetMaxOpenConns(pool.MaxConns)
	}
	if pool.MinConns > 0 {
		db.SetMaxIdleConns(pool.MinConns)
	}
	if pool.MaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.MaxLifetime)
	}
	if pool.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.MaxIdleTime)
	}

	timeout := pool.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d, err)
	}
	return db, nil
}
