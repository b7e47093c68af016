package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a *sql.DB holding the injection history.
type DB struct {
	sql *sql.DB
}

// connectTimeout bounds the initial ping and migration.
const connectTimeout = 5 * time.Second

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS injections (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			injected_at TIMESTAMPTZ NOT NULL,
			quadrant TEXT CHECK(quadrant IN ('UL','UR','LL','LR')),
			x DOUBLE PRECISION,
			y DOUBLE PRECISION,
			dose TEXT NOT NULL DEFAULT '',
			weight DOUBLE PRECISION,
			notes TEXT NOT NULL DEFAULT '',
			CHECK(quadrant IS NOT NULL OR (x IS NOT NULL AND y IS NOT NULL))
		);`,
		"CREATE INDEX IF NOT EXISTS idx_injections_injected_at ON injections(injected_at);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
