// Package sqlite stores the injection history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"injtracker/internal/adapter/sqlcodec"
	"injtracker/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the injections table.
type Store struct {
	db *sql.DB
}

var _ domain.InjectionRepository = (*Store)(nil)

// Open opens (or creates) the database at path and runs pending migrations.
// Pass ":memory:" for an in-memory database (used by tests).
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// One connection keeps ":memory:" a single database and avoids
	// "database is locked" on concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

const (
	insertRow = `INSERT INTO injections (id, injected_at, quadrant, x, y, dose, weight, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	insertIgnore = `INSERT OR IGNORE INTO injections (id, injected_at, quadrant, x, y, dose, weight, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, ex execer, query string, inj domain.Injection) (sql.Result, error) {
	r := sqlcodec.Encode(inj)
	return ex.ExecContext(ctx, query,
		r.ID, inj.Date.UTC().Format(time.RFC3339Nano), r.Quadrant, r.X, r.Y, r.Dose, r.Weight, r.Notes)
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// AddInjection inserts a new injection.
func (s *Store) AddInjection(ctx context.Context, inj domain.Injection) error {
	if _, err := insert(ctx, s.db, insertRow, inj); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, inj.ID)
		}
		return fmt.Errorf("inserting injection %s: %w", inj.ID, err)
	}
	return nil
}

// DeleteInjection removes the injection with the given id.
func (s *Store) DeleteInjection(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM injections WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListInjections returns every injection in insertion order.
func (s *Store) ListInjections(ctx context.Context) ([]domain.Injection, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, injected_at, quadrant, x, y, dose, weight, notes FROM injections ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Injection, 0)
	for rows.Next() {
		var r sqlcodec.Row
		var at string
		if err := rows.Scan(&r.ID, &at, &r.Quadrant, &r.X, &r.Y, &r.Dose, &r.Weight, &r.Notes); err != nil {
			return nil, err
		}
		inj, err := r.Decode()
		if err != nil {
			return nil, err
		}
		if inj.Date, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("injection %s: parsing date: %w", r.ID, err)
		}
		out = append(out, inj)
	}
	return out, rows.Err()
}

// MergeInjections inserts unseen injections in a single transaction.
func (s *Store) MergeInjections(ctx context.Context, injs []domain.Injection) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added := 0
	for _, inj := range injs {
		res, err := insert(ctx, tx, insertIgnore, inj)
		if err != nil {
			return 0, fmt.Errorf("merge %s: %w", inj.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// ClearInjections deletes every injection.
func (s *Store) ClearInjections(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM injections")
	return err
}
