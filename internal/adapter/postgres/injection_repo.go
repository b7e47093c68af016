package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"injtracker/internal/adapter/sqlcodec"
	"injtracker/internal/domain"
)

var _ domain.InjectionRepository = (*DB)(nil)

const uniqueViolation = "23505"

const insertInjection = `INSERT INTO injections(id, injected_at, quadrant, x, y, dose, weight, notes)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8)`

// AddInjection inserts a new injection.
func (d *DB) AddInjection(ctx context.Context, inj domain.Injection) error {
	r := sqlcodec.Encode(inj)
	_, err := d.sql.ExecContext(ctx, insertInjection+";",
		r.ID, inj.Date.UTC(), r.Quadrant, r.X, r.Y, r.Dose, r.Weight, r.Notes)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, inj.ID)
	}
	return err
}

// DeleteInjection removes the injection with the given id.
func (d *DB) DeleteInjection(ctx context.Context, id string) (bool, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM injections WHERE id=$1;", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListInjections returns every injection in insertion order.
func (d *DB) ListInjections(ctx context.Context) ([]domain.Injection, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, injected_at, quadrant, x, y, dose, weight, notes FROM injections ORDER BY seq;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Injection, 0)
	for rows.Next() {
		var r sqlcodec.Row
		var at time.Time
		if err := rows.Scan(&r.ID, &at, &r.Quadrant, &r.X, &r.Y, &r.Dose, &r.Weight, &r.Notes); err != nil {
			return nil, err
		}
		inj, err := r.Decode()
		if err != nil {
			return nil, err
		}
		inj.Date = at
		out = append(out, inj)
	}
	return out, rows.Err()
}

// MergeInjections inserts unseen injections in a single transaction.
func (d *DB) MergeInjections(ctx context.Context, injs []domain.Injection) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	added := 0
	for _, inj := range injs {
		r := sqlcodec.Encode(inj)
		res, err := tx.ExecContext(ctx, insertInjection+" ON CONFLICT (id) DO NOTHING;",
			r.ID, inj.Date.UTC(), r.Quadrant, r.X, r.Y, r.Dose, r.Weight, r.Notes)
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
func (d *DB) ClearInjections(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM injections;")
	return err
}
