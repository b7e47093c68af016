// Package memory implements an in-memory injection history for development
// and testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"injtracker/internal/domain"
)

// DB holds the injection history in insertion order.
type DB struct {
	mu         sync.RWMutex
	injections []domain.Injection
	ids        map[string]struct{}
}

// New creates an empty in-memory history.
func New() *DB {
	return &DB{ids: make(map[string]struct{})}
}

// NewWith creates a history pre-loaded with injs. Later duplicates of an id
// are dropped.
func NewWith(injs []domain.Injection) *DB {
	db := New()
	db.merge(injs)
	return db
}

var _ domain.InjectionRepository = (*DB)(nil)

// AddInjection appends inj.
func (db *DB) AddInjection(ctx context.Context, inj domain.Injection) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.ids[inj.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, inj.ID)
	}
	db.injections = append(db.injections, inj)
	db.ids[inj.ID] = struct{}{}
	return nil
}

// DeleteInjection removes the injection with the given id.
func (db *DB) DeleteInjection(ctx context.Context, id string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.ids[id]; !ok {
		return false, nil
	}
	kept := make([]domain.Injection, 0, len(db.injections)-1)
	for _, inj := range db.injections {
		if inj.ID != id {
			kept = append(kept, inj)
		}
	}
	db.injections = kept
	delete(db.ids, id)
	return true, nil
}

// ListInjections returns a copy of the history. Callers may keep it across
// later mutations.
func (db *DB) ListInjections(ctx context.Context) ([]domain.Injection, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]domain.Injection, len(db.injections))
	copy(out, db.injections)
	return out, nil
}

// MergeInjections appends the injections whose id is not present yet.
func (db *DB) MergeInjections(ctx context.Context, injs []domain.Injection) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.merge(injs), nil
}

func (db *DB) merge(injs []domain.Injection) int {
	added := 0
	for _, inj := range injs {
		if _, ok := db.ids[inj.ID]; ok {
			continue
		}
		db.injections = append(db.injections, inj)
		db.ids[inj.ID] = struct{}{}
		added++
	}
	return added
}

// ClearInjections drops the whole history.
func (db *DB) ClearInjections(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.injections = nil
	db.ids = make(map[string]struct{})
	return nil
}

// Len returns the number of stored injections.
func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.injections)
}
