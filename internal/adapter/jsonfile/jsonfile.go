// Package jsonfile keeps the injection history in memory and mirrors it to a
// single JSON document on disk after every mutation.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"injtracker/internal/adapter/memory"
	"injtracker/internal/domain"
)

// Store is a domain.InjectionRepository persisted as a document file.
type Store struct {
	// mu orders each mutation with its save so the file never lags behind a
	// later write.
	mu   sync.Mutex
	mem  *memory.DB
	path string
	log  *zap.Logger
}

var _ domain.InjectionRepository = (*Store)(nil)

// Open loads the document at path. A missing or unreadable document yields an
// empty history; Open itself never fails.
func Open(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("path", path))
	return &Store{mem: memory.NewWith(load(path, log)), path: path, log: log}
}

func load(path string, log *zap.Logger) []domain.Injection {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("no history file, starting empty")
		return nil
	}
	if err != nil {
		log.Warn("reading history file failed, starting empty", zap.Error(err))
		return nil
	}
	doc, err := domain.DecodeDocument(data)
	if err != nil {
		log.Warn("history file is malformed, starting empty", zap.Error(err))
		return nil
	}
	for _, sk := range doc.Skipped {
		log.Warn("skipping unreadable injection record",
			zap.Int("index", sk.Index), zap.String("id", sk.ID), zap.Error(sk.Err))
	}
	log.Info("history loaded",
		zap.Int("injections", len(doc.Injections)), zap.Int("skipped", len(doc.Skipped)))
	return doc.Injections
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// AddInjection appends inj and saves.
func (s *Store) AddInjection(ctx context.Context, inj domain.Injection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.AddInjection(ctx, inj); err != nil {
		return err
	}
	s.save(ctx)
	return nil
}

// DeleteInjection removes id and saves when something was removed.
func (s *Store) DeleteInjection(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.mem.DeleteInjection(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.save(ctx)
	return true, nil
}

// ListInjections returns a snapshot of the history.
func (s *Store) ListInjections(ctx context.Context) ([]domain.Injection, error) {
	return s.mem.ListInjections(ctx)
}

// MergeInjections appends unseen injections and saves when any were added.
func (s *Store) MergeInjections(ctx context.Context, injs []domain.Injection) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.mem.MergeInjections(ctx, injs)
	if err != nil || added == 0 {
		return added, err
	}
	s.save(ctx)
	return added, nil
}

// ClearInjections drops the history and saves.
func (s *Store) ClearInjections(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.ClearInjections(ctx); err != nil {
		return err
	}
	s.save(ctx)
	return nil
}

// save writes the current history. Failures are logged, never returned: the
// in-memory history stays authoritative.
func (s *Store) save(ctx context.Context) {
	injs, _ := s.mem.ListInjections(ctx)
	if err := writeDocument(s.path, domain.Document{Injections: injs}); err != nil {
		s.log.Error("saving history failed", zap.Error(err))
		return
	}
	s.log.Debug("history saved", zap.Int("injections", len(injs)))
}

func writeDocument(path string, doc domain.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".injections-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing document: %w", err)
	}
	return nil
}
