package jsonfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"injtracker/internal/adapter/jsonfile"
	"injtracker/internal/domain"
)

func injection(id string, q domain.Quadrant) domain.Injection {
	return domain.Injection{
		ID:   id,
		Date: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Site: domain.QuadrantSite(q),
		Dose: "5",
	}
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "injections.json")
	s := jsonfile.Open(path, zap.NewNop())

	items, err := s.ListInjections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "open must not create the file")
}

func TestOpen_MalformedFileStartsEmpty(t *testing.T) {
	for name, content := range map[string]string{
		"invalid json":  `{"injections": [`,
		"not an array":  `{"injections": "nope"}`,
		"missing field": `{"items": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "injections.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			log, logs := observed()
			s := jsonfile.Open(path, log)

			items, err := s.ListInjections(context.Background())
			require.NoError(t, err)
			assert.Empty(t, items)
			assert.Equal(t, 1, logs.FilterMessage("history file is malformed, starting empty").Len())
		})
	}
}

func TestOpen_BadRecordKeepsTheRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "injections.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"injections": [
		{"id": "a", "date": "2026-02-01T09:00:00Z", "dose": "5", "x": 0.4, "y": 0.6},
		{"id": "b", "date": "2026-02-08T09:00:00Z", "dose": "5", "x": 0.6, "y": 0.7},
		{"id": "c", "date": "2026-02-15T09:00:00Z", "dose": "5"}
	]}`), 0o600))
	ctx := context.Background()

	log, logs := observed()
	s := jsonfile.Open(path, log)

	items, err := s.ListInjections(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)

	skipped := logs.FilterMessage("skipping unreadable injection record").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, zapcore.WarnLevel, skipped[0].Level)
	assert.Equal(t, "c", skipped[0].ContextMap()["id"])
	assert.Equal(t, int64(2), skipped[0].ContextMap()["index"])
	assert.Zero(t, logs.FilterMessage("history file is malformed, starting empty").Len())

	require.NoError(t, s.AddInjection(ctx, injection("new", domain.UpperLeft)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := domain.DecodeDocument(data)
	require.NoError(t, err)
	require.Len(t, doc.Injections, 3)
	assert.Equal(t, "a", doc.Injections[0].ID)
	assert.Equal(t, "b", doc.Injections[1].ID)
	assert.Equal(t, "new", doc.Injections[2].ID)
}

func TestStore_PersistsEveryMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "injections.json")
	ctx := context.Background()

	s := jsonfile.Open(path, zap.NewNop())
	require.NoError(t, s.AddInjection(ctx, injection("a", domain.UpperLeft)))
	require.NoError(t, s.AddInjection(ctx, injection("b", domain.LowerRight)))

	reopened := jsonfile.Open(path, zap.NewNop())
	items, err := reopened.ListInjections(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)

	ok, err := s.DeleteInjection(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	added, err := s.MergeInjections(ctx, []domain.Injection{injection("b", domain.UpperRight), injection("c", domain.LowerLeft)})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := domain.DecodeDocument(data)
	require.NoError(t, err)
	require.Len(t, doc.Injections, 2)
	assert.Equal(t, "b", doc.Injections[0].ID)
	assert.Equal(t, "c", doc.Injections[1].ID)

	require.NoError(t, s.ClearInjections(ctx))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"injections": []}`, string(data))
}

func TestStore_SaveFailureIsLoggedNotReturned(t *testing.T) {
	// A directory where the document should be makes every save fail.
	path := filepath.Join(t.TempDir(), "injections.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	log, logs := observed()
	s := jsonfile.Open(path, log)
	ctx := context.Background()

	require.NoError(t, s.AddInjection(ctx, injection("a", domain.UpperLeft)))

	items, err := s.ListInjections(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1, "history stays in memory when persisting fails")

	failures := logs.FilterMessage("saving history failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
}

func TestStore_DuplicateAddDoesNotSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "injections.json")
	log, logs := observed()
	s := jsonfile.Open(path, log)
	ctx := context.Background()

	require.NoError(t, s.AddInjection(ctx, injection("a", domain.UpperLeft)))
	err := s.AddInjection(ctx, injection("a", domain.LowerLeft))
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Equal(t, 1, logs.FilterMessage("history saved").Len())
}
