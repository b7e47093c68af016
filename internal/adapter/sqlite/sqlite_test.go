package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"injtracker/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2026, 2, 1, 9, 30, 15, 123000000, time.UTC)

func TestAddAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	w := 79.9

	require.NoError(t, s.AddInjection(ctx, domain.Injection{ID: "a", Date: base, Site: domain.QuadrantSite(domain.UpperLeft), Dose: "2.5", Weight: &w}))
	require.NoError(t, s.AddInjection(ctx, domain.Injection{ID: "b", Date: base.Add(-48 * time.Hour), Site: domain.PointSite(0.61, 0.72), Dose: "5", Notes: "bruised"}))

	items, err := s.ListInjections(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "a", items[0].ID, "insertion order, not date order")
	assert.True(t, base.Equal(items[0].Date))
	q, ok := items[0].Site.Quadrant()
	require.True(t, ok)
	assert.Equal(t, domain.UpperLeft, q)
	require.NotNil(t, items[0].Weight)
	assert.Equal(t, w, *items[0].Weight)

	x, y, ok := items[1].Site.Point()
	require.True(t, ok)
	assert.Equal(t, 0.61, x)
	assert.Equal(t, 0.72, y)
	assert.Equal(t, domain.Dose("5"), items[1].Dose)
	assert.Equal(t, "bruised", items[1].Notes)
	assert.Nil(t, items[1].Weight)
}

func TestAddDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddInjection(ctx, domain.Injection{ID: "a", Date: base, Site: domain.QuadrantSite(domain.UpperLeft)}))
	err := s.AddInjection(ctx, domain.Injection{ID: "a", Date: base, Site: domain.QuadrantSite(domain.LowerLeft)})
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
}

func TestAddCheckViolationIsNotDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for name, site := range map[string]domain.Site{
		"unknown quadrant": domain.QuadrantSite("XX"),
		"no site":          {},
	} {
		t.Run(name, func(t *testing.T) {
			err := s.AddInjection(ctx, domain.Injection{ID: "bad-" + name, Date: base, Site: site})
			require.Error(t, err)
			assert.NotErrorIs(t, err, domain.ErrDuplicateID)
			assert.Contains(t, err.Error(), "CHECK constraint failed")
		})
	}

	items, err := s.ListInjections(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteAndClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddInjection(ctx, domain.Injection{ID: id, Date: base, Site: domain.QuadrantSite(domain.LowerRight)}))
	}

	ok, err := s.DeleteInjection(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteInjection(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	items, err := s.ListInjections(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)

	require.NoError(t, s.ClearInjections(ctx))
	items, err = s.ListInjections(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMergeInjections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddInjection(ctx, domain.Injection{ID: "a", Date: base, Site: domain.QuadrantSite(domain.UpperLeft)}))

	batch := []domain.Injection{
		{ID: "a", Date: base, Site: domain.QuadrantSite(domain.LowerLeft)},
		{ID: "b", Date: base, Site: domain.QuadrantSite(domain.LowerRight)},
		{ID: "b", Date: base, Site: domain.QuadrantSite(domain.UpperRight)},
	}
	added, err := s.MergeInjections(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = s.MergeInjections(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, added)

	items, err := s.ListInjections(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	q, _ := items[0].Site.Quadrant()
	assert.Equal(t, domain.UpperLeft, q, "existing record is not overwritten")
	q, _ = items[1].Site.Quadrant()
	assert.Equal(t, domain.LowerRight, q)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "injections.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.AddInjection(ctx, domain.Injection{ID: "a", Date: base, Site: domain.QuadrantSite(domain.UpperLeft)}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	items, err := s.ListInjections(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}
