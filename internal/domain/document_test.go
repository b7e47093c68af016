package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"injtracker/internal/domain"
)

func TestDecodeDocument(t *testing.T) {
	data := []byte(`{
		"injections": [
			{"id": "lx1", "date": "2026-02-20T08:30", "dose": "5", "notes": "", "x": 0.41, "y": 0.58},
			{"id": "lx2", "date": "2026-02-27T08:30:00Z", "dose": 7.5, "notes": "left side", "quadrant": "LL", "weight": 81.2},
			{"id": "lx3", "date": "2026-02-28", "dose": "7.5", "quadrant": "ur", "x": 0.6, "y": 0.7, "weight": null}
		]
	}`)

	doc, err := domain.DecodeDocument(data)
	require.NoError(t, err)
	require.Len(t, doc.Injections, 3)

	legacy := doc.Injections[0]
	assert.Equal(t, "lx1", legacy.ID)
	x, y, ok := legacy.Site.Point()
	require.True(t, ok)
	assert.Equal(t, 0.41, x)
	assert.Equal(t, 0.58, y)
	assert.True(t, time.Date(2026, 2, 20, 8, 30, 0, 0, time.Local).Equal(legacy.Date))
	assert.Nil(t, legacy.Weight)

	tagged := doc.Injections[1]
	q, ok := tagged.Site.Quadrant()
	require.True(t, ok)
	assert.Equal(t, domain.LowerLeft, q)
	assert.Equal(t, domain.Dose("7.5"), tagged.Dose)
	require.NotNil(t, tagged.Weight)
	assert.Equal(t, 81.2, *tagged.Weight)
	assert.Equal(t, "left side", tagged.Notes)
	assert.True(t, tagged.Date.Equal(time.Date(2026, 2, 27, 8, 30, 0, 0, time.UTC)))

	both := doc.Injections[2]
	q, ok = both.Site.Quadrant()
	require.True(t, ok, "quadrant takes priority over x/y")
	assert.Equal(t, domain.UpperRight, q)
}

func TestDecodeDocument_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"injections": [`},
		{"missing injections", `{"records": []}`},
		{"null injections", `{"injections": null}`},
		{"injections not array", `{"injections": {"id": "a"}}`},
		{"top level array", `[]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.DecodeDocument([]byte(tc.data))
			assert.ErrorIs(t, err, domain.ErrMalformedDocument)
		})
	}
}

func TestDecodeDocument_SkipsBadRecords(t *testing.T) {
	data := []byte(`{"injections": [
		{"id": "a", "date": "2026-01-01", "x": 0.4, "y": 0.6},
		{"date": "2026-01-02", "quadrant": "UL"},
		{"id": "c", "date": "2026-01-03"},
		{"id": "d", "date": "2026-01-04", "quadrant": "MID"},
		{"id": "e", "date": "yesterday", "quadrant": "UL"},
		null,
		7,
		{"id": "h", "date": "2026-01-08", "quadrant": "LR"}
	]}`)

	doc, err := domain.DecodeDocument(data)
	require.NoError(t, err)

	require.Len(t, doc.Injections, 2)
	assert.Equal(t, "a", doc.Injections[0].ID)
	assert.Equal(t, "h", doc.Injections[1].ID)

	require.Len(t, doc.Skipped, 6)
	var indexes []int
	var ids []string
	for _, sk := range doc.Skipped {
		assert.Error(t, sk.Err)
		indexes = append(indexes, sk.Index)
		ids = append(ids, sk.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, indexes)
	assert.Equal(t, []string{"", "c", "d", "e", "", ""}, ids)
	assert.ErrorIs(t, doc.Skipped[2].Err, domain.ErrInvalidQuadrant)
}

func TestDecodeDocument_SkippedIsNotWritten(t *testing.T) {
	doc, err := domain.DecodeDocument([]byte(`{"injections": [{"id": "c", "date": "2026-01-03"}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Skipped, 1)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"injections": []}`, string(data))
}

func TestDecodeDocument_Empty(t *testing.T) {
	doc, err := domain.DecodeDocument([]byte(`{"injections": []}`))
	require.NoError(t, err)
	assert.NotNil(t, doc.Injections)
	assert.Empty(t, doc.Injections)
}

func TestDocumentMarshal(t *testing.T) {
	w := 80.5
	doc := domain.Document{Injections: []domain.Injection{
		{ID: "a", Date: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), Site: domain.QuadrantSite(domain.UpperLeft), Dose: "5", Weight: &w},
		{ID: "b", Date: time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC), Site: domain.PointSite(0.6, 0.7), Dose: "5", Notes: "ok"},
	}}

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"injections": [
		{"id": "a", "date": "2026-02-01T09:00:00Z", "dose": "5", "notes": "", "quadrant": "UL", "weight": 80.5},
		{"id": "b", "date": "2026-02-08T09:00:00Z", "dose": "5", "notes": "ok", "x": 0.6, "y": 0.7, "weight": null}
	]}`, string(data))

	back, err := domain.DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Injections[1].Site, back.Injections[1].Site)
	assert.True(t, doc.Injections[0].Date.Equal(back.Injections[0].Date))
}

func TestDocumentMarshal_EmptyHistoryIsArray(t *testing.T) {
	data, err := json.Marshal(domain.Document{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"injections": []}`, string(data))
}
