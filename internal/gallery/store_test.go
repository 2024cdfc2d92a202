package gallery

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageforge/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.FileStore) {
	t.Helper()
	kv, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewStore(kv, DefaultKey, zerolog.Nop()), kv
}

func testRecord(id string) Record {
	return Record{
		ID:            id,
		URL:           "https://images.example.com/" + id + ".png",
		Prompt:        "a red cube",
		ModelVersion:  "ideogram-ai/ideogram-v2-turbo",
		CreatedAt:     "2026-03-01T12:00:00Z",
		Width:         512,
		Height:        512,
		Steps:         50,
		GuidanceScale: 7.5,
		Scheduler:     "DPMSolverMultistep",
	}
}

func TestAppendThenListRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	rec := testRecord("a")
	require.NoError(t, store.Append(rec))

	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])
}

func TestAppendPrependsMostRecentFirst(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Append(testRecord("first")))
	require.NoError(t, store.Append(testRecord("second")))
	require.NoError(t, store.Append(testRecord("third")))

	records := store.List()
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].ID)
	assert.Equal(t, "second", records[1].ID)
	assert.Equal(t, "first", records[2].ID)
}

func TestAppendRejectsInvalidURL(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Append(testRecord("keep")))

	bad := testRecord("bad")
	bad.URL = "not-a-url"
	err := store.Append(bad)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, "keep", records[0].ID)
}

func TestListAbsentKey(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Empty(t, store.List())
}

func TestListToleratesGarbage(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "not json"},
		{"array of numbers", "[1,2,3]"},
		{"object", `{"id":"x"}`},
		{"empty string", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, kv := newTestStore(t)
			require.NoError(t, kv.Set(DefaultKey, tc.raw))
			assert.Empty(t, store.List())
		})
	}
}

func TestListFiltersInvalidEntries(t *testing.T) {
	store, kv := newTestStore(t)
	raw := `[{"id":"ok","url":"https://x/y.png"},{"id":"no-url"},{"id":"bad","url":"ftp://x"},7]`
	require.NoError(t, kv.Set(DefaultKey, raw))

	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0].ID)
}

func TestClearThenList(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Append(testRecord("a")))
	require.NoError(t, store.Clear())
	assert.Empty(t, store.List())
}

func TestClearEmptyStore(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Clear())
}

func TestReconcileClearsCorruptedStorage(t *testing.T) {
	store, kv := newTestStore(t)
	require.NoError(t, kv.Set(DefaultKey, `[{"id":"x","url":"nope"}]`))

	cleared, err := store.Reconcile()
	require.NoError(t, err)
	assert.True(t, cleared)

	_, ok, err := kv.Get(DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok, "corrupted key must be removed")
}

func TestReconcileKeepsHealthyStorage(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Append(testRecord("a")))

	cleared, err := store.Reconcile()
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Len(t, store.List(), 1)
}

func TestReconcileIgnoresAbsentKey(t *testing.T) {
	store, _ := newTestStore(t)
	cleared, err := store.Reconcile()
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestPagination(t *testing.T) {
	store, _ := newTestStore(t)
	for i := 0; i < 17; i++ {
		require.NoError(t, store.Append(testRecord(fmt.Sprintf("rec-%02d", i))))
	}

	records := store.List()
	require.Len(t, records, 17)
	assert.Equal(t, 3, TotalPages(len(records)))
	assert.Len(t, Page(records, 1), 8)
	assert.Len(t, Page(records, 2), 8)
	assert.Len(t, Page(records, 3), 1)
	assert.Empty(t, Page(records, 4))

	// Most-recent-first: the last appended record opens page 1.
	assert.Equal(t, "rec-16", Page(records, 1)[0].ID)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0))
	assert.Equal(t, 1, TotalPages(1))
	assert.Equal(t, 1, TotalPages(8))
	assert.Equal(t, 2, TotalPages(9))
	assert.Equal(t, 3, TotalPages(17))
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 1, ClampPage(0, 3))
	assert.Equal(t, 1, ClampPage(-2, 3))
	assert.Equal(t, 2, ClampPage(2, 3))
	assert.Equal(t, 3, ClampPage(9, 3))
	assert.Equal(t, 1, ClampPage(5, 0))
}
