package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/cmc/internal/models"
)

// newTestStore creates a store backed by a temp database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "cmc.db")
	st, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Initialize())

	t.Cleanup(func() { st.Close() })
	return st
}

func testItem(id, title string) models.Item {
	it := models.Item{ID: id, Collection: "posts"}
	it.Fields.Set("title", models.Text(title))
	it.Fields.Set("views", models.Number(3))
	return it
}

func TestSnapshot_SaveAndGet(t *testing.T) {
	st := newTestStore(t)

	snap := &PageSnapshot{
		Collection: "posts",
		Items:      []models.Item{testItem("a", "A"), testItem("b", "B")},
		Pagination: models.Pagination{Page: 2, PageSize: 10, TotalItems: 25, Search: "go", SortField: "title", SortDir: models.SortDesc},
		FetchedAt:  time.Now(),
	}
	require.NoError(t, st.SaveSnapshot(snap))

	got, err := st.GetSnapshot("posts")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "posts", got.Collection)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "a", got.Items[0].ID)
	// Field order survives the round trip.
	assert.Equal(t, []string{"title", "views"}, got.Items[0].Fields.Keys())
	assert.Equal(t, 25, got.Pagination.TotalItems)
	assert.Equal(t, models.SortDesc, got.Pagination.SortDir)
	assert.Equal(t, "go", got.Pagination.Search)
	assert.False(t, got.FetchedAt.IsZero())
}

func TestSnapshot_SaveReplaces(t *testing.T) {
	st := newTestStore(t)

	first := &PageSnapshot{Collection: "posts", Items: []models.Item{testItem("a", "A")}, FetchedAt: time.Now()}
	require.NoError(t, st.SaveSnapshot(first))

	second := &PageSnapshot{Collection: "posts", Items: []models.Item{testItem("b", "B")}, FetchedAt: time.Now()}
	require.NoError(t, st.SaveSnapshot(second))

	got, err := st.GetSnapshot("posts")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "b", got.Items[0].ID)
}

func TestGetSnapshot_Missing(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetSnapshot("ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListSnapshots_Ordered(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SaveSnapshot(&PageSnapshot{Collection: "posts", Items: nil, FetchedAt: time.Now()}))
	require.NoError(t, st.SaveSnapshot(&PageSnapshot{Collection: "authors", Items: nil, FetchedAt: time.Now()}))

	snaps, err := st.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "authors", snaps[0].Collection)
	assert.Equal(t, "posts", snaps[1].Collection)
}

func journalEntry(opID, collection, itemID string, outcome Outcome) *JournalEntry {
	item, _ := json.Marshal(testItem(itemID, "T"))
	return &JournalEntry{
		OpID:       opID,
		Seq:        1,
		Kind:       models.OpUpdate,
		Collection: collection,
		ItemID:     itemID,
		ItemData:   item,
		Outcome:    outcome,
		IssuedAt:   time.Now().Add(-time.Second),
		ResolvedAt: time.Now(),
	}
}

func TestJournal_AppendAndList(t *testing.T) {
	st := newTestStore(t)

	first := journalEntry("op-1", "posts", "a", OutcomeConfirmed)
	require.NoError(t, st.AppendJournal(first))
	assert.Positive(t, first.ID)

	second := journalEntry("op-2", "posts", "b", OutcomeRolledBack)
	second.ErrorKind = "service_unavailable"
	second.ErrorMessage = "api error (503): unavailable: maintenance"
	require.NoError(t, st.AppendJournal(second))

	entries, err := st.ListJournal("", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "op-2", entries[0].OpID)
	assert.Equal(t, OutcomeRolledBack, entries[0].Outcome)
	assert.Equal(t, "service_unavailable", entries[0].ErrorKind)
	assert.Equal(t, "op-1", entries[1].OpID)
	assert.Equal(t, models.OpUpdate, entries[1].Kind)
	assert.False(t, entries[1].IssuedAt.IsZero())
	assert.NotEmpty(t, entries[1].ItemData)
}

func TestJournal_FilterByCollection(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.AppendJournal(journalEntry("op-1", "posts", "a", OutcomeConfirmed)))
	require.NoError(t, st.AppendJournal(journalEntry("op-2", "authors", "x", OutcomeConfirmed)))

	entries, err := st.ListJournal("authors", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "op-2", entries[0].OpID)
}

func TestJournal_Limit(t *testing.T) {
	st := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, st.AppendJournal(journalEntry(models.NewOperationID(), "posts", "a", OutcomeConfirmed)))
	}

	entries, err := st.ListJournal("posts", 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestJournal_Prune(t *testing.T) {
	st := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, st.AppendJournal(journalEntry(models.NewOperationID(), "posts", "a", OutcomeConfirmed)))
	}

	deleted, err := st.PruneJournal(2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	entries, err := st.ListJournal("", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestKV_SetAndGet(t *testing.T) {
	st := newTestStore(t)

	missing, err := st.GetValue("nope")
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, st.SetValue("last_sync", "2026-03-01T10:00:00Z"))
	require.NoError(t, st.SetValue("last_sync", "2026-03-02T10:00:00Z"))

	got, err := st.GetValue("last_sync")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02T10:00:00Z", got)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.RunMigrations())
	require.NoError(t, st.RunMigrations())

	version, err := st.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}
