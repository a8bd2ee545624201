package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/models"
	"github.com/kilupskalvis/cmc/internal/store"
)

// newTestEngine builds an engine without a local store and with backoff
// waits stubbed out, so retry paths run instantly.
func newTestEngine(t *testing.T, api content.API) *Engine {
	t.Helper()
	return newTestEngineWithStore(t, api, nil)
}

func newTestEngineWithStore(t *testing.T, api content.API, st *store.Store) *Engine {
	t.Helper()
	e := New(api, st, nil, nil)
	e.retries.Sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "cmc.db"))
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })
	return st
}

// seedItems adds n items to a collection with IDs <collection>-01..n,
// each carrying a title and a views field.
func seedItems(api *content.MockAPI, collection string, n int) {
	for i := 1; i <= n; i++ {
		item := &models.Item{
			ID:         fmt.Sprintf("%s-%02d", collection, i),
			Collection: collection,
		}
		item.Fields.Set("title", models.Text(fmt.Sprintf("Entry %02d", i)))
		item.Fields.Set("views", models.Number(float64(i*10)))
		api.AddItem(item)
	}
}

func titleFields(title string) models.FieldMap {
	var m models.FieldMap
	m.Set("title", models.Text(title))
	return m
}

func TestView_UnknownCollection(t *testing.T) {
	eng := newTestEngine(t, content.NewMockAPI())

	view, ok := eng.View("ghost")
	assert.Nil(t, view)
	assert.False(t, ok)
	assert.Empty(t, eng.CombinedItems("ghost"))
}

func TestItem_ReadsCombinedView(t *testing.T) {
	api := content.NewMockAPI()
	seedItems(api, "posts", 3)
	eng := newTestEngine(t, api)
	require.NoError(t, eng.FetchPage(context.Background(), "posts", models.PageRequest{Page: 1, PageSize: 10}))

	item, ok := eng.Item("posts", "posts-02")
	require.True(t, ok)
	title, ok := item.Fields.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Entry 02", title.Text)

	_, ok = eng.Item("posts", "ghost")
	assert.False(t, ok)
}

func TestSelection_Flow(t *testing.T) {
	api := content.NewMockAPI()
	seedItems(api, "posts", 4)
	eng := newTestEngine(t, api)
	require.NoError(t, eng.FetchPage(context.Background(), "posts", models.PageRequest{Page: 1, PageSize: 10}))

	eng.Select("posts", "posts-03")
	eng.Select("posts", "posts-01")
	assert.Equal(t, []string{"posts-01", "posts-03"}, eng.SelectedIDs("posts"))

	eng.Deselect("posts", "posts-01")
	assert.Equal(t, []string{"posts-03"}, eng.SelectedIDs("posts"))

	view, ok := eng.View("posts")
	require.True(t, ok)
	assert.Equal(t, []string{"posts-03"}, view.Selected)

	eng.ClearSelection("posts")
	assert.Empty(t, eng.SelectedIDs("posts"))
}

func TestCachedCollections(t *testing.T) {
	eng := newTestEngine(t, content.NewMockAPI())

	eng.Initialize("posts")
	eng.Initialize("authors")
	assert.Equal(t, []string{"authors", "posts"}, eng.CachedCollections())
}
