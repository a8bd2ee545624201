// Package cache holds the per-collection authoritative state of the
// console: the last fetched items, pagination metadata, loading and
// error flags, and the selection set. The cache never talks to the
// network; the engine writes confirmed server state into it.
package cache

import (
	"sort"
	"time"

	"github.com/kilupskalvis/cmc/internal/apierr"
	"github.com/kilupskalvis/cmc/internal/models"
)

// CollectionState is the cached state of one collection.
type CollectionState struct {
	Items       []models.Item // server order, unique IDs
	Pagination  models.Pagination
	Loading     bool
	Err         *apierr.Error
	LastFetched time.Time
	Selected    map[string]bool
}

// Snapshot is a point-in-time deep copy of one collection's state.
type Snapshot struct {
	Items       []models.Item
	Pagination  models.Pagination
	Loading     bool
	Err         *apierr.Error
	LastFetched time.Time
	Selected    []string
}

// Cache is a keyed mapping from collection name to cached state. It is
// owned by the engine, which serializes access; Cache itself does no
// locking and no I/O. Every mutator targeting a collection that was
// never initialized is a silent no-op.
type Cache struct {
	state map[string]*CollectionState
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{state: make(map[string]*CollectionState)}
}

// Initialize registers a collection with empty state. Calling it again
// for a known collection changes nothing.
func (c *Cache) Initialize(collection string) {
	if _, ok := c.state[collection]; ok {
		return
	}
	c.state[collection] = &CollectionState{
		Selected: make(map[string]bool),
	}
}

// Collections returns the registered collection names, sorted.
func (c *Cache) Collections() []string {
	names := make([]string, 0, len(c.state))
	for name := range c.state {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReplaceItems swaps in a freshly fetched page, records the server
// total and stamps LastFetched. Duplicate IDs are dropped keeping the
// first occurrence; selections referring to items no longer present
// are pruned.
func (c *Cache) ReplaceItems(collection string, items []models.Item, total int) {
	st, ok := c.state[collection]
	if !ok {
		return
	}

	seen := make(map[string]bool, len(items))
	fresh := make([]models.Item, 0, len(items))
	for i := range items {
		if seen[items[i].ID] {
			continue
		}
		seen[items[i].ID] = true
		fresh = append(fresh, *items[i].Clone())
	}

	st.Items = fresh
	st.Pagination.TotalItems = total
	st.LastFetched = time.Now()

	for id := range st.Selected {
		if !seen[id] {
			delete(st.Selected, id)
		}
	}
}

// RemoveItem deletes the cached item with the given ID and drops it
// from the selection set.
func (c *Cache) RemoveItem(collection, itemID string) {
	st, ok := c.state[collection]
	if !ok {
		return
	}
	for i := range st.Items {
		if st.Items[i].ID == itemID {
			st.Items = append(st.Items[:i], st.Items[i+1:]...)
			break
		}
	}
	delete(st.Selected, itemID)
}

// SetLoading flips the loading flag.
func (c *Cache) SetLoading(collection string, loading bool) {
	if st, ok := c.state[collection]; ok {
		st.Loading = loading
	}
}

// SetError records the last terminal fetch failure, nil to clear.
func (c *Cache) SetError(collection string, err *apierr.Error) {
	if st, ok := c.state[collection]; ok {
		st.Err = err
	}
}

// SetPagination replaces the pagination metadata wholesale. TotalItems
// passes through untouched: it is always the last server-reported value.
func (c *Cache) SetPagination(collection string, p models.Pagination) {
	if st, ok := c.state[collection]; ok {
		st.Pagination = p
	}
}

// SetLastFetched overrides the fetch stamp. Warm starts use it so
// restored pages keep the age of the snapshot they came from.
func (c *Cache) SetLastFetched(collection string, t time.Time) {
	if st, ok := c.state[collection]; ok {
		st.LastFetched = t
	}
}

// Select marks an item for bulk actions.
func (c *Cache) Select(collection, itemID string) {
	if st, ok := c.state[collection]; ok {
		st.Selected[itemID] = true
	}
}

// Deselect removes an item from the selection set.
func (c *Cache) Deselect(collection, itemID string) {
	if st, ok := c.state[collection]; ok {
		delete(st.Selected, itemID)
	}
}

// ClearSelection empties the selection set.
func (c *Cache) ClearSelection(collection string) {
	if st, ok := c.state[collection]; ok {
		st.Selected = make(map[string]bool)
	}
}

// SelectedIDs returns the selected item IDs, sorted.
func (c *Cache) SelectedIDs(collection string) []string {
	st, ok := c.state[collection]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(st.Selected))
	for id := range st.Selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a deep copy of the collection state, or ok=false
// when the collection was never initialized. Mutating the snapshot
// never affects the cache.
func (c *Cache) Snapshot(collection string) (*Snapshot, bool) {
	st, ok := c.state[collection]
	if !ok {
		return nil, false
	}
	return &Snapshot{
		Items:       models.CloneItems(st.Items),
		Pagination:  st.Pagination,
		Loading:     st.Loading,
		Err:         st.Err,
		LastFetched: st.LastFetched,
		Selected:    c.SelectedIDs(collection),
	}, true
}

// Items returns a deep copy of the cached items.
func (c *Cache) Items(collection string) []models.Item {
	st, ok := c.state[collection]
	if !ok {
		return nil
	}
	return models.CloneItems(st.Items)
}
