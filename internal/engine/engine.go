// Package engine implements the optimistic mutation and reconciliation
// core: a per-collection cache of authoritative items, an ordered overlay
// of pending mutations replayed on top of it, and the orchestration that
// confirms or rolls back each mutation around the remote call.
package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilupskalvis/cmc/internal/apierr"
	"github.com/kilupskalvis/cmc/internal/cache"
	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/models"
	"github.com/kilupskalvis/cmc/internal/overlay"
	"github.com/kilupskalvis/cmc/internal/retry"
	"github.com/kilupskalvis/cmc/internal/store"
)

// DefaultPageSize is used when Config.PageSize is unset.
const DefaultPageSize = 25

// Config tunes engine behavior.
type Config struct {
	PageSize int           // default fetch window
	Retry    *retry.Policy // nil uses the retry defaults
}

// Engine owns the collection cache, the pending-operation overlay, and
// the retry controller. One mutex guards cache and overlay state; remote
// calls and backoff waits always happen outside of it.
type Engine struct {
	api     content.API
	store   *store.Store // optional; nil disables snapshots and the journal
	logger  *slog.Logger
	retries *retry.Controller

	pageSize int

	mu       sync.Mutex
	cache    *cache.Cache
	overlay  *overlay.Overlay
	fetchSeq map[string]uint64             // per-collection fence
	lastReq  map[string]models.PageRequest // last issued page request

	seq atomic.Uint64 // pending-operation issue order
}

// New creates an engine on top of a content API. The store may be nil.
func New(api content.API, st *store.Store, logger *slog.Logger, cfg *Config) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg == nil {
		cfg = &Config{}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Engine{
		api:      api,
		store:    st,
		logger:   logger,
		retries:  retry.NewController(cfg.Retry, logger),
		pageSize: pageSize,
		cache:    cache.New(),
		overlay:  overlay.New(),
		fetchSeq: make(map[string]uint64),
		lastReq:  make(map[string]models.PageRequest),
	}
}

// View is what the presentation layer renders for one collection.
type View struct {
	Items       []models.Item // cached page with pending operations replayed
	Pagination  models.Pagination
	Loading     bool
	Err         *apierr.Error
	LastFetched time.Time
	Selected    []string
	Pending     map[string]models.OpKind // item ID to latest pending op kind
}

// View returns the combined view of a collection. The second return is
// false when the collection was never initialized.
func (e *Engine) View(collection string) (*View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, ok := e.cache.Snapshot(collection)
	if !ok {
		return nil, false
	}

	return &View{
		Items:       overlay.Combine(snap.Items, e.overlay.ForCollection(collection)),
		Pagination:  snap.Pagination,
		Loading:     snap.Loading,
		Err:         snap.Err,
		LastFetched: snap.LastFetched,
		Selected:    snap.Selected,
		Pending:     e.overlay.PendingKinds(collection),
	}, true
}

// CombinedItems returns just the combined item list, empty when the
// collection was never initialized.
func (e *Engine) CombinedItems(collection string) []models.Item {
	e.mu.Lock()
	defer e.mu.Unlock()

	return overlay.Combine(e.cache.Items(collection), e.overlay.ForCollection(collection))
}

// Item returns an item as the combined view currently shows it.
func (e *Engine) Item(collection, itemID string) (*models.Item, bool) {
	items := e.CombinedItems(collection)
	for i := range items {
		if items[i].ID == itemID {
			return &items[i], true
		}
	}
	return nil, false
}

// Pending returns all unconfirmed operations in issue order.
func (e *Engine) Pending() []*models.PendingOperation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlay.All()
}

// Initialize creates default cache state for a collection. Idempotent.
func (e *Engine) Initialize(collection string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.Initialize(collection)
}

// CachedCollections lists collection names known to the cache.
func (e *Engine) CachedCollections() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Collections()
}

// Select marks an item for bulk actions.
func (e *Engine) Select(collection, itemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.Select(collection, itemID)
}

// Deselect removes an item from the selection set.
func (e *Engine) Deselect(collection, itemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.Deselect(collection, itemID)
}

// ClearSelection empties a collection's selection set.
func (e *Engine) ClearSelection(collection string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.ClearSelection(collection)
}

// SelectedIDs returns the selected item IDs, sorted.
func (e *Engine) SelectedIDs(collection string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.SelectedIDs(collection)
}

// nextFetchSeq issues the next fence value for a collection. Caller
// holds mu.
func (e *Engine) nextFetchSeq(collection string) uint64 {
	e.fetchSeq[collection]++
	return e.fetchSeq[collection]
}

// isCurrentFetch reports whether seq is still the latest issued fetch
// for the collection. Caller holds mu.
func (e *Engine) isCurrentFetch(collection string, seq uint64) bool {
	return e.fetchSeq[collection] == seq
}
