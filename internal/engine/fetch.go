package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilupskalvis/cmc/internal/apierr"
	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/models"
	"github.com/kilupskalvis/cmc/internal/store"
)

// FetchPage retrieves one page of a collection and replaces the cache's
// authoritative items. Every issued fetch takes a per-collection sequence
// number; a response that is no longer the latest issued is discarded, so
// an overtaken fetch can never overwrite newer data.
func (e *Engine) FetchPage(ctx context.Context, collection string, req models.PageRequest) error {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = e.pageSize
	}

	e.mu.Lock()
	e.cache.Initialize(collection)
	e.cache.SetLoading(collection, true)
	e.cache.SetError(collection, nil)
	e.lastReq[collection] = req
	seq := e.nextFetchSeq(collection)
	e.mu.Unlock()

	e.logger.Debug("fetching page",
		"collection", collection,
		"page", req.Page,
		"page_size", req.PageSize,
		"seq", seq)

	q := content.Query{
		Limit:     req.PageSize,
		Offset:    req.Offset(),
		Search:    req.Search,
		SortField: req.SortField,
		SortDir:   req.SortDir,
	}

	var page *content.Page
	err := e.retries.Do(ctx, "fetch/"+collection, func() error {
		var callErr error
		page, callErr = e.api.FetchPage(ctx, collection, q)
		return callErr
	})

	e.mu.Lock()
	if !e.isCurrentFetch(collection, seq) {
		e.mu.Unlock()
		e.logger.Debug("discarding overtaken fetch", "collection", collection, "seq", seq)
		return nil
	}

	e.cache.SetLoading(collection, false)

	if err != nil {
		cerr := apierr.Classify(err).WithOp("fetch", collection, "")
		e.cache.SetError(collection, cerr)
		e.mu.Unlock()

		e.logger.Error("fetch failed", "collection", collection, "error", cerr)
		return cerr
	}

	pagination := req.Pagination(page.Total)
	e.cache.ReplaceItems(collection, page.Items, page.Total)
	e.cache.SetPagination(collection, pagination)
	e.mu.Unlock()

	e.saveSnapshot(collection, page.Items, pagination)
	return nil
}

// Refresh re-runs the last page request issued for a collection, or
// fetches the first page when none was issued yet.
func (e *Engine) Refresh(ctx context.Context, collection string) error {
	e.mu.Lock()
	req, ok := e.lastReq[collection]
	e.mu.Unlock()

	if !ok {
		req = models.PageRequest{Page: 1, PageSize: e.pageSize}
	}
	return e.FetchPage(ctx, collection, req)
}

// Collections lists the collections on the remote with their server
// counts.
func (e *Engine) Collections(ctx context.Context) ([]content.CollectionInfo, error) {
	var infos []content.CollectionInfo
	err := e.retries.Do(ctx, "collections", func() error {
		var callErr error
		infos, callErr = e.api.Collections(ctx)
		return callErr
	})
	if err != nil {
		return nil, apierr.Classify(err).WithOp("collections", "", "")
	}
	return infos, nil
}

// SyncAll fetches the first page of every collection the remote reports,
// with bounded parallelism. Snapshots of collections the remote no
// longer has are pruned, and the sync time is recorded.
func (e *Engine) SyncAll(ctx context.Context) ([]content.CollectionInfo, error) {
	infos, err := e.Collections(ctx)
	if err != nil {
		return nil, err
	}

	const maxWorkers = 4

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for _, info := range infos {
		name := info.Name
		g.Go(func() error {
			return e.FetchPage(ctx, name, models.PageRequest{Page: 1, PageSize: e.pageSize})
		})
	}

	if err := g.Wait(); err != nil {
		return infos, err
	}

	e.pruneVanished(infos)
	if e.store != nil {
		if err := e.store.SetValue(store.KeyLastSync, time.Now().Format(time.RFC3339)); err != nil {
			e.logger.Warn("recording sync time failed", "error", err)
		}
	}

	return infos, nil
}

// pruneVanished drops stored snapshots for collections that are no
// longer on the remote, so they stop warm-starting into the cache.
func (e *Engine) pruneVanished(infos []content.CollectionInfo) {
	if e.store == nil {
		return
	}

	known := make(map[string]bool, len(infos))
	for _, info := range infos {
		known[info.Name] = true
	}

	snaps, err := e.store.ListSnapshots()
	if err != nil {
		e.logger.Warn("listing snapshots failed", "error", err)
		return
	}
	for _, snap := range snaps {
		if known[snap.Collection] {
			continue
		}
		if err := e.store.DeleteSnapshot(snap.Collection); err != nil {
			e.logger.Warn("pruning snapshot failed", "collection", snap.Collection, "error", err)
			continue
		}
		e.logger.Info("pruned snapshot of removed collection", "collection", snap.Collection)
	}
}

// WarmStart seeds the cache from the page snapshots saved by earlier
// runs, so the console has data to show before the first fetch lands.
func (e *Engine) WarmStart() error {
	if e.store == nil {
		return nil
	}

	snaps, err := e.store.ListSnapshots()
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, snap := range snaps {
		e.cache.Initialize(snap.Collection)
		e.cache.ReplaceItems(snap.Collection, snap.Items, snap.Pagination.TotalItems)
		e.cache.SetPagination(snap.Collection, snap.Pagination)
		e.cache.SetLastFetched(snap.Collection, snap.FetchedAt)
		e.lastReq[snap.Collection] = snap.Pagination.Request()
	}

	e.logger.Debug("cache warmed from snapshots", "collections", len(snaps))
	return nil
}

// saveSnapshot persists a fetched page for the next warm start.
// Persistence failures are logged, not returned.
func (e *Engine) saveSnapshot(collection string, items []models.Item, p models.Pagination) {
	if e.store == nil {
		return
	}

	snap := &store.PageSnapshot{
		Collection: collection,
		Items:      items,
		Pagination: p,
		FetchedAt:  time.Now(),
	}
	if err := e.store.SaveSnapshot(snap); err != nil {
		e.logger.Warn("snapshot save failed", "collection", collection, "error", err)
	}
}
