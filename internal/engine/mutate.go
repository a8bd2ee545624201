package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilupskalvis/cmc/internal/apierr"
	"github.com/kilupskalvis/cmc/internal/models"
	"github.com/kilupskalvis/cmc/internal/store"
)

// provisionalID returns a placeholder identity for an optimistic create.
func provisionalID() string {
	return "pending-" + uuid.NewString()
}

// IsProvisionalID reports whether an item ID was issued locally by a
// still-unconfirmed create.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, "pending-")
}

// retryKey identifies one logical mutation for attempt counting.
func retryKey(collection, itemID string, kind models.OpKind) string {
	return models.ItemKey(collection, itemID) + "/" + string(kind)
}

// Create optimistically inserts a new draft item and issues the remote
// create. On success the overlay entry is dropped and the collection is
// refetched so the cache absorbs the server-assigned identity; until the
// refetch lands the view may briefly show neither the optimistic nor the
// server item. On terminal failure the overlay entry is dropped and the
// cache is untouched, which alone is a complete rollback.
func (e *Engine) Create(ctx context.Context, collection string, fields models.FieldMap) (*models.Item, error) {
	item := &models.Item{
		ID:         provisionalID(),
		Collection: collection,
		Fields:     fields.Clone(),
		Draft:      true,
	}

	op := &models.PendingOperation{
		ID:         models.NewOperationID(),
		Seq:        e.seq.Add(1),
		Kind:       models.OpCreate,
		Collection: collection,
		ItemID:     item.ID,
		Item:       item,
		IssuedAt:   time.Now(),
	}

	e.applyOverlay(op)

	var created *models.Item
	err := e.retries.Do(ctx, retryKey(collection, item.ID, op.Kind), func() error {
		var callErr error
		created, callErr = e.api.Create(ctx, item)
		return callErr
	})
	if err != nil {
		return nil, e.rollback(op, err)
	}

	e.removeOverlay(op.ID)
	e.journal(op, store.OutcomeConfirmed, nil)
	e.logger.Info("item created", "collection", collection, "item", created.ID)

	e.refetch(ctx, collection, "create")
	return created, nil
}

// Update optimistically replaces an item's fields and issues the remote
// update. The target must be visible in the current combined view; the
// overlay snapshot is the visible item with the patch merged over it.
func (e *Engine) Update(ctx context.Context, collection, itemID string, fields models.FieldMap) (*models.Item, error) {
	current, ok := e.Item(collection, itemID)
	if !ok {
		err := apierr.New(apierr.KindNotFound, fmt.Errorf("item %s is not in the current view", models.ItemKey(collection, itemID)))
		return nil, err.WithOp("update", collection, itemID)
	}

	next := current.Clone()
	next.Fields = current.Fields.Merge(fields)

	op := &models.PendingOperation{
		ID:         models.NewOperationID(),
		Seq:        e.seq.Add(1),
		Kind:       models.OpUpdate,
		Collection: collection,
		ItemID:     itemID,
		Item:       next,
		Original:   current,
		IssuedAt:   time.Now(),
	}

	e.applyOverlay(op)

	var updated *models.Item
	err := e.retries.Do(ctx, retryKey(collection, itemID, op.Kind), func() error {
		var callErr error
		updated, callErr = e.api.Update(ctx, next)
		return callErr
	})
	if err != nil {
		return nil, e.rollback(op, err)
	}

	e.removeOverlay(op.ID)
	e.journal(op, store.OutcomeConfirmed, nil)
	e.logger.Info("item updated", "collection", collection, "item", itemID)

	e.refetch(ctx, collection, "update")
	return updated, nil
}

// Delete optimistically removes an item and issues the remote delete.
// On success the confirmed removal is applied to the cache directly and
// the collection is refetched to re-sync the server total.
func (e *Engine) Delete(ctx context.Context, collection, itemID string) error {
	original, _ := e.Item(collection, itemID)

	op := &models.PendingOperation{
		ID:         models.NewOperationID(),
		Seq:        e.seq.Add(1),
		Kind:       models.OpDelete,
		Collection: collection,
		ItemID:     itemID,
		Original:   original,
		IssuedAt:   time.Now(),
	}

	e.applyOverlay(op)

	err := e.retries.Do(ctx, retryKey(collection, itemID, op.Kind), func() error {
		return e.api.Delete(ctx, collection, itemID)
	})
	if err != nil {
		return e.rollback(op, err)
	}

	e.mu.Lock()
	e.overlay.Remove(op.ID)
	e.cache.RemoveItem(collection, itemID)
	e.mu.Unlock()

	e.journal(op, store.OutcomeConfirmed, nil)
	e.logger.Info("item deleted", "collection", collection, "item", itemID)

	e.refetch(ctx, collection, "delete")
	return nil
}

// DeleteSelected deletes every selected item in a collection in ID
// order, stopping at the first terminal failure. Confirmed deletions
// leave the selection set as each removal clears its own entry.
func (e *Engine) DeleteSelected(ctx context.Context, collection string) (int, error) {
	ids := e.SelectedIDs(collection)

	deleted := 0
	for _, id := range ids {
		if err := e.Delete(ctx, collection, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (e *Engine) applyOverlay(op *models.PendingOperation) {
	e.mu.Lock()
	e.overlay.Add(op)
	e.mu.Unlock()

	e.logger.Debug("overlay applied",
		"op", op.ID,
		"kind", op.Kind,
		"collection", op.Collection,
		"item", op.ItemID)
}

func (e *Engine) removeOverlay(opID string) {
	e.mu.Lock()
	e.overlay.Remove(opID)
	e.mu.Unlock()
}

// rollback removes the overlay entry for a failed mutation. The cache
// was never touched, so removal is the whole rollback.
func (e *Engine) rollback(op *models.PendingOperation, err error) error {
	e.removeOverlay(op.ID)

	cerr := apierr.Classify(err).WithOp(string(op.Kind), op.Collection, op.ItemID)
	e.journal(op, store.OutcomeRolledBack, cerr)
	e.logger.Error("mutation rolled back",
		"op", op.ID,
		"kind", op.Kind,
		"collection", op.Collection,
		"item", op.ItemID,
		"error", cerr)

	return cerr
}

// refetch re-syncs a collection after a confirmed mutation. The mutation
// already succeeded, so a fetch failure is logged and left in the
// collection's error state rather than returned.
func (e *Engine) refetch(ctx context.Context, collection, after string) {
	if err := e.Refresh(ctx, collection); err != nil {
		e.logger.Warn("refetch after mutation failed",
			"collection", collection,
			"after", after,
			"error", err)
	}
}

// journal records a resolved mutation in the local store, when present.
// Persistence failures are logged, not returned.
func (e *Engine) journal(op *models.PendingOperation, outcome store.Outcome, cerr *apierr.Error) {
	if e.store == nil {
		return
	}

	entry := &store.JournalEntry{
		OpID:       op.ID,
		Seq:        op.Seq,
		Kind:       op.Kind,
		Collection: op.Collection,
		ItemID:     op.ItemID,
		Outcome:    outcome,
		IssuedAt:   op.IssuedAt,
		ResolvedAt: time.Now(),
	}
	if op.Item != nil {
		entry.ItemData, _ = json.Marshal(op.Item)
	}
	if op.Original != nil {
		entry.PreviousData, _ = json.Marshal(op.Original)
	}
	if cerr != nil {
		entry.ErrorKind = string(cerr.Kind)
		entry.ErrorMessage = cerr.Error()
	}

	if err := e.store.AppendJournal(entry); err != nil {
		e.logger.Warn("journal append failed", "op", op.ID, "error", err)
	}
}
