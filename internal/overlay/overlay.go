// Package overlay keeps the ordered list of pending optimistic
// operations and folds them over cached items to produce the combined
// view the console renders. The fold is pure: it never errors and
// never mutates its inputs.
package overlay

import (
	"github.com/kilupskalvis/cmc/internal/models"
)

// Overlay is the ordered set of pending operations across all
// collections, in issue order. Like the cache it is owned and
// serialized by the engine.
type Overlay struct {
	ops []*models.PendingOperation
}

// New creates an empty overlay.
func New() *Overlay {
	return &Overlay{}
}

// Add appends an operation in issue order.
func (o *Overlay) Add(op *models.PendingOperation) {
	if op == nil {
		return
	}
	o.ops = append(o.ops, op)
}

// Remove deletes the operation with the given ID and reports whether
// it was present. Each pending operation is removed exactly once, on
// confirmed success or confirmed failure.
func (o *Overlay) Remove(opID string) bool {
	for i := range o.ops {
		if o.ops[i].ID == opID {
			o.ops = append(o.ops[:i], o.ops[i+1:]...)
			return true
		}
	}
	return false
}

// ForCollection returns the pending operations for one collection in
// issue order.
func (o *Overlay) ForCollection(collection string) []*models.PendingOperation {
	var out []*models.PendingOperation
	for _, op := range o.ops {
		if op.Collection == collection {
			out = append(out, op)
		}
	}
	return out
}

// All returns every pending operation in issue order.
func (o *Overlay) All() []*models.PendingOperation {
	out := make([]*models.PendingOperation, len(o.ops))
	copy(out, o.ops)
	return out
}

// Len returns the number of pending operations.
func (o *Overlay) Len() int {
	return len(o.ops)
}

// PendingKinds maps item IDs of a collection to the kind of their most
// recent pending operation. Presentation layers use it to mark rows.
func (o *Overlay) PendingKinds(collection string) map[string]models.OpKind {
	kinds := make(map[string]models.OpKind)
	for _, op := range o.ops {
		if op.Collection != collection {
			continue
		}
		id := op.ItemID
		if id == "" && op.Item != nil {
			id = op.Item.ID
		}
		if id != "" {
			kinds[id] = op.Kind
		}
	}
	return kinds
}

// Combine folds pending operations over a base item list and returns
// the combined view:
//
//   - create prepends the operation's snapshot when its ID is absent
//     (pending items render newest first)
//   - update replaces the matching item in place, or is silently
//     dropped when the item is not visible
//   - delete removes the matching item
//
// Operations must arrive in issue order. The base list is never
// mutated and the returned items share no storage with it.
func Combine(base []models.Item, ops []*models.PendingOperation) []models.Item {
	view := models.CloneItems(base)
	if view == nil {
		view = []models.Item{}
	}

	for _, op := range ops {
		if op == nil {
			continue
		}
		switch op.Kind {
		case models.OpCreate:
			if op.Item == nil {
				continue
			}
			if indexOf(view, op.Item.ID) < 0 {
				view = append([]models.Item{*op.Item.Clone()}, view...)
			}
		case models.OpUpdate:
			if op.Item == nil {
				continue
			}
			if i := indexOf(view, op.ItemID); i >= 0 {
				view[i] = *op.Item.Clone()
			}
		case models.OpDelete:
			if i := indexOf(view, op.ItemID); i >= 0 {
				view = append(view[:i], view[i+1:]...)
			}
		}
	}
	return view
}

func indexOf(items []models.Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
