// Package models defines the core data structures used throughout cmc
// including content items, field values, and pending operations.
package models

import "time"

// Item represents a single content record in a remote collection.
// The engine treats items as opaque apart from ID; everything the
// remote API knows about a record lives in Fields.
type Item struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Fields     FieldMap  `json:"fields"`
	Draft      bool      `json:"draft,omitempty"`
	Archived   bool      `json:"archived,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"` // server-stamped
	UpdatedAt  time.Time `json:"updated_at,omitzero"` // server-stamped
}

// Clone returns a deep copy of the item. Cached items and overlay
// snapshots must never alias each other's field storage.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	cp := *it
	cp.Fields = it.Fields.Clone()
	return &cp
}

// ItemKey returns the unique key for an item across collections.
func ItemKey(collection, itemID string) string {
	return collection + "/" + itemID
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i := range items {
		out[i] = *items[i].Clone()
	}
	return out
}
