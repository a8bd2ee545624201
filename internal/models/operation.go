package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// OpKind identifies the kind of a pending mutation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// PendingOperation records one optimistic mutation awaiting remote
// confirmation. It is created synchronously when the mutation is issued
// and destroyed exactly once, on confirmed success or confirmed failure.
type PendingOperation struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"` // process-monotonic issue order
	Kind       OpKind    `json:"kind"`
	Collection string    `json:"collection"`
	ItemID     string    `json:"item_id"`
	Item       *Item     `json:"item,omitempty"`     // snapshot for create/update
	Original   *Item     `json:"original,omitempty"` // prior state for update/delete
	IssuedAt   time.Time `json:"issued_at"`
}

// NewOperationID generates an operation ID unique across the process
// lifetime: a high-resolution timestamp plus a random suffix, so two
// operations issued in the same instant still differ.
func NewOperationID() string {
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return fmt.Sprintf("op-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("op-%d-%s", time.Now().UnixNano(), hex.EncodeToString(suffix[:]))
}
