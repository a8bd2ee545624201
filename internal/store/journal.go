package store

import (
	"fmt"
	"time"

	"github.com/kilupskalvis/cmc/internal/models"
)

// Outcome says how a mutation resolved.
type Outcome string

const (
	OutcomeConfirmed  Outcome = "confirmed"
	OutcomeRolledBack Outcome = "rolled_back"
)

// JournalEntry records one resolved mutation: what was attempted, the
// snapshots involved, and how it ended.
type JournalEntry struct {
	ID           int64
	OpID         string
	Seq          uint64
	Kind         models.OpKind
	Collection   string
	ItemID       string
	ItemData     []byte // JSON snapshot sent to the API
	PreviousData []byte // prior state for update/delete
	Outcome      Outcome
	ErrorKind    string
	ErrorMessage string
	IssuedAt     time.Time
	ResolvedAt   time.Time
}

// AppendJournal appends a resolved mutation to the journal and fills
// in the entry's row ID.
func (s *Store) AppendJournal(e *JournalEntry) error {
	res, err := s.db.Exec(`
		INSERT INTO journal
		(op_id, seq, kind, collection, item_id, item_data, previous_data,
		 outcome, error_kind, error_message, issued_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OpID,
		e.Seq,
		string(e.Kind),
		e.Collection,
		e.ItemID,
		nullableJSON(e.ItemData),
		nullableJSON(e.PreviousData),
		string(e.Outcome),
		e.ErrorKind,
		e.ErrorMessage,
		e.IssuedAt.Format(time.RFC3339Nano),
		e.ResolvedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	e.ID, err = res.LastInsertId()
	return err
}

// ListJournal returns resolved mutations newest first. An empty
// collection selects all collections; limit <= 0 means no limit.
func (s *Store) ListJournal(collection string, limit int) ([]*JournalEntry, error) {
	query := `
		SELECT id, op_id, seq, kind, collection, item_id, item_data, previous_data,
		       outcome, error_kind, error_message, issued_at, resolved_at
		FROM journal`
	var args []any
	if collection != "" {
		query += " WHERE collection = ?"
		args = append(args, collection)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var entries []*JournalEntry
	for rows.Next() {
		var (
			e          JournalEntry
			kind       string
			outcome    string
			itemData   []byte
			prevData   []byte
			issuedAt   string
			resolvedAt string
		)
		if err := rows.Scan(
			&e.ID, &e.OpID, &e.Seq, &kind, &e.Collection, &e.ItemID,
			&itemData, &prevData, &outcome, &e.ErrorKind, &e.ErrorMessage,
			&issuedAt, &resolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Kind = models.OpKind(kind)
		e.Outcome = Outcome(outcome)
		e.ItemData = itemData
		e.PreviousData = prevData
		e.IssuedAt = parseTimestamp(issuedAt)
		e.ResolvedAt = parseTimestamp(resolvedAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// PruneJournal keeps the newest keep entries and deletes the rest.
// Returns the number of deleted rows.
func (s *Store) PruneJournal(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM journal WHERE id NOT IN (
			SELECT id FROM journal ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
