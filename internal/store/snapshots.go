package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilupskalvis/cmc/internal/models"
)

// PageSnapshot is the persisted last-fetched window of a collection.
// It lets a fresh process render cached content before the first fetch
// completes.
type PageSnapshot struct {
	Collection string
	Items      []models.Item
	Pagination models.Pagination
	FetchedAt  time.Time
}

// SaveSnapshot stores or replaces the snapshot for a collection.
func (s *Store) SaveSnapshot(snap *PageSnapshot) error {
	items, err := json.Marshal(snap.Items)
	if err != nil {
		return fmt.Errorf("marshal snapshot items: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO snapshots
		(collection, items, total_items, page, page_size, search, sort_field, sort_dir, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Collection,
		string(items),
		snap.Pagination.TotalItems,
		snap.Pagination.Page,
		snap.Pagination.PageSize,
		snap.Pagination.Search,
		snap.Pagination.SortField,
		string(snap.Pagination.SortDir),
		snap.FetchedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.Collection, err)
	}
	return nil
}

// GetSnapshot returns the stored snapshot for a collection, or nil
// when none exists.
func (s *Store) GetSnapshot(collection string) (*PageSnapshot, error) {
	row := s.db.QueryRow(`
		SELECT collection, items, total_items, page, page_size, search, sort_field, sort_dir, fetched_at
		FROM snapshots WHERE collection = ?`, collection)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", collection, err)
	}
	return snap, nil
}

// ListSnapshots returns every stored snapshot ordered by collection.
func (s *Store) ListSnapshots() ([]*PageSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT collection, items, total_items, page, page_size, search, sort_field, sort_dir, fetched_at
		FROM snapshots ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*PageSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteSnapshot removes a collection's snapshot.
func (s *Store) DeleteSnapshot(collection string) error {
	_, err := s.db.Exec("DELETE FROM snapshots WHERE collection = ?", collection)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r rowScanner) (*PageSnapshot, error) {
	var (
		snap      PageSnapshot
		itemsJSON string
		sortDir   string
		fetchedAt string
	)
	err := r.Scan(
		&snap.Collection,
		&itemsJSON,
		&snap.Pagination.TotalItems,
		&snap.Pagination.Page,
		&snap.Pagination.PageSize,
		&snap.Pagination.Search,
		&snap.Pagination.SortField,
		&sortDir,
		&fetchedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(itemsJSON), &snap.Items); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot items: %w", err)
	}
	snap.Pagination.SortDir = models.SortDir(sortDir)
	snap.FetchedAt = parseTimestamp(fetchedAt)
	return &snap, nil
}
