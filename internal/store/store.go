// Package store provides SQLite-based persistence for cmc. It keeps
// per-collection page snapshots for instant startup and an append-only
// journal of resolved mutations.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store represents the SQLite database store.
type Store struct {
	db *sql.DB
}

// New creates a new store connection.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates the database schema.
func (s *Store) Initialize() error {
	schema := `
	-- Last fetched window per collection
	CREATE TABLE IF NOT EXISTS snapshots (
		collection TEXT PRIMARY KEY,
		items JSON NOT NULL,
		total_items INTEGER NOT NULL,
		page INTEGER NOT NULL,
		page_size INTEGER NOT NULL,
		search TEXT DEFAULT '',
		sort_field TEXT DEFAULT '',
		sort_dir TEXT DEFAULT '',
		fetched_at DATETIME NOT NULL
	);

	-- Resolved mutations (append-only)
	CREATE TABLE IF NOT EXISTS journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		op_id TEXT NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL,
		collection TEXT NOT NULL,
		item_id TEXT NOT NULL,
		item_data JSON,
		previous_data JSON,
		outcome TEXT NOT NULL,
		error_kind TEXT DEFAULT '',
		error_message TEXT DEFAULT '',
		issued_at DATETIME NOT NULL,
		resolved_at DATETIME NOT NULL
	);

	-- Config values
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT
	);

	-- cmc schema version tracking
	CREATE TABLE IF NOT EXISTS cmc_schema_version (
		version INTEGER PRIMARY KEY
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_journal_collection ON journal(collection);
	CREATE INDEX IF NOT EXISTS idx_journal_resolved ON journal(resolved_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Mark as current schema version
	if _, err := s.db.Exec("INSERT OR REPLACE INTO cmc_schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	return nil
}

// KeyLastSync is the kv key recording when the last full sync finished.
const KeyLastSync = "last_sync"

// GetValue gets a value from the key-value store.
func (s *Store) GetValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetValue sets a value in the key-value store.
func (s *Store) SetValue(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?",
		key, value, value,
	)
	return err
}

// parseTimestamp parses a timestamp string from SQLite in various formats.
func parseTimestamp(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999-07:00",
		"2006-01-02 15:04:05-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
