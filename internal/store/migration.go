package store

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 2

// RunMigrations applies any pending database migrations.
func (s *Store) RunMigrations() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version < 2 {
		if err := s.migrateToV2(); err != nil {
			return fmt.Errorf("migration to v2 failed: %w", err)
		}
	}

	return nil
}

// getSchemaVersion returns the current schema version, 1 if not set.
func (s *Store) getSchemaVersion() (int, error) {
	var tableName string
	err := s.db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='cmc_schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		// Table doesn't exist, this is v1
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 1) FROM cmc_schema_version").Scan(&version)
	if err != nil {
		return 1, nil
	}

	return version, nil
}

// migrateToV2 adds the seq column to the journal and the resolved_at
// index used by pruning.
func (s *Store) migrateToV2() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS cmc_schema_version (
		version INTEGER PRIMARY KEY
	)`); err != nil {
		return err
	}

	if s.tableExists("journal") {
		if !s.columnExists("journal", "seq") {
			if _, err := s.db.Exec(`ALTER TABLE journal ADD COLUMN seq INTEGER NOT NULL DEFAULT 0`); err != nil {
				return err
			}
		}
		if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_journal_resolved ON journal(resolved_at)`); err != nil {
			return err
		}
	}

	_, err := s.db.Exec("INSERT OR REPLACE INTO cmc_schema_version (version) VALUES (?)", 2)
	return err
}

// tableExists checks if a table exists.
func (s *Store) tableExists(table string) bool {
	var name string
	err := s.db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name = ?
	`, table).Scan(&name)
	return err == nil
}

// columnExists checks if a column exists in a table.
func (s *Store) columnExists(table, column string) bool {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?)
		WHERE name = ?
	`, table, column).Scan(&count)
	return err == nil && count > 0
}
