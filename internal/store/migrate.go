package store

import (
	"database/sql"
	"fmt"
)

// Migration is a single schema step
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is applied in order; append new steps with increasing versions
var migrations = []Migration{
	{
		Version:     1,
		Description: "analyses table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    target_url TEXT NOT NULL DEFAULT '',
    target_title TEXT NOT NULL DEFAULT '',
    query TEXT NOT NULL DEFAULT '',
    risk_score INTEGER NOT NULL DEFAULT 0,
    total_sentences INTEGER NOT NULL DEFAULT 0,
    report_json TEXT NOT NULL,
    reviews_json TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "normalized page url for saved-analysis lookup",
		Up: func(tx *sql.Tx) error {
			var count int
			if err := tx.QueryRow(
				"SELECT COUNT(*) FROM pragma_table_info('analyses') WHERE name = 'page_key'",
			).Scan(&count); err != nil {
				return err
			}
			if count == 0 {
				if _, err := tx.Exec("ALTER TABLE analyses ADD COLUMN page_key TEXT NOT NULL DEFAULT ''"); err != nil {
					return err
				}
			}
			_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_analyses_page ON analyses(page_key, created_at)")
			return err
		},
	},
}

func latestVersion() int {
	return migrations[len(migrations)-1].Version
}

// SchemaVersion reads PRAGMA user_version
func (s *Store) SchemaVersion() (int, error) {
	var version int
	if err := s.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// migrate brings the schema up to the latest version
func (s *Store) migrate() error {
	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	if current >= latestVersion() {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		s.log.WithField("version", m.Version).Infof("applying migration: %s", m.Description)

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// user_version is set outside the transaction; the DDL above is idempotent
		if _, err := s.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("set version %d: %w", m.Version, err)
		}
	}
	return nil
}
