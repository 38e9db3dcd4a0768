package storage

import "database/sql"

// migrateV001 creates the key-value table and seeds both keys with empty
// lists so the first read sees a version.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			version    INTEGER NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`INSERT OR IGNORE INTO kv (key, value) VALUES ('trackedURLs', '[]')`,
		`INSERT OR IGNORE INTO kv (key, value) VALUES ('videoHistory', '[]')`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
