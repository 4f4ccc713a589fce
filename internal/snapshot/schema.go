package snapshot

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schema mirrors the teacher's normalized-table-plus-metadata-blob shape:
// a small set of scalar columns per concept for indexable fields, with the
// belief/spike themselves kept as a JSON blob the way thoughts/insights
// keep their "metadata TEXT" column.
const schema = `
CREATE TABLE IF NOT EXISTS schema_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS concepts (
	key TEXT PRIMARY KEY,
	priority REAL NOT NULL,
	usefulness REAL NOT NULL,
	use_count INTEGER NOT NULL,
	last_used INTEGER NOT NULL,
	belief TEXT,
	belief_spike TEXT
);

CREATE TABLE IF NOT EXISTS implications (
	concept_key TEXT NOT NULL,
	term TEXT NOT NULL,
	frequency REAL NOT NULL,
	confidence REAL NOT NULL,
	stamp TEXT NOT NULL,
	offset_time REAL NOT NULL,
	creation_time INTEGER NOT NULL,
	-- is_link distinguishes a declarative, non-cycled implication_links
	-- entry (1) from a PreconditionBeliefs table entry (0).
	is_link INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (concept_key, term),
	FOREIGN KEY (concept_key) REFERENCES concepts(key) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_implications_concept ON implications(concept_key);
`

func initializeSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("snapshot: create schema: %w", err)
	}

	var v int
	err := db.QueryRow("SELECT value FROM schema_metadata WHERE key = 'version'").Scan(&v)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec("INSERT INTO schema_metadata (key, value) VALUES ('version', ?)", schemaVersion); err != nil {
			return fmt.Errorf("snapshot: set schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("snapshot: query schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("snapshot: schema version mismatch: expected %d, got %d", schemaVersion, v)
	}
	return nil
}

func configurePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("snapshot: %s: %w", p, err)
		}
	}
	return nil
}
