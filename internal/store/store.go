// Package store provides the SQLite-backed version store: one current row
// per document name plus an append-only history of superseded versions.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	category     TEXT NOT NULL DEFAULT 'uncategorized',
	kind         TEXT NOT NULL CHECK (kind IN ('command', 'plan')),
	content      TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	version      INTEGER NOT NULL DEFAULT 1,
	project_ref  TEXT REFERENCES projects(id) ON DELETE SET NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS document_history (
	id             TEXT NOT NULL,
	version        INTEGER NOT NULL,
	name           TEXT NOT NULL,
	category       TEXT NOT NULL,
	kind           TEXT NOT NULL,
	content        TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	project_ref    TEXT,
	created_at     DATETIME NOT NULL,
	archived_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	change_summary TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (id, version)
);

CREATE TABLE IF NOT EXISTS document_metrics (
	document_id TEXT NOT NULL,
	version     INTEGER NOT NULL,
	metric_name TEXT NOT NULL,
	step        INTEGER NOT NULL,
	value       REAL NOT NULL,
	recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (document_id, version, metric_name, step)
);

CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at);
CREATE INDEX IF NOT EXISTS idx_history_created ON document_history(created_at);
`

// DB wraps a sql.DB with version-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// The connection pool is limited to a single connection so that the
// archive-then-update transaction in Upsert is serialized against any
// concurrent writer; losers of a race observe the new current row on
// their turn instead of overwriting blindly.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
