// Package store provides a SQLite-backed ingest ledger. Every successful
// document ingest is recorded with its target collection and chunk count so
// operators can list what the vector store holds without querying it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Record is one ingested document.
type Record struct {
	// ID is the ledger row ID.
	ID int64 `json:"id"`
	// Filename is the uploaded file name or source URL.
	Filename string `json:"filename"`
	// Collection is the vector store collection the chunks landed in.
	Collection string `json:"collection"`
	// Chunks is the number of chunks the document produced.
	Chunks int `json:"chunks"`
	// IngestedAt is when the ingest completed.
	IngestedAt time.Time `json:"ingested_at"`
}

// Ledger persists and lists ingest records. Implementations must be safe
// for concurrent use.
type Ledger interface {
	// Record persists one ingest.
	Record(ctx context.Context, filename, collection string, chunks int) error
	// List returns all records, newest first, optionally filtered by
	// collection. An empty collection returns everything.
	List(ctx context.Context, collection string) ([]Record, error)
	// Close releases any resources held by the ledger.
	Close() error
}

// SQLiteLedger is a Ledger backed by a local SQLite database.
type SQLiteLedger struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the ingest ledger database.
// It resolves to ~/.seqrag/ledger.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".seqrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "ledger.db"), nil
}

// Open opens (or creates) a SQLiteLedger at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteLedger, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteLedger{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteLedger) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingests (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    filename     TEXT    NOT NULL,
    collection   TEXT    NOT NULL,
    chunks       INTEGER NOT NULL,
    ingested_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_ingests_collection_ingested
    ON ingests (collection, ingested_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists one ingest.
func (s *SQLiteLedger) Record(ctx context.Context, filename, collection string, chunks int) error {
	const q = `INSERT INTO ingests (filename, collection, chunks, ingested_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, filename, collection, chunks, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	return nil
}

// List returns all records, newest first. An empty collection filter
// returns every record.
func (s *SQLiteLedger) List(ctx context.Context, collection string) ([]Record, error) {
	q := `SELECT id, filename, collection, chunks, ingested_at FROM ingests`
	args := []any{}
	if collection != "" {
		q += ` WHERE collection = ?`
		args = append(args, collection)
	}
	q += ` ORDER BY ingested_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var ts int64
		if err := rows.Scan(&r.ID, &r.Filename, &r.Collection, &r.Chunks, &ts); err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		r.IngestedAt = time.Unix(ts, 0)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list rows: %w", err)
	}
	return records, nil
}

// Close releases the database connection pool.
func (s *SQLiteLedger) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
