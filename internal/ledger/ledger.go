// Package ledger records conversion fingerprints in SQLite so repeated runs
// can skip unchanged notebooks and unchanged merge groups.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversions (
	source      TEXT PRIMARY KEY,
	output      TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	captured    TEXT NOT NULL DEFAULT '',
	pages       INTEGER NOT NULL DEFAULT 0,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS merges (
	output     TEXT PRIMARY KEY,
	digest     TEXT NOT NULL,
	members    INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversions_output ON conversions(output);
`

// Entry is one converted notebook.
type Entry struct {
	Source      string
	Output      string
	Fingerprint string
	Captured    time.Time // zero when unknown
	Pages       int
	UpdatedAt   time.Time
}

// DB wraps a sql.DB with ledger operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the ledger database and applies the schema.
// ":memory:" gives a private in-memory ledger.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	// one connection: a single writer, and one shared in-memory database
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Lookup returns the entry recorded for source.
func (db *DB) Lookup(ctx context.Context, source string) (Entry, bool, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT source, output, fingerprint, captured, pages, updated_at
		FROM conversions WHERE source = ?`, source)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("ledger: lookup %s: %w", source, err)
	}
	return e, true, nil
}

// Record inserts or replaces the entry for e.Source.
func (db *DB) Record(ctx context.Context, e Entry) error {
	captured := ""
	if !e.Captured.IsZero() {
		captured = e.Captured.UTC().Format(time.RFC3339Nano)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO conversions (source, output, fingerprint, captured, pages, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			output      = excluded.output,
			fingerprint = excluded.fingerprint,
			captured    = excluded.captured,
			pages       = excluded.pages,
			updated_at  = excluded.updated_at
	`, e.Source, e.Output, e.Fingerprint, captured, e.Pages, db.now().UTC())
	if err != nil {
		return fmt.Errorf("ledger: record %s: %w", e.Source, err)
	}
	return nil
}

// Forget removes the entry for source.
func (db *DB) Forget(ctx context.Context, source string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM conversions WHERE source = ?`, source); err != nil {
		return fmt.Errorf("ledger: forget %s: %w", source, err)
	}
	return nil
}

// Entries returns every conversion ordered by source path.
func (db *DB) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT source, output, fingerprint, captured, pages, updated_at
		FROM conversions ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var captured string
	if err := s.Scan(&e.Source, &e.Output, &e.Fingerprint, &captured, &e.Pages, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	if captured != "" {
		t, err := time.Parse(time.RFC3339Nano, captured)
		if err != nil {
			return Entry{}, fmt.Errorf("bad capture time %q: %w", captured, err)
		}
		e.Captured = t
	}
	return e, nil
}

// GroupDigest returns the digest recorded for a merged output.
func (db *DB) GroupDigest(ctx context.Context, output string) (string, bool, error) {
	var digest string
	err := db.conn.QueryRowContext(ctx, `SELECT digest FROM merges WHERE output = ?`, output).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ledger: group digest %s: %w", output, err)
	}
	return digest, true, nil
}

// RecordGroup stores the digest of a merged output.
func (db *DB) RecordGroup(ctx context.Context, output, digest string, members int) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO merges (output, digest, members, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(output) DO UPDATE SET
			digest     = excluded.digest,
			members    = excluded.members,
			updated_at = excluded.updated_at
	`, output, digest, members, db.now().UTC())
	if err != nil {
		return fmt.Errorf("ledger: record group %s: %w", output, err)
	}
	return nil
}
