// Package state persists small pieces of navigator state in SQLite.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ui_state (
	name       TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rebuilds (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	finished_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL,
	files       INTEGER NOT NULL DEFAULT 0,
	keys        INTEGER NOT NULL DEFAULT 0,
	vals        INTEGER NOT NULL DEFAULT 0,
	result      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
`

// SelectionKey is the ui_state row holding the navigator's selected node.
const SelectionKey = "facets.selection"

// Rebuild is one row of the rebuild history.
type Rebuild struct {
	ID         int64
	FinishedAt time.Time
	Duration   time.Duration
	Files      int
	Keys       int
	Values     int
	Result     string
	Error      string
}

// Store is the persistence surface used by the facet service.
type Store interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Put(ctx context.Context, name, value string) error
	RecordRebuild(ctx context.Context, r Rebuild) (int64, error)
	LastRebuild(ctx context.Context) (*Rebuild, error)
}

var _ Store = (*DB)(nil)

// DB wraps a sql.DB with state operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("state: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the raw value stored under name. ok is false when the row
// does not exist.
func (db *DB) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM ui_state WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("state: get %s: %w", name, err)
	}
	return value, true, nil
}

// Put stores value under name exactly as given.
func (db *DB) Put(ctx context.Context, name, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO ui_state (name, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, name, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("state: put %s: %w", name, err)
	}
	return nil
}

// RecordRebuild appends a rebuild to the history and returns its id.
func (db *DB) RecordRebuild(ctx context.Context, r Rebuild) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO rebuilds (finished_at, duration_ms, files, keys, vals, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.FinishedAt.UTC(), r.Duration.Milliseconds(), r.Files, r.Keys, r.Values, r.Result, r.Error)
	if err != nil {
		return 0, fmt.Errorf("state: record rebuild: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("state: record rebuild: %w", err)
	}
	return id, nil
}

// LastRebuild returns the most recent rebuild, or nil when none ran yet.
func (db *DB) LastRebuild(ctx context.Context) (*Rebuild, error) {
	var (
		r  Rebuild
		ms int64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, finished_at, duration_ms, files, keys, vals, result, error
		FROM rebuilds ORDER BY id DESC LIMIT 1
	`).Scan(&r.ID, &r.FinishedAt, &ms, &r.Files, &r.Keys, &r.Values, &r.Result, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: last rebuild: %w", err)
	}
	r.Duration = time.Duration(ms) * time.Millisecond
	return &r, nil
}
