// Package db provides the SQLite-backed metadata store for crates,
// releases, builds and owners.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookup queries when no row matches.
var ErrNotFound = errors.New("not found")

// PoolError wraps a failure to acquire a connection from the pool. The web
// layer maps it unconditionally to an internal error.
type PoolError struct {
	Err error
}

func (e *PoolError) Error() string {
	return "connection pool: " + e.Err.Error()
}

func (e *PoolError) Unwrap() error {
	return e.Err
}

// DB wraps the sql connection pool.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the metadata database at dbPath.
// Use ":memory:" for an in-memory database.
func Open(dbPath string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	d := &DB{db: sqlDB}
	if err := d.initialize(); err != nil {
		_ = sqlDB.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return d, nil
}

func (d *DB) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS releases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crate_id INTEGER NOT NULL REFERENCES crates(id),
		version TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		readme TEXT NOT NULL DEFAULT '',
		yanked INTEGER NOT NULL DEFAULT 0,
		downloads INTEGER NOT NULL DEFAULT 0,
		release_time INTEGER NOT NULL,
		UNIQUE(crate_id, version)
	);
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		release_id INTEGER NOT NULL REFERENCES releases(id),
		status TEXT NOT NULL,
		output TEXT NOT NULL DEFAULT '',
		build_time INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS owners (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		login TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS crate_owners (
		crate_id INTEGER NOT NULL REFERENCES crates(id),
		owner_id INTEGER NOT NULL REFERENCES owners(id),
		PRIMARY KEY (crate_id, owner_id)
	);
	CREATE INDEX IF NOT EXISTS idx_releases_crate ON releases(crate_id);
	CREATE INDEX IF NOT EXISTS idx_releases_time ON releases(release_time);
	CREATE INDEX IF NOT EXISTS idx_builds_release ON builds(release_id);
	`
	_, err := d.db.Exec(schema)
	return err
}

// Acquire checks out a dedicated connection from the pool. Failures are
// wrapped in *PoolError so callers can distinguish pool exhaustion from
// query errors.
func (d *DB) Acquire(ctx context.Context) (*sql.Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, &PoolError{Err: err}
	}
	return conn, nil
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return &PoolError{Err: err}
	}
	return nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}
