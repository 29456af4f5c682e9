// Package store provides the bridge's persistent audit ledger, backed by an
// embedded SQLite database. It owns the database lifecycle and exposes a
// minimal API used by the rest of the server.
//
// Migration design: SQL statements are kept in the [migrations] slice as
// ordered strings. Each is applied exactly once; the applied version is
// tracked in the schema_migrations table. To add a migration, append a new
// string — never edit or reorder existing entries.
package store

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// migrations holds the ordered list of DDL/DML statements that bring the
// schema up to date. Index i corresponds to version i+1.
var migrations = []string{
	// v1 — connection events: one row per peer connect/disconnect.
	`CREATE TABLE IF NOT EXISTS connection_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		peer_id    INTEGER NOT NULL,
		event      TEXT NOT NULL,
		remote     TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v2 — keybinding reload events, one row per successful table publish.
	`CREATE TABLE IF NOT EXISTS reload_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		source     TEXT NOT NULL,
		hash       TEXT NOT NULL,
		entries    INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v3 — resolve events, one row per callback name lookup, successful or not.
	`CREATE TABLE IF NOT EXISTS resolve_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		peer_id    INTEGER NOT NULL,
		name       TEXT NOT NULL,
		resolved   INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v4 — key/value settings, read and written through GetSetting/SetSetting;
	// startup configuration does not read this table.
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	// v5, v6 — indexes for performance
	`CREATE INDEX IF NOT EXISTS idx_connection_events_created ON connection_events(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_resolve_events_created ON resolve_events(created_at)`,
	// v7 — enable WAL mode
	`PRAGMA journal_mode=WAL`,
}

// Store wraps a SQLite database and exposes audit-ledger operations.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path and applies any pending
// migrations. Use ":memory:" for ephemeral in-process storage (tests).
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Allow up to four connections; SQLite's own locking (with the busy
	// timeout below) serialises writes.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	// Enable WAL mode for concurrent readers.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		log.Printf("[store] WAL mode: %v (non-fatal)", err)
	}
	// Busy timeout to avoid SQLITE_BUSY on concurrent access.
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		log.Printf("[store] busy_timeout: %v (non-fatal)", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema_migrations table (if absent) and applies any
// migrations whose version number exceeds the current maximum.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		v := i + 1
		if v <= current {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", v, err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO schema_migrations(version) VALUES(?)`, v,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		log.Printf("[store] applied migration v%d", v)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// GetSetting returns the value stored under key. The second return value is
// false when the key does not exist; an error is only returned for real I/O
// failures.
func (s *Store) GetSetting(key string) (string, bool, error) {
	var val string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&val)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetSetting upserts key → value in the settings table.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// ---------------------------------------------------------------------------
// Connection events
// ---------------------------------------------------------------------------

// ConnectionEvent represents a row in the connection_events table.
type ConnectionEvent struct {
	ID        int64
	PeerID    int64
	Event     string // "connect" or "disconnect"
	Remote    string
	CreatedAt int64
}

// RecordConnect logs a peer connecting from remote.
func (s *Store) RecordConnect(peerID int64, remote string) error {
	return s.recordConnectionEvent(peerID, "connect", remote)
}

// RecordDisconnect logs a peer disconnecting.
func (s *Store) RecordDisconnect(peerID int64) error {
	return s.recordConnectionEvent(peerID, "disconnect", "")
}

func (s *Store) recordConnectionEvent(peerID int64, event, remote string) error {
	_, err := s.db.Exec(
		`INSERT INTO connection_events(peer_id, event, remote) VALUES(?,?,?)`,
		peerID, event, remote,
	)
	return err
}

// RecentConnectionEvents returns the most recent connection events, newest
// first, capped at limit rows.
func (s *Store) RecentConnectionEvents(limit int) ([]ConnectionEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, peer_id, event, remote, created_at FROM connection_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ConnectionEvent
	for rows.Next() {
		var e ConnectionEvent
		if err := rows.Scan(&e.ID, &e.PeerID, &e.Event, &e.Remote, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ---------------------------------------------------------------------------
// Keybinding reload events
// ---------------------------------------------------------------------------

// ReloadEvent represents a row in the reload_events table.
type ReloadEvent struct {
	ID        int64
	Source    string
	Hash      string
	Entries   int
	CreatedAt int64
}

// RecordReload logs a successful keybinding table publish.
func (s *Store) RecordReload(source, hash string, entries int) error {
	_, err := s.db.Exec(
		`INSERT INTO reload_events(source, hash, entries) VALUES(?,?,?)`,
		source, hash, entries,
	)
	if err != nil {
		return err
	}
	// Auto-purge oldest entries beyond 1,000.
	_, err = s.db.Exec(`DELETE FROM reload_events WHERE id NOT IN (SELECT id FROM reload_events ORDER BY id DESC LIMIT 1000)`)
	return err
}

// LatestReload returns the most recent reload event, or sql.ErrNoRows if
// none has been recorded yet.
func (s *Store) LatestReload() (ReloadEvent, error) {
	var e ReloadEvent
	err := s.db.QueryRow(
		`SELECT id, source, hash, entries, created_at FROM reload_events ORDER BY id DESC LIMIT 1`,
	).Scan(&e.ID, &e.Source, &e.Hash, &e.Entries, &e.CreatedAt)
	return e, err
}

// ---------------------------------------------------------------------------
// Resolve events
// ---------------------------------------------------------------------------

// RecordResolve logs one callback-name lookup, successful or not.
func (s *Store) RecordResolve(peerID int64, name string, resolved bool) error {
	_, err := s.db.Exec(
		`INSERT INTO resolve_events(peer_id, name, resolved) VALUES(?,?,?)`,
		peerID, name, resolved,
	)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`DELETE FROM resolve_events WHERE id NOT IN (SELECT id FROM resolve_events ORDER BY id DESC LIMIT 10000)`)
	return err
}

// ResolveFailureCount returns the number of unresolved callback lookups
// recorded so far.
func (s *Store) ResolveFailureCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM resolve_events WHERE resolved = 0`).Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Maintenance
// ---------------------------------------------------------------------------

// Optimize runs PRAGMA optimize for SQLite query planner statistics.
func (s *Store) Optimize() error {
	_, err := s.db.Exec(`PRAGMA optimize`)
	return err
}

// Backup creates a copy of the database at the given path using SQLite's
// backup API through VACUUM INTO.
func (s *Store) Backup(destPath string) error {
	_, err := s.db.Exec(`VACUUM INTO ?`, destPath)
	return err
}
