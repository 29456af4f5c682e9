package store

import (
	"path/filepath"
	"sync"
	"testing"
)

// newFileStore opens a file-backed SQLite database in a temp directory.
// This is needed for concurrent write tests because :memory: databases
// do not support WAL mode properly under concurrent access.
func newFileStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Migration tests
// ---------------------------------------------------------------------------

func TestMigrationVersionSequence(t *testing.T) {
	s := newMemStore(t)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	expected := 1
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if v != expected {
			t.Errorf("expected migration version %d, got %d", expected, v)
		}
		expected++
	}
	if expected-1 != len(migrations) {
		t.Errorf("expected %d migration versions, found %d", len(migrations), expected-1)
	}
}

func TestMigrationAllTablesExist(t *testing.T) {
	s := newMemStore(t)

	tables := []string{
		"settings",
		"connection_events",
		"reload_events",
		"resolve_events",
	}

	for _, table := range tables {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count)
		if err != nil {
			t.Errorf("table %q should exist: %v", table, err)
		}
	}
}

func TestMigrationIndexExists(t *testing.T) {
	s := newMemStore(t)

	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_resolve_events_created'`,
	).Scan(&name)
	if err != nil {
		t.Errorf("index idx_resolve_events_created should exist: %v", err)
	}
}

func TestMigrationJournalModeWAL(t *testing.T) {
	s := newFileStore(t)

	var mode string
	if err := s.db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected journal_mode=wal, got %q", mode)
	}
}

// ---------------------------------------------------------------------------
// Concurrent read/write under WAL mode
// ---------------------------------------------------------------------------

func TestConcurrentReadWrite(t *testing.T) {
	s := newFileStore(t)

	var wg sync.WaitGroup

	// Writer goroutine.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.SetSetting("counter", "value")
		}
	}()

	// Reader goroutines.
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _, _ = s.GetSetting("counter")
			}
		}()
	}

	wg.Wait()
}

// ---------------------------------------------------------------------------
// Concurrent connection event inserts
// ---------------------------------------------------------------------------

func TestConcurrentConnectionEventInserts(t *testing.T) {
	s := newFileStore(t)

	// Concurrent writes to SQLite may encounter SQLITE_BUSY. Verify that
	// the store doesn't panic or corrupt under concurrency, and that
	// at least some writes succeed.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = s.RecordConnect(int64(idx), "10.0.0.1:1")
			}
		}(i)
	}
	wg.Wait()

	events, err := s.RecentConnectionEvents(10000)
	if err != nil {
		t.Fatalf("RecentConnectionEvents: %v", err)
	}
	if len(events) == 0 {
		t.Error("expected at least some connection events after concurrent inserts")
	}
}

// ---------------------------------------------------------------------------
// Concurrent resolve event inserts
// ---------------------------------------------------------------------------

func TestConcurrentResolveEventInserts(t *testing.T) {
	s := newFileStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_ = s.RecordResolve(int64(idx), "SimICPEnter", j%2 == 0)
			}
		}(i)
	}
	wg.Wait()

	n, err := s.ResolveFailureCount()
	if err != nil {
		t.Fatalf("ResolveFailureCount: %v", err)
	}
	if n == 0 {
		t.Error("expected at least some resolve failures recorded after concurrent inserts")
	}
}

// ---------------------------------------------------------------------------
// Auto-purge of reload events beyond 1000 rows
// ---------------------------------------------------------------------------

func TestReloadEventPurgeLogicExists(t *testing.T) {
	s := newMemStore(t)

	// Verify the purge logic works by inserting a modest number and
	// checking that the purge query in RecordReload runs without error.
	for i := 0; i < 50; i++ {
		if err := s.RecordReload("keyfile.ini", "hash", i); err != nil {
			t.Fatalf("RecordReload %d: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM reload_events`).Scan(&count); err != nil {
		t.Fatalf("count reload_events: %v", err)
	}
	if count != 50 {
		t.Errorf("expected 50 entries (below purge threshold), got %d", count)
	}
}

// ---------------------------------------------------------------------------
// Settings round-trip across many keys
// ---------------------------------------------------------------------------

func TestSettingsMultipleKeysIndependent(t *testing.T) {
	s := newMemStore(t)

	s.SetSetting("key1", "val1")
	s.SetSetting("key2", "val2")
	s.SetSetting("key3", "val3")

	for k, want := range map[string]string{"key1": "val1", "key2": "val2", "key3": "val3"} {
		got, ok, err := s.GetSetting(k)
		if err != nil {
			t.Fatalf("GetSetting(%q): %v", k, err)
		}
		if !ok || got != want {
			t.Errorf("GetSetting(%q): got (%q, %v), want (%q, true)", k, got, ok, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Backup
// ---------------------------------------------------------------------------

func TestBackupCreatesValidDB(t *testing.T) {
	s := newMemStore(t)

	s.SetSetting("backup_test", "value123")
	if err := s.RecordConnect(1, "127.0.0.1:1"); err != nil {
		t.Fatalf("RecordConnect: %v", err)
	}

	backupPath := t.TempDir() + "/backup.db"
	if err := s.Backup(backupPath); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	// Open the backup and verify data.
	backup, err := New(backupPath)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer backup.Close()

	val, ok, err := backup.GetSetting("backup_test")
	if err != nil || !ok || val != "value123" {
		t.Errorf("backup setting: val=%q ok=%v err=%v", val, ok, err)
	}

	events, err := backup.RecentConnectionEvents(10)
	if err != nil {
		t.Fatalf("RecentConnectionEvents from backup: %v", err)
	}
	if len(events) != 1 || events[0].Remote != "127.0.0.1:1" {
		t.Errorf("backup connection events: got %v", events)
	}
}

// ---------------------------------------------------------------------------
// Reload events: most recent reload wins LatestReload
// ---------------------------------------------------------------------------

func TestLatestReloadMostRecentFirst(t *testing.T) {
	s := newMemStore(t)

	s.RecordReload("keyfile.ini", "first", 1)
	s.RecordReload("keyfile.ini", "second", 2)
	s.RecordReload("keyfile.ini", "third", 3)

	latest, err := s.LatestReload()
	if err != nil {
		t.Fatalf("LatestReload: %v", err)
	}
	if latest.Hash != "third" {
		t.Errorf("expected most recent reload, got %q", latest.Hash)
	}
}

// ---------------------------------------------------------------------------
// Optimize
// ---------------------------------------------------------------------------

func TestOptimizeRunsWithoutError(t *testing.T) {
	s := newMemStore(t)

	s.SetSetting("k", "v")
	if err := s.Optimize(); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
}
