package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestDB creates a database in a temporary directory.
func setupTestDB(t testing.TB) (db *Database, dbPath string) {
	t.Helper()

	dbPath = filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, dbPath
}

func TestRecordQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		operation string
		err       error
	}{
		{"successful query", "test_operation", nil},
		{"failed query", "test_operation", errors.New("test error")},
		{"empty operation name", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Must not panic.
			recordQuery(tt.operation, time.Now(), tt.err)
		})
	}
}

func TestNewDatabase(t *testing.T) {
	t.Parallel()

	db, dbPath := setupTestDB(t)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}

	var mode string
	if err := db.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestNewDatabaseMissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "test.db"))
	if err == nil {
		t.Error("expected error for a database in a missing directory")
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	db, err := New(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.AddAll(ctx, []Entry{{Path: "/a", Hashes: map[string]string{"md5": "aa"}}}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = New(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	rec, err := db.GetFile(ctx, "/a")
	if err != nil {
		t.Fatalf("GetFile after reopen failed: %v", err)
	}
	if rec.Hashes["md5"] != "aa" {
		t.Errorf("hashes after reopen = %v", rec.Hashes)
	}
}

func TestMigrationAddsUpdatedAt(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	// Recreate the pre-migration files table.
	if _, err := db.db.ExecContext(ctx, `
		DROP TABLE file_hash;
		DROP TABLE files;
		CREATE TABLE files (id INTEGER PRIMARY KEY AUTOINCREMENT, path TEXT NOT NULL UNIQUE, filetype TEXT);
		CREATE TABLE file_hash (file_id INTEGER NOT NULL, hash_id INTEGER NOT NULL, PRIMARY KEY (file_id, hash_id));
		INSERT INTO files (path) VALUES ('/old');
	`); err != nil {
		t.Fatal(err)
	}

	if err := db.runMigrations(ctx); err != nil {
		t.Fatalf("runMigrations failed: %v", err)
	}

	rec, err := db.GetFile(ctx, "/old")
	if err != nil {
		t.Fatal(err)
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("updated_at was not initialized by the migration")
	}
}

func TestMigrationRemovesDuplicateHashes(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.db.ExecContext(ctx, `
		INSERT INTO files (id, path) VALUES (1, '/dup');
		INSERT INTO hashes (id, hashtype, hashvalue) VALUES (1, 'md5', 'old'), (2, 'md5', 'new'), (3, 'sha1', 'keep');
		INSERT INTO file_hash (file_id, hash_id) VALUES (1, 1), (1, 2), (1, 3);
	`); err != nil {
		t.Fatal(err)
	}

	if err := db.runMigrations(ctx); err != nil {
		t.Fatalf("runMigrations failed: %v", err)
	}

	rec, err := db.GetFile(ctx, "/dup")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Hashes) != 2 || rec.Hashes["md5"] != "new" || rec.Hashes["sha1"] != "keep" {
		t.Errorf("hashes after migration = %v", rec.Hashes)
	}
}

func TestResetAndVacuum(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.AddAll(ctx, []Entry{{Path: "/a", Hashes: map[string]string{"md5": "aa"}}}); err != nil {
		t.Fatal(err)
	}
	if err := db.SetLastRun(ctx, time.Now()); err != nil {
		t.Fatal(err)
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	items, err := db.GetCachedItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("cached items after reset = %d, want 0", len(items))
	}
	if last, err := db.GetLastRun(ctx); err != nil || !last.IsZero() {
		t.Errorf("GetLastRun after reset = %v, %v", last, err)
	}

	if err := db.Vacuum(ctx); err != nil {
		t.Errorf("Vacuum failed: %v", err)
	}
}

func TestLastRunRoundTrip(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	last, err := db.GetLastRun(ctx)
	if err != nil || !last.IsZero() {
		t.Fatalf("GetLastRun on empty store = %v, %v", last, err)
	}

	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	if err := db.SetLastRun(ctx, now); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetLastRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(now) {
		t.Errorf("GetLastRun = %v, want %v", got, now)
	}
}
