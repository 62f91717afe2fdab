package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"fingerprinter/internal/logging"
	"fingerprinter/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned by lookups that match no file record.
var ErrNotFound = errors.New("record not found")

// Database is the storage gateway for file records and their hashes.
// Mutations are serialized by a write mutex; reads run concurrently
// under WAL.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// New opens (creating if needed) the SQLite database at dbPath, applies the
// schema and runs migrations. The parent directory must exist.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=1&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	filetype TEXT
);

CREATE TABLE IF NOT EXISTS hashes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashtype TEXT NOT NULL,
	hashvalue TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_hash (
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	hash_id INTEGER NOT NULL REFERENCES hashes(id) ON DELETE CASCADE,
	PRIMARY KEY (file_id, hash_id)
);

CREATE INDEX IF NOT EXISTS idx_hashes_type_value ON hashes(hashtype, hashvalue);
CREATE INDEX IF NOT EXISTS idx_file_hash_hash ON file_hash(hash_id);

CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	if _, err = d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	err = d.runMigrations(ctx)
	return err
}

// runMigrations applies additive schema migrations.
func (d *Database) runMigrations(ctx context.Context) error {
	// Migration 1: files.updated_at records when hashes were last written.
	var columnExists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('files')
		WHERE name='updated_at'
	`).Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("failed to check for updated_at column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating database: adding updated_at column to files table")

		// SQLite doesn't allow expressions in ALTER TABLE ADD COLUMN DEFAULT
		if _, err := d.db.ExecContext(ctx, `
			ALTER TABLE files ADD COLUMN updated_at INTEGER NOT NULL DEFAULT 0
		`); err != nil {
			return fmt.Errorf("failed to add updated_at column: %w", err)
		}

		if _, err := d.db.ExecContext(ctx, `
			UPDATE files SET updated_at = strftime('%s', 'now')
		`); err != nil {
			return fmt.Errorf("failed to initialize updated_at values: %w", err)
		}

		logging.Info("Migration complete: updated_at column added and initialized")
	}

	// Migration 2: stores written before per-file hash uniqueness may hold
	// several rows for one (file, hashtype); keep the newest.
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM hashes WHERE id IN (
			SELECT h.id FROM hashes h
			JOIN file_hash fh ON fh.hash_id = h.id
			WHERE EXISTS (
				SELECT 1 FROM hashes h2
				JOIN file_hash fh2 ON fh2.hash_id = h2.id
				WHERE fh2.file_id = fh.file_id AND h2.hashtype = h.hashtype AND h2.id > h.id
			)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to remove duplicate hashes: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logging.Info("Migration complete: removed %d duplicate hash records", n)
	}

	return nil
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// BeginBatch starts a transaction. The caller must hold the write mutex and
// finish with EndBatch.
func (d *Database) BeginBatch(ctx context.Context) (*sql.Tx, time.Time, error) {
	start := time.Now()
	tx, err := d.db.BeginTx(ctx, nil)
	recordQuery("begin_transaction", start, err)
	return tx, start, err
}

// EndBatch commits the transaction, or rolls it back when err is non-nil.
func (d *Database) EndBatch(tx *sql.Tx, started time.Time, err error) error {
	duration := time.Since(started).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbStart := time.Now()
		rbErr := tx.Rollback()
		recordQuery("rollback", rbStart, rbErr)
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	commitStart := time.Now()
	err = tx.Commit()
	recordQuery("commit", commitStart, err)
	return err
}

// Reset drops every table and recreates an empty schema.
func (d *Database) Reset(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("reset", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err = d.db.ExecContext(ctx, `
		DROP TABLE IF EXISTS file_hash;
		DROP TABLE IF EXISTS hashes;
		DROP TABLE IF EXISTS files;
		DROP TABLE IF EXISTS metadata;
	`)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}

	if err = d.initialize(ctx); err != nil {
		return fmt.Errorf("failed to recreate schema: %w", err)
	}

	logging.Info("Database schema reset")
	return nil
}

// Vacuum optimizes the database.
func (d *Database) Vacuum(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("vacuum", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "VACUUM")
	return err
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDatabasePermissions logs the state of the database directory and
// files, and restores write permission on WAL/SHM files left read-only.
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	if info, err := os.Stat(dbPath); err == nil {
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", dbPath, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file is read-only! Mode: %v", info.Mode())
		}
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		path := dbPath + suffix
		info, err := os.Stat(path)
		if err != nil || info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			logging.Error("Failed to fix permissions on %s: %v", path, chmodErr)
		} else {
			logging.Info("Fixed permissions on %s", path)
		}
	}

	return nil
}
