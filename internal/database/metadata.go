package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const lastRunKey = "last_run"

// GetMetadata retrieves a metadata value by key. It returns sql.ErrNoRows
// when the key is absent.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetLastRun returns when the last run completed, or the zero time.
func (d *Database) GetLastRun(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, lastRunKey)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastRun stores the completion time of a run.
func (d *Database) SetLastRun(ctx context.Context, t time.Time) error {
	return d.SetMetadata(ctx, lastRunKey, t.UTC().Format(time.RFC3339))
}
