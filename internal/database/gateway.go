package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"fingerprinter/internal/logging"
	"fingerprinter/internal/metrics"
	"fingerprinter/internal/xerrors"
)

// AddAll records new files with their initial hashes in one transaction and
// returns the number of file records created. A path that turns out to be
// stored already has its hashes merged instead.
func (d *Database) AddAll(ctx context.Context, entries []Entry) (int, error) {
	res, err := d.write(ctx, "add_file", func(tx *sql.Tx) (FlushResult, error) {
		var res FlushResult
		for _, e := range entries {
			created, err := d.putTx(ctx, tx, e.Path, e.FileType, e.Hashes)
			if err != nil {
				return res, err
			}
			count(&res, created)
		}
		return res, nil
	})
	return res.Added, err
}

// UpdateHashes merges hashes into the record for path. A hash for an
// algorithm already stored replaces the old value. filetype is written when
// the record has none yet.
func (d *Database) UpdateHashes(ctx context.Context, path, filetype string, hashes map[string]string) error {
	_, err := d.write(ctx, "update_hashes", func(tx *sql.Tx) (FlushResult, error) {
		_, err := d.putTx(ctx, tx, path, filetype, hashes)
		return FlushResult{}, err
	})
	return err
}

// Flush writes a batch in a single transaction: new entries are added and
// existing ones updated. Either the whole batch is committed or none of it.
func (d *Database) Flush(ctx context.Context, batch []Entry) (FlushResult, error) {
	if len(batch) == 0 {
		return FlushResult{}, nil
	}

	start := time.Now()
	res, err := d.write(ctx, "flush", func(tx *sql.Tx) (FlushResult, error) {
		var res FlushResult
		for _, e := range batch {
			if len(e.Hashes) == 0 {
				continue
			}
			created, err := d.putTx(ctx, tx, e.Path, e.FileType, e.Hashes)
			if err != nil {
				return res, err
			}
			if created && e.Existing {
				logging.Debug("Record for %s vanished since planning, recreated", e.Path)
			}
			count(&res, created)
		}
		return res, nil
	})
	metrics.DBTransactionDuration.WithLabelValues("flush").Observe(time.Since(start).Seconds())
	if err != nil {
		return FlushResult{}, err
	}

	logging.Debug("Flushed %d results (%d added, %d updated)", len(batch), res.Added, res.Updated)
	return res, nil
}

func count(res *FlushResult, created bool) {
	if created {
		res.Added++
	} else {
		res.Updated++
	}
}

// write runs fn in a transaction under the write mutex. Failures are
// reported as storage errors.
func (d *Database) write(ctx context.Context, op string, fn func(*sql.Tx) (FlushResult, error)) (FlushResult, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(op, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	tx, started, err := d.BeginBatch(ctx)
	if err != nil {
		err = xerrors.Wrap(xerrors.KindStorage, op, d.dbPath, err)
		return FlushResult{}, err
	}

	res, fnErr := fn(tx)
	if err = d.EndBatch(tx, started, fnErr); err != nil {
		err = xerrors.Wrap(xerrors.KindStorage, op, d.dbPath, err)
		return FlushResult{}, err
	}
	return res, nil
}

// putTx upserts the file row for path and sets each hash, replacing any
// stored value for the same algorithm. It reports whether the file row was
// created.
func (d *Database) putTx(ctx context.Context, tx *sql.Tx, path, filetype string, hashes map[string]string) (bool, error) {
	var fileID int64
	created := false

	err := tx.QueryRowContext(ctx, "SELECT id FROM files WHERE path = ?", path).Scan(&fileID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			"INSERT INTO files (path, filetype, updated_at) VALUES (?, ?, strftime('%s', 'now'))",
			path, nullable(filetype))
		if err != nil {
			return false, fmt.Errorf("insert file %s: %w", path, err)
		}
		if fileID, err = res.LastInsertId(); err != nil {
			return false, err
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("look up file %s: %w", path, err)
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE files SET
				filetype = COALESCE(filetype, ?),
				updated_at = strftime('%s', 'now')
			WHERE id = ?
		`, nullable(filetype), fileID); err != nil {
			return false, fmt.Errorf("update file %s: %w", path, err)
		}
	}

	algorithms := make([]string, 0, len(hashes))
	for algorithm := range hashes {
		algorithms = append(algorithms, algorithm)
	}
	sort.Strings(algorithms)

	for _, algorithm := range algorithms {
		if err := setHashTx(ctx, tx, fileID, algorithm, hashes[algorithm]); err != nil {
			return false, fmt.Errorf("set %s for %s: %w", algorithm, path, err)
		}
	}

	return created, nil
}

func setHashTx(ctx context.Context, tx *sql.Tx, fileID int64, algorithm, value string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE hashes SET hashvalue = ?
		WHERE hashtype = ? AND id IN (SELECT hash_id FROM file_hash WHERE file_id = ?)
	`, value, algorithm, fileID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	res, err = tx.ExecContext(ctx, "INSERT INTO hashes (hashtype, hashvalue) VALUES (?, ?)", algorithm, value)
	if err != nil {
		return err
	}
	hashID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO file_hash (file_id, hash_id) VALUES (?, ?)", fileID, hashID)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// GetCachedItems returns every committed (path, algorithm) pair.
func (d *Database) GetCachedItems(ctx context.Context) ([]CachedItem, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_cached_items", start, err) }()

	rows, err := d.db.QueryContext(ctx, `
		SELECT f.path, h.hashtype
		FROM files f
		JOIN file_hash fh ON fh.file_id = f.id
		JOIN hashes h ON h.id = fh.hash_id
	`)
	if err != nil {
		err = xerrors.Wrap(xerrors.KindStorage, "get_cached_items", d.dbPath, err)
		return nil, err
	}
	defer rows.Close()

	var items []CachedItem
	for rows.Next() {
		var item CachedItem
		if err = rows.Scan(&item.Path, &item.Algorithm); err != nil {
			err = xerrors.Wrap(xerrors.KindStorage, "get_cached_items", d.dbPath, err)
			return nil, err
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		err = xerrors.Wrap(xerrors.KindStorage, "get_cached_items", d.dbPath, err)
		return nil, err
	}
	return items, nil
}
