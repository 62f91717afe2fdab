package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"fingerprinter/internal/logging"
	"fingerprinter/internal/metrics"
)

const (
	// DefaultPageSize is used by ListFiles when no limit is given.
	DefaultPageSize = 100
	// MaxPageSize caps the ListFiles limit.
	MaxPageSize = 1000
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (FileRecord, error) {
	var (
		rec       FileRecord
		filetype  sql.NullString
		updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.Path, &filetype, &updatedAt); err != nil {
		return rec, err
	}
	rec.FileType = filetype.String
	if updatedAt > 0 {
		rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	}
	rec.Hashes = map[string]string{}
	return rec, nil
}

// GetFile returns the record stored for path, or ErrNotFound.
func (d *Database) GetFile(ctx context.Context, path string) (*FileRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_file", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec, err := scanFile(d.db.QueryRowContext(ctx,
		"SELECT id, path, filetype, updated_at FROM files WHERE path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	records := []FileRecord{rec}
	if err = d.loadHashes(ctx, records); err != nil {
		return nil, err
	}
	return &records[0], nil
}

// FindByHash returns every file whose algorithm digest equals value,
// ordered by path.
func (d *Database) FindByHash(ctx context.Context, algorithm, value string) ([]FileRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("find_by_hash", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT f.id, f.path, f.filetype, f.updated_at
		FROM files f
		JOIN file_hash fh ON fh.file_id = f.id
		JOIN hashes h ON h.id = fh.hash_id
		WHERE h.hashtype = ? AND h.hashvalue = ?
		ORDER BY f.path
	`, algorithm, strings.ToLower(value))
	if err != nil {
		return nil, err
	}

	records, err := collectFiles(rows)
	if err != nil {
		return nil, err
	}
	if err = d.loadHashes(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListFiles returns one page of file records ordered by path.
func (d *Database) ListFiles(ctx context.Context, limit, offset int) (*FileList, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_files", start, err) }()

	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	list := &FileList{Limit: limit, Offset: offset}
	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&list.TotalItems); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, path, filetype, updated_at FROM files ORDER BY path LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}

	if list.Items, err = collectFiles(rows); err != nil {
		return nil, err
	}
	if err = d.loadHashes(ctx, list.Items); err != nil {
		return nil, err
	}
	return list, nil
}

// ForEachFile calls fn for every record in path order, stopping at the first
// error fn returns. Records are read in pages so the store is never held in
// memory at once.
func (d *Database) ForEachFile(ctx context.Context, fn func(FileRecord) error) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("export", start, err) }()

	lastPath := ""
	for {
		var rows *sql.Rows
		rows, err = d.db.QueryContext(ctx,
			"SELECT id, path, filetype, updated_at FROM files WHERE path > ? ORDER BY path LIMIT ?",
			lastPath, MaxPageSize)
		if err != nil {
			return err
		}

		var page []FileRecord
		if page, err = collectFiles(rows); err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		if err = d.loadHashes(ctx, page); err != nil {
			return err
		}

		for _, rec := range page {
			if err = fn(rec); err != nil {
				return err
			}
		}
		lastPath = page[len(page)-1].Path
	}
}

func collectFiles(rows *sql.Rows) ([]FileRecord, error) {
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// loadHashes fills the Hashes map of each record with one query.
func (d *Database) loadHashes(ctx context.Context, records []FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	byID := make(map[int64]*FileRecord, len(records))
	args := make([]any, 0, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
		args = append(args, records[i].ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(records)), ",")
	rows, err := d.db.QueryContext(ctx, `
		SELECT fh.file_id, h.hashtype, h.hashvalue
		FROM file_hash fh
		JOIN hashes h ON h.id = fh.hash_id
		WHERE fh.file_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fileID           int64
			algorithm, value string
		)
		if err := rows.Scan(&fileID, &algorithm, &value); err != nil {
			return err
		}
		if rec, ok := byID[fileID]; ok {
			rec.Hashes[algorithm] = value
		}
	}
	return rows.Err()
}

// CalculateStats counts files and hashes in the store.
func (d *Database) CalculateStats(ctx context.Context) (Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("calculate_stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats := Stats{
		HashesByAlgorithm: map[string]int{},
		FilesByType:       map[string]int{},
	}

	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&stats.TotalFiles); err != nil {
		return stats, err
	}
	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_hash").Scan(&stats.TotalHashes); err != nil {
		return stats, err
	}

	groups := []struct {
		query string
		dest  map[string]int
	}{
		{`SELECT h.hashtype, COUNT(*) FROM hashes h JOIN file_hash fh ON fh.hash_id = h.id GROUP BY h.hashtype`, stats.HashesByAlgorithm},
		{`SELECT COALESCE(filetype, 'unknown'), COUNT(*) FROM files GROUP BY 1`, stats.FilesByType},
	}

	for _, g := range groups {
		if err = scanCounts(ctx, d.db, g.query, g.dest); err != nil {
			return stats, err
		}
	}

	if last, lerr := d.GetLastRun(ctx); lerr == nil {
		stats.LastRun = last
	}

	return stats, nil
}

func scanCounts(ctx context.Context, db *sql.DB, query string, dest map[string]int) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dest[key] = n
	}
	return rows.Err()
}

// GetStats implements metrics.StatsProvider.
func (d *Database) GetStats() metrics.Stats {
	stats, err := d.CalculateStats(context.Background())
	if err != nil {
		logging.Warn("Failed to calculate store statistics: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{
		TotalFiles:        stats.TotalFiles,
		TotalHashes:       stats.TotalHashes,
		HashesByAlgorithm: stats.HashesByAlgorithm,
	}
}
