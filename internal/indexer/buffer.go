package indexer

import (
	"context"
	"sync"
	"time"

	"fingerprinter/internal/database"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/metrics"
)

// Flusher commits a batch of results.
type Flusher interface {
	Flush(ctx context.Context, batch []database.Entry) (database.FlushResult, error)
}

// RetryPolicy controls how often a failed flush is retried. The zero value
// does not retry.
type RetryPolicy struct {
	Retries int
	Backoff time.Duration
}

func (p RetryPolicy) run(ctx context.Context, fn func() error) error {
	err := fn()
	for attempt := 1; err != nil && attempt <= p.Retries; attempt++ {
		logging.Warn("Flush failed (attempt %d/%d): %v", attempt, p.Retries+1, err)
		if p.Backoff > 0 {
			select {
			case <-time.After(p.Backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return err
			}
		}
		err = fn()
	}
	return err
}

// ResultBuffer holds results until the sizer's capacity is reached.
type ResultBuffer struct {
	mu        sync.Mutex
	flusher   Flusher
	sizer     Sizer
	cache     *CacheIndex
	retry     RetryPolicy
	entries   []database.Entry
	fillStart time.Time
	added     int
	updated   int
}

// NewResultBuffer creates a buffer writing through flusher. Committed pairs
// are added to cache when it is non-nil.
func NewResultBuffer(flusher Flusher, sizer Sizer, cache *CacheIndex, retry RetryPolicy) *ResultBuffer {
	return &ResultBuffer{
		flusher:   flusher,
		sizer:     sizer,
		cache:     cache,
		retry:     retry,
		fillStart: time.Now(),
	}
}

// Add buffers a result. Results without any digest are dropped.
func (b *ResultBuffer) Add(r FileResult) {
	if len(r.Digests) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, database.Entry{
		Path:     r.Path,
		FileType: r.MediaType,
		Hashes:   r.Digests,
		Existing: r.Existing,
	})
}

// ShouldFlush reports whether the buffer has reached capacity.
func (b *ResultBuffer) ShouldFlush() bool {
	size := b.sizer.Size()
	metrics.BufferCapacity.Set(float64(size))

	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries) >= size
}

// Len returns the number of buffered results.
func (b *ResultBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Flush commits every buffered result in one batch and clears the buffer.
// On failure the buffer keeps its contents.
func (b *ResultBuffer) Flush(ctx context.Context) (database.FlushResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return database.FlushResult{}, nil
	}

	start := time.Now()
	var res database.FlushResult
	err := b.retry.run(ctx, func() error {
		var err error
		res, err = b.flusher.Flush(ctx, b.entries)
		return err
	})
	metrics.BufferFlushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BufferFlushesTotal.WithLabelValues("error").Inc()
		return database.FlushResult{}, err
	}

	n := len(b.entries)
	metrics.BufferFlushesTotal.WithLabelValues("success").Inc()
	metrics.BufferFlushSize.Observe(float64(n))
	metrics.RunFilesTotal.WithLabelValues("added").Add(float64(res.Added))
	metrics.RunFilesTotal.WithLabelValues("updated").Add(float64(res.Updated))

	if b.cache != nil {
		for _, e := range b.entries {
			for algorithm := range e.Hashes {
				b.cache.Add(e.Path, algorithm)
			}
		}
	}

	b.sizer.Observe(n, time.Since(b.fillStart))
	b.added += res.Added
	b.updated += res.Updated
	b.entries = nil
	b.fillStart = time.Now()

	logging.Debug("Committed %d results", n)
	return res, nil
}

// Totals returns the records added and updated by all flushes so far.
func (b *ResultBuffer) Totals() (added, updated int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.added, b.updated
}
