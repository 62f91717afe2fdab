package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fingerprinter/internal/database"
	"fingerprinter/internal/filesystem"
	"fingerprinter/internal/filetype"
	"fingerprinter/internal/hashers"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/memory"
	"fingerprinter/internal/metrics"
	"fingerprinter/internal/workers"
)

const (
	// PolicyStatic flushes at a fixed buffer size.
	PolicyStatic = "static"
	// PolicyAdaptive learns the buffer size from commit throughput.
	PolicyAdaptive = "adaptive"

	// Log progress every this many finished files.
	progressInterval = 1000
)

// Gateway is the storage the indexer reads its cache from and commits to.
type Gateway interface {
	CachedItemSource
	Flusher
	SetLastRun(ctx context.Context, t time.Time) error
}

// Config configures a run.
type Config struct {
	Roots      []string
	Algorithms []*hashers.Algorithm
	// Workers is the number of files in flight (0 = default of 3).
	Workers      int
	BufferPolicy string
	BufferSize   int
	BufferMax    int
	SkipHidden   bool
	// FlushRetry is applied to every flush. The zero value fails fast.
	FlushRetry RetryPolicy
	// Seed drives the adaptive policy's exploration.
	Seed   uint64
	Retry  filesystem.RetryConfig
	Memory *memory.Monitor
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Workers:      workers.DefaultFileWorkers,
		BufferPolicy: PolicyStatic,
		BufferSize:   DefaultBufferSize,
		BufferMax:    DefaultBufferMax,
		Retry:        filesystem.DefaultRetryConfig(),
		Seed:         uint64(time.Now().UnixNano()),
	}
}

// Summary reports what a run did.
type Summary struct {
	Planned        int            `json:"planned" yaml:"planned"`
	Added          int            `json:"added" yaml:"added"`
	Updated        int            `json:"updated" yaml:"updated"`
	Unsupported    int            `json:"unsupported" yaml:"unsupported"`
	SkippedNonFile int            `json:"skippedNonFile" yaml:"skipped_non_file"`
	AccessErrors   int            `json:"accessErrors" yaml:"access_errors"`
	Cached         int            `json:"cached" yaml:"cached"`
	Computations   int            `json:"computations" yaml:"computations"`
	PerAlgorithm   map[string]int `json:"perAlgorithm" yaml:"per_algorithm"`
	Elapsed        time.Duration  `json:"elapsed" yaml:"elapsed"`
	Interrupted    bool           `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

// Indexer runs the fingerprinting pipeline against one store.
type Indexer struct {
	gateway    Gateway
	config     Config
	classifier Classifier
	decode     DecodeFunc

	runMu     sync.Mutex
	isRunning bool
	lastRun   time.Time
}

// New creates an indexer. A default classifier is created per run unless
// one is set with SetClassifier.
func New(gateway Gateway, config Config) *Indexer {
	return &Indexer{gateway: gateway, config: config}
}

// SetClassifier replaces the classifier used for lazy classification.
func (idx *Indexer) SetClassifier(c Classifier) {
	idx.classifier = c
}

// SetDecoder replaces the image decoder used for perceptual algorithms.
func (idx *Indexer) SetDecoder(fn DecodeFunc) {
	idx.decode = fn
}

// IsRunning returns whether a run is in progress.
func (idx *Indexer) IsRunning() bool {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	return idx.isRunning
}

// LastRunTime returns when the last run finished.
func (idx *Indexer) LastRunTime() time.Time {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	return idx.lastRun
}

// ErrAlreadyRunning is returned when Run is called during another run.
var ErrAlreadyRunning = errors.New("a run is already in progress")

// Run plans, dispatches and commits one pass over the configured roots.
//
// A storage failure cancels the run and is returned. When ctx is cancelled
// the results collected so far are still committed and the summary is
// returned with ctx's error.
func (idx *Indexer) Run(ctx context.Context) (*Summary, error) {
	if !idx.tryStart() {
		return nil, ErrAlreadyRunning
	}
	defer idx.finish()

	metrics.RunIsActive.Set(1)
	defer metrics.RunIsActive.Set(0)
	metrics.RunsTotal.Inc()

	start := time.Now()
	logging.Info("Starting run over %d directories with %d algorithms", len(idx.config.Roots), len(idx.config.Algorithms))

	cache, err := LoadCacheIndex(ctx, idx.gateway)
	if err != nil {
		return nil, err
	}
	logging.Debug("Loaded %d cached hashes", cache.Len())

	planner := Planner{SkipHidden: idx.config.SkipHidden, Retry: idx.config.Retry}
	plan, err := planner.Plan(ctx, idx.config.Roots, idx.config.Algorithms, cache)
	if err != nil {
		return nil, err
	}
	metrics.RunPlannedFiles.Set(float64(len(plan.Units)))
	metrics.RunFilesTotal.WithLabelValues("cached").Add(float64(plan.Cached))

	classifier := idx.classifier
	if classifier == nil {
		classifier = filetype.NewDefault()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := NewDispatcher(DispatcherConfig{
		Workers: workers.ForFiles(idx.config.Workers, 0),
		Retry:   idx.config.Retry,
		Memory:  idx.config.Memory,
	}, classifier, idx.decode, idx.config.Algorithms)

	buffer := NewResultBuffer(idx.gateway, idx.newSizer(), cache, idx.config.FlushRetry)

	var storageErr error
	finished := 0
	for result := range dispatcher.Run(runCtx, plan.Units) {
		finished++
		if finished%progressInterval == 0 {
			logging.Info("Progress: %d/%d files", finished, len(plan.Units))
		}
		if storageErr != nil {
			continue
		}
		if len(result.Digests) == 0 && result.Err == nil {
			metrics.RunFilesTotal.WithLabelValues("empty").Inc()
		}

		buffer.Add(result)
		if !buffer.ShouldFlush() {
			continue
		}
		if _, err := buffer.Flush(runCtx); err != nil {
			storageErr = err
			logging.Error("Flush failed, stopping run: %v", err)
			cancel()
		}
	}

	if storageErr == nil && buffer.Len() > 0 {
		// Committed even when ctx was cancelled by an interrupt.
		if _, err := buffer.Flush(context.WithoutCancel(ctx)); err != nil {
			storageErr = err
			logging.Error("Final flush failed: %v", err)
		}
	}

	summary := idx.summarize(plan, dispatcher.Counters(), buffer, start)
	summary.Interrupted = ctx.Err() != nil

	metrics.RunLastDuration.Set(summary.Elapsed.Seconds())

	if storageErr != nil {
		return summary, fmt.Errorf("run aborted: %w", storageErr)
	}
	if summary.Interrupted {
		logging.Warn("Run interrupted after %d of %d files", finished, len(plan.Units))
		return summary, ctx.Err()
	}

	finishedAt := time.Now()
	if err := idx.gateway.SetLastRun(ctx, finishedAt); err != nil {
		logging.Warn("Failed to record run time: %v", err)
	}
	metrics.RunLastTimestamp.Set(float64(finishedAt.Unix()))

	idx.runMu.Lock()
	idx.lastRun = finishedAt
	idx.runMu.Unlock()

	return summary, nil
}

func (idx *Indexer) newSizer() Sizer {
	var inner Sizer
	switch idx.config.BufferPolicy {
	case PolicyAdaptive:
		bufMax := idx.config.BufferMax
		if bufMax <= 0 {
			bufMax = DefaultBufferMax
		}
		inner = NewAdaptiveSizer(bufMax, idx.config.Seed)
	default:
		size := idx.config.BufferSize
		if size <= 0 {
			size = DefaultBufferSize
		}
		inner = NewStaticSizer(size)
	}

	if idx.config.Memory == nil {
		return inner
	}
	return NewMemoryAwareSizer(inner, idx.config.Memory)
}

func (idx *Indexer) summarize(plan *WorkPlan, c *Counters, buffer *ResultBuffer, start time.Time) *Summary {
	added, updated := buffer.Totals()
	return &Summary{
		Planned:        len(plan.Units),
		Added:          added,
		Updated:        updated,
		Unsupported:    int(c.Unsupported.Load()),
		SkippedNonFile: plan.SkippedNonFile + int(c.SkippedNonFile.Load()),
		AccessErrors:   int(c.AccessErrors.Load()),
		Cached:         plan.Cached,
		Computations:   int(c.Computed.Load()),
		PerAlgorithm:   c.PerAlgorithm(),
		Elapsed:        time.Since(start),
	}
}

func (idx *Indexer) tryStart() bool {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	if idx.isRunning {
		return false
	}
	idx.isRunning = true
	return true
}

func (idx *Indexer) finish() {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	idx.isRunning = false
}

var _ Gateway = (*database.Database)(nil)
