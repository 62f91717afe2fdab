package indexer

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"fingerprinter/internal/filesystem"
	"fingerprinter/internal/filetype"
	"fingerprinter/internal/hashers"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/media"
	"fingerprinter/internal/memory"
	"fingerprinter/internal/metrics"
	"fingerprinter/internal/xerrors"
)

// Classifier reports the media type of a file.
type Classifier interface {
	Classify(ctx context.Context, path string) (string, error)
}

// DecodeFunc decodes an image for perceptual hashing.
type DecodeFunc func(ctx context.Context, path string) (image.Image, error)

// FileResult is the outcome of one work unit.
type FileResult struct {
	Path      string
	MediaType string
	Digests   map[string]string
	Failures  map[string]error
	Existing  bool
	// Err is set when the unit was not a readable regular file. No
	// algorithm ran.
	Err error
}

// Counters are updated by the dispatcher workers as units complete.
type Counters struct {
	Processed      atomic.Int64
	Unsupported    atomic.Int64
	SkippedNonFile atomic.Int64
	AccessErrors   atomic.Int64
	Computed       atomic.Int64

	perAlgorithm map[string]*atomic.Int64
}

func newCounters(algorithms []*hashers.Algorithm) *Counters {
	c := &Counters{perAlgorithm: make(map[string]*atomic.Int64, len(algorithms))}
	for _, a := range algorithms {
		c.perAlgorithm[a.Name] = new(atomic.Int64)
	}
	return c
}

// PerAlgorithm returns a snapshot of successful computations by algorithm.
func (c *Counters) PerAlgorithm() map[string]int {
	out := make(map[string]int, len(c.perAlgorithm))
	for name, n := range c.perAlgorithm {
		out[name] = int(n.Load())
	}
	return out
}

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	// Workers bounds how many files are in flight at once.
	Workers int
	// ChannelBuffer is the size of the jobs and results channels.
	ChannelBuffer int
	Retry         filesystem.RetryConfig
	// Memory, when set, pauses workers under critical memory pressure.
	Memory *memory.Monitor
}

// Dispatcher runs work units on a fixed pool of workers.
type Dispatcher struct {
	config     DispatcherConfig
	classifier Classifier
	decode     DecodeFunc
	counters   *Counters

	jobs    chan WorkUnit
	results chan FileResult
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. algorithms lists every algorithm the
// run may compute, for per-algorithm counting.
func NewDispatcher(config DispatcherConfig, classifier Classifier, decode DecodeFunc, algorithms []*hashers.Algorithm) *Dispatcher {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.ChannelBuffer < 1 {
		config.ChannelBuffer = config.Workers * 2
	}
	if decode == nil {
		decode = media.Decode
	}

	return &Dispatcher{
		config:     config,
		classifier: classifier,
		decode:     decode,
		counters:   newCounters(algorithms),
		jobs:       make(chan WorkUnit, config.ChannelBuffer),
		results:    make(chan FileResult, config.ChannelBuffer),
	}
}

// Counters returns the live counters.
func (d *Dispatcher) Counters() *Counters {
	return d.counters
}

// Run feeds units to the workers and returns the channel results arrive on,
// in completion order. The channel is closed once every started unit has
// reported. Cancelling ctx stops new units from starting; the caller must
// drain the channel.
func (d *Dispatcher) Run(ctx context.Context, units []WorkUnit) <-chan FileResult {
	logging.Info("Dispatching %d files to %d workers", len(units), d.config.Workers)

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}

	go func() {
		defer close(d.jobs)
		for _, u := range units {
			select {
			case d.jobs <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		d.wg.Wait()
		close(d.results)
	}()

	return d.results
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	logging.Debug("Worker %d started", id)

	for unit := range d.jobs {
		if d.config.Memory != nil {
			d.config.Memory.WaitIfPaused(ctx)
		}
		if ctx.Err() != nil {
			continue
		}

		metrics.FilesInFlight.Inc()
		result := d.process(ctx, unit)
		metrics.FilesInFlight.Dec()

		d.count(result)
		d.results <- result
	}

	logging.Debug("Worker %d finished", id)
}

// process runs every requested algorithm for one unit. Failures are
// recorded per algorithm and never stop sibling algorithms.
func (d *Dispatcher) process(ctx context.Context, unit WorkUnit) FileResult {
	result := FileResult{
		Path:     unit.Path,
		Digests:  make(map[string]string, len(unit.Algorithms)),
		Failures: make(map[string]error),
		Existing: unit.Existing,
	}

	info, err := filesystem.StatWithRetry(ctx, unit.Path, d.config.Retry)
	switch {
	case err != nil && ctx.Err() != nil:
		result.Err = ctx.Err()
		return result
	case err != nil:
		if xerrors.KindOf(err) == xerrors.KindNotAFile {
			result.Err = xerrors.Wrap(xerrors.KindNotAFile, "stat", unit.Path, err)
		} else {
			result.Err = xerrors.Wrap(xerrors.KindAccess, "stat", unit.Path, err)
		}
		return result
	case !info.Mode().IsRegular():
		result.Err = xerrors.E(xerrors.KindNotAFile, "stat", unit.Path)
		return result
	}

	binary, perceptual := hashers.Split(unit.Algorithms)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	set := func(name, digest string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Failures[name] = err
			return
		}
		result.Digests[name] = digest
	}

	if len(binary) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			digests, n, err := hashers.SumFile(ctx, unit.Path, binary)
			metrics.HashDuration.WithLabelValues(hashers.FamilyBinary.String()).Observe(time.Since(start).Seconds())
			metrics.HashBytesRead.Add(float64(n))
			for _, a := range binary {
				set(a.Name, digests[a.Name], err)
			}
		}()
	}

	if len(perceptual) > 0 {
		var pwg sync.WaitGroup
		start := time.Now()
		mediaType, img, err := d.prepareImage(ctx, unit.Path)
		result.MediaType = mediaType
		if err != nil {
			for _, a := range perceptual {
				set(a.Name, "", err)
			}
		} else {
			for _, a := range perceptual {
				pwg.Add(1)
				go func() {
					defer pwg.Done()
					digest, err := a.Compute(img)
					if err != nil {
						err = xerrors.Wrap(xerrors.KindUnsupportedFormat, a.Name, unit.Path, err)
					}
					set(a.Name, digest, err)
				}()
			}
		}
		pwg.Wait()
		metrics.HashDuration.WithLabelValues(hashers.FamilyPerceptual.String()).Observe(time.Since(start).Seconds())
	}

	wg.Wait()
	return result
}

// prepareImage classifies path and decodes it when it is an image.
func (d *Dispatcher) prepareImage(ctx context.Context, path string) (string, image.Image, error) {
	mediaType, err := d.classifier.Classify(ctx, path)
	if err != nil {
		if xerrors.KindOf(err) == xerrors.KindUnidentified {
			return "", nil, xerrors.Wrap(xerrors.KindUnsupportedFormat, "classify", path, err)
		}
		return "", nil, err
	}
	if !filetype.IsImage(mediaType) {
		return mediaType, nil, xerrors.E(xerrors.KindUnsupportedFormat, "classify", path)
	}

	img, err := d.decode(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return mediaType, nil, ctxErr
		}
		return mediaType, nil, xerrors.Wrap(xerrors.KindUnsupportedFormat, "decode", path, err)
	}
	return mediaType, img, nil
}

// count updates counters and metrics for a finished unit.
func (d *Dispatcher) count(r FileResult) {
	c := d.counters
	if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
		return
	}
	c.Processed.Add(1)

	if r.Err != nil {
		if xerrors.KindOf(r.Err) == xerrors.KindNotAFile {
			c.SkippedNonFile.Add(1)
			metrics.RunFilesTotal.WithLabelValues("not_a_file").Inc()
			logging.Debug("Skipping %s: %v", r.Path, r.Err)
		} else {
			c.AccessErrors.Add(1)
			logging.Warn("Cannot access %s: %v", r.Path, r.Err)
		}
		return
	}

	for name := range r.Digests {
		c.Computed.Add(1)
		if n, ok := c.perAlgorithm[name]; ok {
			n.Add(1)
		}
		metrics.HashComputationsTotal.WithLabelValues(name, "success").Inc()
	}

	// Algorithms sharing one read fail together; access errors and
	// vanished files count once per file.
	var accessErr, vanished error
	for name, err := range r.Failures {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			continue
		case xerrors.KindOf(err) == xerrors.KindUnsupportedFormat:
			c.Unsupported.Add(1)
			metrics.HashComputationsTotal.WithLabelValues(name, "unsupported").Inc()
			logging.Debug("%s unsupported for %s: %v", name, r.Path, err)
		case xerrors.KindOf(err) == xerrors.KindNotAFile:
			metrics.HashComputationsTotal.WithLabelValues(name, "error").Inc()
			vanished = err
		default:
			metrics.HashComputationsTotal.WithLabelValues(name, "access_error").Inc()
			accessErr = err
		}
	}

	switch {
	case vanished != nil:
		c.SkippedNonFile.Add(1)
		metrics.RunFilesTotal.WithLabelValues("not_a_file").Inc()
		logging.Debug("%s disappeared during hashing: %v", r.Path, vanished)
	case accessErr != nil:
		c.AccessErrors.Add(1)
		logging.Warn("Cannot read %s: %v", r.Path, accessErr)
	}
}
