package indexer

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fingerprinter/internal/database"
	"fingerprinter/internal/hashers"
)

func writeFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func writePNG(t testing.TB, dir, name string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func resolve(t testing.TB, names ...string) []*hashers.Algorithm {
	t.Helper()
	algs, err := hashers.Resolve(names)
	if err != nil {
		t.Fatalf("Resolve(%v) failed: %v", names, err)
	}
	return algs
}

// countingClassifier returns a fixed media type and records how many
// classifications overlap.
type countingClassifier struct {
	mediaType string
	delay     time.Duration
	onCall    func(n int64)

	calls       atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func (c *countingClassifier) Classify(_ context.Context, _ string) (string, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	for {
		m := c.maxInFlight.Load()
		if n <= m || c.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	calls := c.calls.Add(1)
	if c.onCall != nil {
		c.onCall(calls)
	}
	time.Sleep(c.delay)
	return c.mediaType, nil
}

// recordingGateway keeps flushed batches in memory.
type recordingGateway struct {
	mu       sync.Mutex
	cached   []database.CachedItem
	batches  [][]database.Entry
	liveCtx  []bool
	flushErr error
	lastRun  time.Time
}

func (g *recordingGateway) GetCachedItems(context.Context) ([]database.CachedItem, error) {
	return g.cached, nil
}

func (g *recordingGateway) Flush(ctx context.Context, batch []database.Entry) (database.FlushResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.liveCtx = append(g.liveCtx, ctx.Err() == nil)
	if g.flushErr != nil {
		return database.FlushResult{}, g.flushErr
	}
	g.batches = append(g.batches, append([]database.Entry(nil), batch...))
	return database.FlushResult{Added: len(batch)}, nil
}

func (g *recordingGateway) SetLastRun(_ context.Context, t time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastRun = t
	return nil
}

func (g *recordingGateway) batchSizes() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	sizes := make([]int, 0, len(g.batches))
	for _, b := range g.batches {
		sizes = append(sizes, len(b))
	}
	return sizes
}

func (g *recordingGateway) flushed() int {
	total := 0
	for _, n := range g.batchSizes() {
		total += n
	}
	return total
}
