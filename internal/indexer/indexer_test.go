package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fingerprinter/internal/xerrors"
)

func testConfig(t testing.TB, dir string, algorithms ...string) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Roots = []string{dir}
	cfg.Algorithms = resolve(t, algorithms...)
	cfg.Seed = 1
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.BufferPolicy != PolicyStatic || cfg.BufferSize != DefaultBufferSize {
		t.Errorf("buffer = %s/%d, want static/%d", cfg.BufferPolicy, cfg.BufferSize, DefaultBufferSize)
	}
	if cfg.FlushRetry.Retries != 0 {
		t.Error("flush retry should be off by default")
	}
}

func TestNewSizer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy string
		size   int
		want   string
	}{
		{"static", PolicyStatic, 7, "*indexer.StaticSizer"},
		{"adaptive", PolicyAdaptive, 0, "*indexer.AdaptiveSizer"},
		{"unknown falls back to static", "", 0, "*indexer.StaticSizer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			idx := New(&recordingGateway{}, Config{BufferPolicy: tt.policy, BufferSize: tt.size})
			if got := fmt.Sprintf("%T", idx.newSizer()); got != tt.want {
				t.Errorf("newSizer() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRunFlushCompleteness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		files     int
		wantSizes []int
	}{
		{"below threshold flushed at end", 7, []int{7}},
		{"exact multiples", 20, []int{10, 10}},
		{"remainder flushed at end", 25, []int{10, 10, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for i := range tt.files {
				writeFile(t, dir, fmt.Sprintf("f%03d", i), fmt.Sprint(i))
			}

			gw := &recordingGateway{}
			summary, err := New(gw, testConfig(t, dir, "md5")).Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}

			if got := gw.batchSizes(); fmt.Sprint(got) != fmt.Sprint(tt.wantSizes) {
				t.Errorf("flush sizes = %v, want %v", got, tt.wantSizes)
			}
			if summary.Added != tt.files {
				t.Errorf("Added = %d, want %d", summary.Added, tt.files)
			}
			if gw.lastRun.IsZero() {
				t.Error("last run time not recorded")
			}
		})
	}
}

func TestRunStorageFailureIsFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := range 30 {
		writeFile(t, dir, fmt.Sprintf("f%03d", i), fmt.Sprint(i))
	}

	gw := &recordingGateway{flushErr: xerrors.E(xerrors.KindStorage, "flush", "test.db")}
	cfg := testConfig(t, dir, "md5")
	cfg.BufferSize = 5

	summary, err := New(gw, cfg).Run(context.Background())
	if !errors.Is(err, xerrors.ErrStorage) {
		t.Fatalf("Run error = %v, want storage error", err)
	}
	if summary == nil || summary.Interrupted {
		t.Errorf("summary = %+v", summary)
	}
	if n := len(gw.liveCtx); n != 1 {
		t.Errorf("flush attempted %d times after a storage failure, want 1", n)
	}
	if !gw.lastRun.IsZero() {
		t.Error("last run recorded for a failed run")
	}
}

func TestRunInterruptedFlushesCollected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := range 20 {
		writeFile(t, dir, fmt.Sprintf("f%03d", i), fmt.Sprint(i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &recordingGateway{}
	cfg := testConfig(t, dir, "md5", "dhash")
	cfg.Workers = 1
	cfg.BufferSize = 100

	idx := New(gw, cfg)
	idx.SetClassifier(&countingClassifier{mediaType: "text/plain", onCall: func(n int64) {
		if n == 3 {
			cancel()
		}
	}})

	summary, err := idx.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if !summary.Interrupted {
		t.Error("summary not marked interrupted")
	}
	if summary.PerAlgorithm["md5"] >= 20 {
		t.Errorf("md5 computed for %d files despite cancellation", summary.PerAlgorithm["md5"])
	}
	if got, want := gw.flushed(), summary.PerAlgorithm["md5"]; got != want {
		t.Errorf("flushed %d results, want every collected result (%d)", got, want)
	}
	for i, live := range gw.liveCtx {
		if !live {
			t.Errorf("flush %d ran with a cancelled context", i)
		}
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	t.Parallel()

	idx := New(&recordingGateway{}, Config{})
	if !idx.tryStart() {
		t.Fatal("first tryStart failed")
	}
	if _, err := idx.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Run error = %v, want ErrAlreadyRunning", err)
	}
	idx.finish()
	if idx.IsRunning() {
		t.Error("IsRunning after finish")
	}
}
