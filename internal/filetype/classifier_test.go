package filetype

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"fingerprinter/internal/xerrors"
)

type fakeDetector struct {
	name   string
	result string
	err    error
	calls  atomic.Int64
}

func (f *fakeDetector) Name() string { return f.name }

func (f *fakeDetector) Detect(_ context.Context, _ string) (string, error) {
	f.calls.Add(1)
	return f.result, f.err
}

func writePNG(t *testing.T, path string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.White)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestClassifyRealFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pngPath := filepath.Join(dir, "image.png")
	writePNG(t, pngPath)

	textPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(textPath, []byte("just some words\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	emptyPath := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(16, HeaderDetector{}, DecoderDetector{})

	mt, err := c.Classify(context.Background(), pngPath)
	if err != nil {
		t.Fatalf("Classify(png) failed: %v", err)
	}
	if mt != "image/png" {
		t.Errorf("Classify(png) = %q, want image/png", mt)
	}
	if !IsImage(mt) {
		t.Errorf("IsImage(%q) = false", mt)
	}

	for _, path := range []string{textPath, emptyPath} {
		_, err := c.Classify(context.Background(), path)
		if !errors.Is(err, xerrors.ErrUnidentified) {
			t.Errorf("Classify(%s) error = %v, want unidentified", filepath.Base(path), err)
		}
	}
}

func TestClassifyFallsBackToNextDetector(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mystery.bin")
	writePNG(t, path)

	declining := &fakeDetector{name: "header", err: ErrDeclined}
	c := New(16, declining, DecoderDetector{})

	mt, err := c.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if mt != "image/png" {
		t.Errorf("Classify = %q, want image/png", mt)
	}
	if declining.calls.Load() != 1 {
		t.Errorf("first detector called %d times, want 1", declining.calls.Load())
	}
}

func TestClassifyStopsAtFirstAnswer(t *testing.T) {
	t.Parallel()

	first := &fakeDetector{name: "first", result: "IMAGE/JPG"}
	second := &fakeDetector{name: "second", result: "image/png"}
	c := New(16, first, second)

	mt, err := c.Classify(context.Background(), "/data/a")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if mt != "image/jpeg" {
		t.Errorf("Classify = %q, want normalized image/jpeg", mt)
	}
	if second.calls.Load() != 0 {
		t.Error("second detector should not run after the first answered")
	}
}

func TestClassifyAccessError(t *testing.T) {
	t.Parallel()

	failing := &fakeDetector{name: "header", err: os.ErrPermission}
	after := &fakeDetector{name: "decoder", result: "image/png"}
	c := New(16, failing, after)

	_, err := c.Classify(context.Background(), "/data/locked.jpg")
	if xerrors.KindOf(err) != xerrors.KindAccess {
		t.Fatalf("KindOf(%v) = %v, want access", err, xerrors.KindOf(err))
	}
	if after.calls.Load() != 0 {
		t.Error("chain must stop at an access error")
	}

	// Access errors are not memoised.
	_, _ = c.Classify(context.Background(), "/data/locked.jpg")
	if failing.calls.Load() != 2 {
		t.Errorf("failing detector called %d times, want 2", failing.calls.Load())
	}
}

func TestClassifyMemoises(t *testing.T) {
	t.Parallel()

	d := &fakeDetector{name: "header", result: "image/gif"}
	none := &fakeDetector{name: "none", err: ErrDeclined}

	c := New(16, d)
	for i := 0; i < 5; i++ {
		if _, err := c.Classify(context.Background(), "/data/a.gif"); err != nil {
			t.Fatal(err)
		}
	}
	if d.calls.Load() != 1 {
		t.Errorf("detector called %d times, want 1", d.calls.Load())
	}

	u := New(16, none)
	for i := 0; i < 3; i++ {
		if _, err := u.Classify(context.Background(), "/data/unknown"); !errors.Is(err, xerrors.ErrUnidentified) {
			t.Fatalf("expected unidentified, got %v", err)
		}
	}
	if none.calls.Load() != 1 {
		t.Errorf("declining detector called %d times, want 1", none.calls.Load())
	}
}

func TestClassifyCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(16, &fakeDetector{name: "header", result: "image/png"})
	if _, err := c.Classify(ctx, "/data/a.png"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClassifyConcurrent(t *testing.T) {
	t.Parallel()

	d := &fakeDetector{name: "header", result: "image/png"}
	c := New(4, d)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := filepath.Join("/data", string(rune('a'+i%8)))
			if _, err := c.Classify(context.Background(), path); err != nil {
				t.Errorf("Classify(%s) failed: %v", path, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestVipsDetectorDeclinesWithoutVips(t *testing.T) {
	t.Parallel()

	// libvips is never started in this package's tests.
	if _, err := (VipsDetector{}).Detect(context.Background(), "/data/a.heic"); !errors.Is(err, ErrDeclined) {
		t.Errorf("expected ErrDeclined, got %v", err)
	}
}

func TestHeaderDetectorMissingFile(t *testing.T) {
	t.Parallel()

	_, err := (HeaderDetector{}).Detect(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil || errors.Is(err, ErrDeclined) {
		t.Errorf("expected a read error, got %v", err)
	}
}
