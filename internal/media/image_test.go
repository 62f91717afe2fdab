package media

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// createTestImage writes a gradient test image to path.
func createTestImage(t testing.TB, path string, width, height int, format string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image file: %v", err)
	}
	defer f.Close()

	switch format {
	case "jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(f, img)
	default:
		t.Fatalf("Unsupported test image format: %s", format)
	}
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

func TestConstrainDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		width, height int
		maxDim        int
		maxPixels     int
		wantW, wantH  int
	}{
		{"within limits", 800, 600, 4096, 20_000_000, 800, 600},
		{"landscape too wide", 8000, 4000, 4096, 0, 4096, 2048},
		{"portrait too tall", 3000, 6000, 4096, 0, 2048, 4096},
		{"too many pixels", 4000, 4000, 4096, 4_000_000, 2000, 2000},
		{"dimension then pixel cap", 6000, 3000, 4096, 2_000_000, 2000, 1000},
		{"zero size", 0, 0, 4096, 100, 0, 0},
		{"extreme aspect keeps one pixel", 100000, 1, 4096, 0, 4096, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, h := ConstrainDimensions(tt.width, tt.height, tt.maxDim, tt.maxPixels)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("ConstrainDimensions(%d, %d) = %dx%d, want %dx%d",
					tt.width, tt.height, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestGetImageDimensions(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	tests := []struct {
		name   string
		format string
		width  int
		height int
	}{
		{"png", "png", 120, 80},
		{"jpeg", "jpeg", 64, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(tmpDir, "dims."+tt.name)
			createTestImage(t, path, tt.width, tt.height, tt.format)

			dims, format, err := GetImageDimensions(context.Background(), path)
			if err != nil {
				t.Fatalf("GetImageDimensions failed: %v", err)
			}
			if dims.Width != tt.width || dims.Height != tt.height {
				t.Errorf("dimensions = %dx%d, want %dx%d", dims.Width, dims.Height, tt.width, tt.height)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
		})
	}
}

func TestGetImageDimensionsErrors(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	textFile := filepath.Join(tmpDir, "notes.txt")
	if err := os.WriteFile(textFile, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := GetImageDimensions(context.Background(), filepath.Join(tmpDir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, _, err := GetImageDimensions(context.Background(), textFile); err == nil {
		t.Error("expected error for non-image file")
	}
}

func TestLoadImageConstrained(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	small := filepath.Join(tmpDir, "small.png")
	large := filepath.Join(tmpDir, "large.png")
	createTestImage(t, small, 100, 50, "png")
	createTestImage(t, large, 400, 200, "png")

	img, err := LoadImageConstrained(context.Background(), small, 256, 0)
	if err != nil {
		t.Fatalf("LoadImageConstrained(small) failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("small image resized to %dx%d", b.Dx(), b.Dy())
	}

	img, err = LoadImageConstrained(context.Background(), large, 256, 0)
	if err != nil {
		t.Fatalf("LoadImageConstrained(large) failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 128 {
		t.Errorf("large image = %dx%d, want 256x128", b.Dx(), b.Dy())
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "photo.jpg")
	createTestImage(t, path, 32, 32, "jpeg")

	img, err := Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("decoded size = %dx%d, want 32x32", b.Dx(), b.Dy())
	}

	garbage := filepath.Join(tmpDir, "garbage.jpg")
	if err := os.WriteFile(garbage, []byte("\xff\xd8\xffnot really a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(context.Background(), garbage); err == nil {
		t.Error("expected Decode to fail for corrupt data")
	}
}

func BenchmarkLoadImageConstrained(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.jpg")
	createTestImage(b, path, 1024, 768, "jpeg")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := LoadImageConstrained(ctx, path, MaxImageDimension, MaxImagePixels); err != nil {
			b.Fatal(err)
		}
	}
}
