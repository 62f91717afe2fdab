package media

import (
	"context"
	"fmt"
	"image"
	"math"

	"fingerprinter/internal/filesystem"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxImageDimension is the largest width or height kept in memory for
	// hashing. Perceptual hashes shrink to at most 32x32, so larger sources
	// are downscaled first.
	MaxImageDimension = 4096

	// MaxImagePixels caps the decoded pixel count (~80MB as RGBA).
	MaxImagePixels = 20_000_000
)

// Decode loads the image at path for perceptual hashing. The pure Go decoders
// are tried first; when they fail and libvips is running, libvips decodes
// formats such as HEIF, AVIF and JPEG XL.
func Decode(ctx context.Context, path string) (image.Image, error) {
	img, err := LoadImageConstrained(ctx, path, MaxImageDimension, MaxImagePixels)
	if err == nil {
		metrics.ImageDecodeTotal.WithLabelValues("imaging", "success").Inc()
		return img, nil
	}
	metrics.ImageDecodeTotal.WithLabelValues("imaging", "error").Inc()

	if !IsVipsAvailable() {
		return nil, err
	}

	logging.Debug("Go decoders failed for %s (%v), trying libvips", path, err)
	img, vipsErr := LoadImageWithVips(path, MaxImageDimension)
	if vipsErr != nil {
		metrics.ImageDecodeTotal.WithLabelValues("vips", "error").Inc()
		return nil, fmt.Errorf("decode %s: %w", path, vipsErr)
	}
	metrics.ImageDecodeTotal.WithLabelValues("vips", "success").Inc()
	return img, nil
}

// LoadImageConstrained decodes an image with EXIF auto-orientation, then
// downscales it when it exceeds maxDimension or maxPixels.
func LoadImageConstrained(ctx context.Context, path string, maxDimension, maxPixels int) (image.Image, error) {
	f, err := filesystem.OpenWithRetry(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	targetWidth, targetHeight := ConstrainDimensions(width, height, maxDimension, maxPixels)
	if targetWidth == width && targetHeight == height {
		return img, nil
	}

	logging.Debug("Constraining large image %s from %dx%d to %dx%d", path, width, height, targetWidth, targetHeight)
	return imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos), nil
}

// ConstrainDimensions scales width x height down, preserving the aspect
// ratio, until neither side exceeds maxDimension and the area fits within
// maxPixels. Dimensions already within bounds are returned unchanged.
func ConstrainDimensions(width, height, maxDimension, maxPixels int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}

	w, h := width, height
	if w > maxDimension || h > maxDimension {
		if w > h {
			h = h * maxDimension / w
			w = maxDimension
		} else {
			w = w * maxDimension / h
			h = maxDimension
		}
	}

	if maxPixels > 0 && w*h > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(w*h))
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}

	return max(w, 1), max(h, 1)
}

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions reads the image header and returns its size and
// decoder format name without decoding pixels.
func GetImageDimensions(ctx context.Context, path string) (*ImageDimensions, string, error) {
	f, err := filesystem.OpenWithRetry(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, "", err
	}

	return &ImageDimensions{Width: config.Width, Height: config.Height}, format, nil
}
