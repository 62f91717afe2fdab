package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"fingerprinter/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

// ErrVipsUnavailable is returned by libvips helpers before InitVips.
var ErrVipsUnavailable = errors.New("libvips not available")

var (
	vipsMu        sync.Mutex
	vipsStarted   bool
	vipsAvailable bool
)

// vipsLogLevel maps the application log level onto the libvips threshold.
func vipsLogLevel(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelInfo:
		return vips.LogLevelWarning
	case logging.LevelWarn:
		return vips.LogLevelError
	default:
		return vips.LogLevelCritical
	}
}

func vipsLogHandler(domain string, level vips.LogLevel, msg string) {
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// InitVips starts libvips. It is idempotent; call it once at startup.
func InitVips() error {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsStarted {
		return nil
	}

	vips.LoggingSettings(vipsLogHandler, vipsLogLevel(logging.GetLevel()))

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsStarted = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips. govips cannot be restarted in the same
// process afterwards.
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsAvailable {
		vips.Shutdown()
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	return vipsAvailable
}

// ProbeVipsFormat asks the libvips loaders for the format name of the file
// ("heif", "jxl", ...). It returns ErrVipsUnavailable before InitVips.
func ProbeVipsFormat(path string) (string, error) {
	if !IsVipsAvailable() {
		return "", ErrVipsUnavailable
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return "", fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	format := ref.Format()
	if format == vips.ImageTypeUnknown {
		return "", fmt.Errorf("vips could not identify %s", filepath.Base(path))
	}
	name, ok := vips.ImageTypes[format]
	if !ok {
		return "", fmt.Errorf("vips reported unnamed format %d for %s", format, filepath.Base(path))
	}
	return name, nil
}

// LoadImageWithVips decodes path with libvips, shrinking on load so that the
// longest side is at most maxDimension, and returns it as an image.Image.
// The intermediate encoding is PNG so that no lossy step alters the pixels
// fed to perceptual hashes.
func LoadImageWithVips(path string, maxDimension int) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	width, height := ref.Width(), ref.Height()
	if width > maxDimension || height > maxDimension {
		targetWidth, targetHeight := ConstrainDimensions(width, height, maxDimension, 0)
		logging.Debug("Vips loaded %s: %dx%d, shrinking to %dx%d",
			filepath.Base(path), width, height, targetWidth, targetHeight)
		if err := ref.Thumbnail(targetWidth, targetHeight, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips resize failed: %w", err)
		}
	}

	imgBytes, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}

	return img, nil
}
