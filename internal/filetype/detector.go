package filetype

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	// Decoders registered for the decoder detector.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"fingerprinter/internal/filesystem"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/media"
	"fingerprinter/internal/mediatypes"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// HeaderSize is the number of leading bytes the header detector inspects.
const HeaderSize = 2048

// ErrDeclined is returned by a Detector that cannot identify a file.
var ErrDeclined = errors.New("detector declined")

// Detector identifies the media type of a file. Implementations return
// ErrDeclined when they cannot decide, and any other error when the file
// could not be read. Detectors must be safe for concurrent use.
type Detector interface {
	Name() string
	Detect(ctx context.Context, path string) (string, error)
}

// HeaderDetector matches magic numbers in the first HeaderSize bytes.
type HeaderDetector struct{}

// Name implements Detector.
func (HeaderDetector) Name() string { return "header" }

// Detect implements Detector.
func (HeaderDetector) Detect(ctx context.Context, path string) (string, error) {
	f, err := filesystem.OpenWithRetry(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", err
	}
	defer closeQuietly(f, path)

	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read header: %w", err)
	}
	if n == 0 {
		return "", ErrDeclined
	}

	kind, err := filetype.Match(buf[:n])
	if err != nil || kind == filetype.Unknown {
		return "", ErrDeclined
	}
	return kind.MIME.Value, nil
}

// DecoderDetector asks the registered image decoders to parse the header.
type DecoderDetector struct{}

// Name implements Detector.
func (DecoderDetector) Name() string { return "decoder" }

// Detect implements Detector.
func (DecoderDetector) Detect(ctx context.Context, path string) (string, error) {
	f, err := filesystem.OpenWithRetry(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", err
	}
	defer closeQuietly(f, path)

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", ErrDeclined
	}
	return mediatypes.FromFormat(format), nil
}

// VipsDetector probes the libvips loaders. It declines while libvips is not
// running.
type VipsDetector struct{}

// Name implements Detector.
func (VipsDetector) Name() string { return "vips" }

// Detect implements Detector.
func (VipsDetector) Detect(_ context.Context, path string) (string, error) {
	if !media.IsVipsAvailable() {
		return "", ErrDeclined
	}
	format, err := media.ProbeVipsFormat(path)
	if err != nil {
		logging.Debug("libvips could not identify %s: %v", path, err)
		return "", ErrDeclined
	}
	return mediatypes.FromFormat(format), nil
}

// DefaultDetectors returns the standard chain in priority order.
func DefaultDetectors() []Detector {
	return []Detector{HeaderDetector{}, DecoderDetector{}, VipsDetector{}}
}

func closeQuietly(c io.Closer, path string) {
	if err := c.Close(); err != nil {
		logging.Warn("failed to close %s: %v", path, err)
	}
}
