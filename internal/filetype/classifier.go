package filetype

import (
	"context"
	"errors"

	"fingerprinter/internal/logging"
	"fingerprinter/internal/mediatypes"
	"fingerprinter/internal/metrics"
	"fingerprinter/internal/xerrors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoSize bounds the number of memoised classifications.
const DefaultMemoSize = 4096

type outcome struct {
	mediaType string
	err       error
}

// Classifier runs a fixed chain of detectors and memoises the outcome per
// path. It is safe for concurrent use; create one per run.
type Classifier struct {
	detectors []Detector
	memo      *lru.Cache[string, outcome]
}

// New creates a classifier over detectors, tried in order. memoSize <= 0
// selects DefaultMemoSize.
func New(memoSize int, detectors ...Detector) *Classifier {
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}
	memo, err := lru.New[string, outcome](memoSize)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &Classifier{detectors: detectors, memo: memo}
}

// NewDefault creates a classifier over DefaultDetectors.
func NewDefault() *Classifier {
	return New(DefaultMemoSize, DefaultDetectors()...)
}

// Classify returns the normalized media type of path. It fails with an
// access error when a detector cannot read the file and with an
// unidentified-type error when every detector declines.
func (c *Classifier) Classify(ctx context.Context, path string) (string, error) {
	if o, ok := c.memo.Get(path); ok {
		metrics.ClassificationCacheHits.Inc()
		return o.mediaType, o.err
	}

	for _, d := range c.detectors {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		mediaType, err := d.Detect(ctx, path)
		if errors.Is(err, ErrDeclined) {
			continue
		}
		if err != nil {
			metrics.ClassificationsTotal.WithLabelValues("error").Inc()
			// Read failures are not memoised; a later run may succeed.
			return "", xerrors.Wrap(xerrors.KindAccess, "classify", path, err)
		}

		mediaType = mediatypes.Normalize(mediaType)
		logging.Debug("Classified %s as %s (%s)", path, mediaType, d.Name())
		metrics.ClassificationsTotal.WithLabelValues(d.Name()).Inc()
		c.memo.Add(path, outcome{mediaType: mediaType})
		return mediaType, nil
	}

	metrics.ClassificationsTotal.WithLabelValues("unidentified").Inc()
	err := xerrors.E(xerrors.KindUnidentified, "classify", path)
	c.memo.Add(path, outcome{err: err})
	return "", err
}

// IsImage reports whether mediaType belongs to the image category.
func IsImage(mediaType string) bool {
	return mediatypes.IsImage(mediaType)
}
