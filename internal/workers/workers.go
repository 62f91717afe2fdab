package workers

import "runtime"

// DefaultFileWorkers is the number of files fingerprinted concurrently when
// nothing else is configured.
const DefaultFileWorkers = 3

// Count returns a worker count scaled from GOMAXPROCS, which follows the
// container CPU limit. multiplier is 1.0 for CPU-bound, 2.0 for I/O-bound and
// 1.5 for mixed work. limit caps the result; 0 means no cap.
func Count(multiplier float64, limit int) int {
	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// ForFiles resolves the configured file worker count. Positive values are
// used as given; zero selects DefaultFileWorkers and a negative value asks
// for automatic sizing from the CPU budget, since each file mixes reads,
// hashing and image decoding.
func ForFiles(configured, limit int) int {
	switch {
	case configured > 0:
		return configured
	case configured == 0:
		return DefaultFileWorkers
	default:
		return ForMixed(limit)
	}
}
