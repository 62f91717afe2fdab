// Package xerrors classifies the failures the fingerprinting pipeline can
// produce. Per-file and per-algorithm failures (access, not-a-file,
// unidentified, unsupported format) are counted and logged; unknown
// algorithms and storage failures abort the run.
package xerrors
