// Package logging provides a simple leveled logging interface for the
// fingerprinter.
//
// It supports the following log levels:
//   - DEBUG: per-file classification and hashing detail
//   - INFO: run lifecycle, flushes and the end-of-run summary
//   - WARN: per-file failures that do not stop the run
//   - ERROR: failures that stop the run
//   - FATAL: startup errors that terminate the process
//
// The level is read once from LOG_LEVEL (or DEBUG=true) and may be
// overridden with SetLevel.
package logging
