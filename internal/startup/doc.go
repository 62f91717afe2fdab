// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// Settings are layered with viper: command-line flags bound to the keys
// below, FINGERPRINT_<KEY> environment variables, and an optional
// fingerprinter.yaml file in the working directory or
// ~/.config/fingerprinter. [LoadConfig] reads and checks the settings every
// command shares; [Config.ValidateRun] checks the roots and algorithms of
// a run before any work starts.
//
//   - directory: directories to fingerprint (top level only)
//   - hash: algorithms to compute
//   - database: SQLite store path (default: fingerprints.db)
//   - workers: files in flight (default: 3)
//   - buffer_policy: static or adaptive (default: static)
//   - buffer_size: static flush threshold (default: 10)
//   - buffer_max: adaptive upper bound (default: 64)
//   - skip_hidden: ignore dot files
//   - reset: drop and recreate the schema before running
//   - metrics_file: node-exporter textfile written after a run
//   - listen: query server address (default: :8080)
//   - log_level: debug, info, warn, error
//
// MEMORY_LIMIT, MEMORY_RATIO and GOMEMLIMIT are read by the memory package.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [PrintBanner]: banner, build and system information
//   - [LogMemoryConfig]: memory limit configuration
//   - [LogDatabaseInit]: database initialization timing
//   - [LogRunStarted] and [LogRunSummary]: run configuration and report
//   - [LogHTTPRoutes]: registered HTTP routes (debug level)
//   - [LogServerStarted]: query server address and startup duration
//   - [LogShutdownInitiated]: graceful shutdown start
//   - [LogShutdownComplete]: shutdown completion
package startup
