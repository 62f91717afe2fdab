// Package metrics provides Prometheus instrumentation for fingerprinter.
//
// All metrics are registered on the default registry through promauto and
// are prefixed with "fingerprinter_".
//
// # Metric Categories
//
//   - Run metrics: runs, per-outcome file counts, files in flight
//   - Hash metrics: computations per algorithm and status, family durations,
//     bytes streamed, image decodes
//   - Classification metrics: deciding detector, memo hits
//   - Buffer metrics: capacity, flush count, flush duration and size
//   - Database metrics: query and transaction timings, store totals, file sizes
//   - Filesystem metrics: operation timings and NFS retry behaviour
//   - Memory metrics: GOMEMLIMIT, heap allocation, usage ratio
//   - HTTP metrics for the query server
//
// # Exposition
//
// The query server mounts promhttp.Handler() on /metrics. One-shot runs can
// persist the registry with [WriteTextfile] for the node-exporter textfile
// collector.
//
// # Collector
//
// [Collector] periodically copies store totals from a [StatsProvider] into
// gauges and records the SQLite main/WAL/SHM file sizes:
//
//	collector := metrics.NewCollector(db, dbPath, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Hash throughput by algorithm:
//
//	sum(rate(fingerprinter_hash_computations_total{status="success"}[5m])) by (algorithm)
//
// Unsupported ratio for perceptual algorithms:
//
//	sum(rate(fingerprinter_hash_computations_total{status="unsupported"}[1h])) by (algorithm) /
//	sum(rate(fingerprinter_hash_computations_total[1h])) by (algorithm)
//
// P95 flush latency:
//
//	histogram_quantile(0.95, sum(rate(fingerprinter_buffer_flush_duration_seconds_bucket[5m])) by (le))
package metrics
