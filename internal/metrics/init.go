package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(algorithms []string) {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"source", "database", "unknown"}
	fsOps := []string{"read", "stat", "readdir"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, outcome := range []string{"added", "updated", "cached", "not_a_file", "empty"} {
		RunFilesTotal.WithLabelValues(outcome)
	}

	for _, algorithm := range algorithms {
		for _, status := range []string{"success", "unsupported", "access_error", "error"} {
			HashComputationsTotal.WithLabelValues(algorithm, status)
		}
	}

	for _, family := range []string{"binary", "perceptual"} {
		HashDuration.WithLabelValues(family)
	}

	for _, decoder := range []string{"imaging", "vips"} {
		ImageDecodeTotal.WithLabelValues(decoder, "success")
		ImageDecodeTotal.WithLabelValues(decoder, "error")
	}

	for _, detector := range []string{"header", "decoder", "vips", "unidentified", "error"} {
		ClassificationsTotal.WithLabelValues(detector)
	}

	BufferFlushesTotal.WithLabelValues("success")
	BufferFlushesTotal.WithLabelValues("error")

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "add_file", "update_hashes", "get_cached_items",
		"flush", "get_file", "find_by_hash", "list_files", "export", "calculate_stats", "reset", "vacuum",
		"begin_transaction", "commit", "rollback"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, t := range []string{"commit", "rollback", "flush"} {
		DBTransactionDuration.WithLabelValues(t)
	}
}
