// Package indexer is the incremental fingerprinting pipeline.
//
// A run loads the (path, algorithm) pairs already in the store, plans the
// direct file entries of each root directory against them, and hands the
// remaining work to a fixed pool of workers:
//
//   - Binary algorithms share a single read of the file.
//   - Perceptual algorithms trigger classification, then one decode shared
//     by all of them.
//   - Failures are recorded per algorithm; siblings still run.
//
// Results are collected on one goroutine into a buffer whose capacity is
// chosen by a static, adaptive or memory-aware policy, and committed in
// batches. A storage failure stops the run. On cancellation the collected
// results are committed before returning.
//
// Only successful digests are stored. A pair that failed, such as dhash on a
// text file, is planned again by the next run.
package indexer
