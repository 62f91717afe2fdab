// Package handlers provides the HTTP handlers of the read-only query server.
//
// It includes handlers for:
//   - Store statistics and health
//   - Single-file lookups by path
//   - Exact-digest lookups by algorithm and value
//   - Paged listing of file records
//   - Prometheus metrics and build information
package handlers
