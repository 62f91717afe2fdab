// Package memory configures the Go soft memory limit for containerized runs
// and turns heap usage into backpressure for the fingerprinting pipeline.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main. GOMEMLIMIT, when set, wins; otherwise
// MEMORY_LIMIT (bytes, typically from the Kubernetes Downward API) is scaled by
// MEMORY_RATIO (default 0.85) and applied with debug.SetMemoryLimit:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// Lower the ratio when libvips decodes large HEIF or RAW files, since its
// allocations live outside the Go heap.
//
// # Backpressure
//
// A [Monitor] samples heap allocation against the limit:
//
//   - above the high-water mark, ShouldThrottle reports true and the
//     memory-aware buffer sizer halves the flush threshold
//   - above the critical mark, WaitIfPaused blocks workers before they take
//     the next file until usage drops below the high-water mark
//
// Without a configured limit the monitor never signals.
package memory
