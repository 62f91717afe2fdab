/*
Package filesystem wraps the read-only filesystem operations of the pipeline
(stat, open, one-level directory listing) with retry logic for NFS stale
file handle errors.

Only ESTALE triggers a retry; every other error is returned on the first
attempt. Backoff is exponential and capped, and waits are abandoned when the
context is cancelled:

	info, err := filesystem.StatWithRetry(ctx, path, filesystem.DefaultRetryConfig())

Defaults: MaxRetries 3, InitialBackoff 50ms, MaxBackoff 500ms.

Metrics are reported through an [Observer] registered with [SetObserver];
paths are labelled by the [VolumeResolver] configured at startup, so that
source roots and the database volume can be told apart.
*/
package filesystem
