// Package database is the SQLite storage gateway for fingerprint records.
//
// The schema holds one row per file (path, optional media type), one row per
// computed hash (algorithm, hex digest) and a file_hash link table. At most
// one hash per (file, algorithm) is kept: writing a digest for an algorithm
// that is already stored replaces the old value.
//
// The database runs in WAL mode. Writes are serialized by a mutex and each
// flush of the result buffer is a single transaction, so a batch is either
// fully committed or not at all. The schema is created on open and additive
// migrations run afterwards.
package database
