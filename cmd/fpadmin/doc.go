// Command fpadmin provides database maintenance for a fingerprint store.
//
// Usage:
//
//	fpadmin <command>
//
// Commands:
//
//	status  Print file and hash counts, per-algorithm totals and the time of
//	        the last completed run. Output is JSON when stdout is not a
//	        terminal.
//
//	vacuum  Rebuild the database file to reclaim space left by replaced
//	        hashes and dropped schemas.
//
// Environment:
//
//	FINGERPRINT_DATABASE - Path to the SQLite store (default: fingerprints.db)
package main
