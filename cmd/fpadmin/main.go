package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"fingerprinter/internal/database"
	"fingerprinter/internal/memory"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database path
	defaultDatabase = "fingerprints.db"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPath := databasePath()
	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure FINGERPRINT_DATABASE is set correctly (current: %s)\n", dbPath)
		os.Exit(1)
	}

	code := 0
	switch command {
	case "status":
		asJSON := !term.IsTerminal(int(os.Stdout.Fd()))
		if err := showStatus(ctx, db, os.Stdout, asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			code = 1
		}
	case "vacuum":
		if err := vacuum(ctx, db, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			code = 1
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(os.Stderr)
		code = 1
	}

	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	os.Exit(code)
}

func databasePath() string {
	if path := os.Getenv("FINGERPRINT_DATABASE"); path != "" {
		return path
	}
	return defaultDatabase
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Fingerprint Store Maintenance")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: fpadmin <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status  - Show store statistics")
	fmt.Fprintln(w, "  vacuum  - Reclaim unused space")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  FINGERPRINT_DATABASE - Path to the SQLite store (default: %s)\n", defaultDatabase)
}

func showStatus(ctx context.Context, db *database.Database, w io.Writer, asJSON bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats, err := db.CalculateStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(w, "Database:     %s (%s)\n", db.Path(), memory.FormatBytes(fileSize(db.Path())))
	fmt.Fprintf(w, "Files:        %d\n", stats.TotalFiles)
	fmt.Fprintf(w, "Hashes:       %d\n", stats.TotalHashes)
	if stats.LastRun.IsZero() {
		fmt.Fprintln(w, "Last run:     never")
	} else {
		fmt.Fprintf(w, "Last run:     %s\n", stats.LastRun.Local().Format(time.RFC1123))
	}

	algorithms := make([]string, 0, len(stats.HashesByAlgorithm))
	for name := range stats.HashesByAlgorithm {
		algorithms = append(algorithms, name)
	}
	sort.Strings(algorithms)
	for _, name := range algorithms {
		fmt.Fprintf(w, "  %-12s %d\n", name, stats.HashesByAlgorithm[name])
	}
	return nil
}

func vacuum(ctx context.Context, db *database.Database, w io.Writer) error {
	before := fileSize(db.Path())
	if err := db.Vacuum(ctx); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}
	after := fileSize(db.Path())
	fmt.Fprintf(w, "Vacuum complete: %s -> %s\n", memory.FormatBytes(before), memory.FormatBytes(after))
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
