package database

import "time"

// FileRecord is a stored file with its hashes keyed by algorithm.
type FileRecord struct {
	ID        int64             `json:"id" yaml:"-"`
	Path      string            `json:"path" yaml:"path"`
	FileType  string            `json:"filetype,omitempty" yaml:"filetype,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt" yaml:"updated_at"`
	Hashes    map[string]string `json:"hashes" yaml:"hashes"`
}

// Entry is one file's worth of newly computed hashes waiting to be written.
// Existing tells the gateway whether the planner saw the path in the store.
type Entry struct {
	Path     string
	FileType string
	Hashes   map[string]string
	Existing bool
}

// CachedItem is a committed (path, algorithm) pair.
type CachedItem struct {
	Path      string
	Algorithm string
}

// FlushResult counts the file records written by one flush.
type FlushResult struct {
	Added   int
	Updated int
}

// Stats summarizes the store contents.
type Stats struct {
	TotalFiles        int            `json:"totalFiles"`
	TotalHashes       int            `json:"totalHashes"`
	HashesByAlgorithm map[string]int `json:"hashesByAlgorithm"`
	FilesByType       map[string]int `json:"filesByType"`
	LastRun           time.Time      `json:"lastRun,omitzero"`
}

// FileList is one page of file records.
type FileList struct {
	Items      []FileRecord `json:"items"`
	TotalItems int          `json:"totalItems"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}
