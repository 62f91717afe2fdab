package handlers

import (
	"context"
	"time"

	"fingerprinter/internal/database"
)

// Store is the read side of the fingerprint database.
type Store interface {
	CalculateStats(ctx context.Context) (database.Stats, error)
	GetFile(ctx context.Context, path string) (*database.FileRecord, error)
	FindByHash(ctx context.Context, algorithm, value string) ([]database.FileRecord, error)
	ListFiles(ctx context.Context, limit, offset int) (*database.FileList, error)
}

// Handlers serves read-only queries over a Store.
type Handlers struct {
	store     Store
	startTime time.Time
}

// New creates the query handlers.
func New(store Store) *Handlers {
	return &Handlers{
		store:     store,
		startTime: time.Now(),
	}
}
