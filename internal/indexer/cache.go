package indexer

import (
	"context"
	"fmt"
	"sync"

	"fingerprinter/internal/database"
)

// CachedItemSource lists the (path, algorithm) pairs already committed.
type CachedItemSource interface {
	GetCachedItems(ctx context.Context) ([]database.CachedItem, error)
}

// CacheIndex is the in-memory set of committed (path, algorithm) pairs.
type CacheIndex struct {
	mu    sync.RWMutex
	items map[string]map[string]struct{}
	pairs int
}

// NewCacheIndex returns an empty index.
func NewCacheIndex() *CacheIndex {
	return &CacheIndex{items: make(map[string]map[string]struct{})}
}

// LoadCacheIndex builds an index from everything the store has committed.
func LoadCacheIndex(ctx context.Context, src CachedItemSource) (*CacheIndex, error) {
	items, err := src.GetCachedItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached items: %w", err)
	}

	c := NewCacheIndex()
	for _, it := range items {
		c.Add(it.Path, it.Algorithm)
	}
	return c, nil
}

// Has reports whether algorithm has been computed for path.
func (c *CacheIndex) Has(path, algorithm string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[path][algorithm]
	return ok
}

// HasPath reports whether path has any committed hash.
func (c *CacheIndex) HasPath(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items[path]) > 0
}

// Add records a committed pair.
func (c *CacheIndex) Add(path, algorithm string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	algs, ok := c.items[path]
	if !ok {
		algs = make(map[string]struct{})
		c.items[path] = algs
	}
	if _, ok := algs[algorithm]; !ok {
		algs[algorithm] = struct{}{}
		c.pairs++
	}
}

// Len returns the number of pairs in the index.
func (c *CacheIndex) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pairs
}
