package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"fingerprinter/internal/filesystem"
	"fingerprinter/internal/hashers"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/xerrors"
)

// WorkUnit is one file with the algorithms still missing for it.
type WorkUnit struct {
	Path       string
	Algorithms []*hashers.Algorithm
	// Existing is true when the store already holds a record for Path.
	Existing bool
}

// WorkPlan is the ordered set of units for one run.
type WorkPlan struct {
	Units []WorkUnit
	// Cached counts files skipped because every requested algorithm is stored.
	Cached int
	// SkippedNonFile counts directories found among the root entries.
	SkippedNonFile int
	// Hidden counts dot-entries left out because of SkipHidden.
	Hidden int
}

// Planner lists the direct entries of each root and filters them against
// the cache. It never descends into subdirectories.
type Planner struct {
	SkipHidden bool
	Retry      filesystem.RetryConfig
}

// Plan builds the work plan. Units come out in lexical path order and a
// path reachable from more than one root is planned once.
func (p Planner) Plan(ctx context.Context, roots []string, algorithms []*hashers.Algorithm, cache *CacheIndex) (*WorkPlan, error) {
	plan := &WorkPlan{}
	seen := make(map[string]struct{})

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
		}

		entries, err := filesystem.ReadDirWithRetry(ctx, abs, p.Retry)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, xerrors.Wrap(xerrors.KindAccess, "plan", abs, err)
		}

		for _, entry := range entries {
			path := filepath.Join(abs, entry.Name())
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}

			if p.SkipHidden && strings.HasPrefix(entry.Name(), ".") {
				plan.Hidden++
				continue
			}

			if entry.IsDir() {
				logging.Debug("Skipping directory %s", path)
				plan.SkippedNonFile++
				continue
			}

			missing := make([]*hashers.Algorithm, 0, len(algorithms))
			for _, a := range algorithms {
				if !cache.Has(path, a.Name) {
					missing = append(missing, a)
				}
			}
			if len(missing) == 0 {
				plan.Cached++
				continue
			}

			plan.Units = append(plan.Units, WorkUnit{
				Path:       path,
				Algorithms: missing,
				Existing:   cache.HasPath(path),
			})
		}
	}

	sort.Slice(plan.Units, func(i, j int) bool {
		return plan.Units[i].Path < plan.Units[j].Path
	})

	logging.Info("Planned %d files (%d cached, %d directories skipped)",
		len(plan.Units), plan.Cached, plan.SkippedNonFile)
	return plan, nil
}
