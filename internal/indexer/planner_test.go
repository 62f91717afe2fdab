package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"fingerprinter/internal/filesystem"
)

func TestPlanIsNotRecursive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "a.txt", "a")
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "nested.txt", "nested")

	plan, err := Planner{Retry: filesystem.DefaultRetryConfig()}.Plan(
		context.Background(), []string{dir}, resolve(t, "md5"), NewCacheIndex())
	if err != nil {
		t.Fatal(err)
	}

	if plan.SkippedNonFile != 1 {
		t.Errorf("SkippedNonFile = %d, want 1", plan.SkippedNonFile)
	}
	if len(plan.Units) != 2 {
		t.Fatalf("planned %d units, want 2", len(plan.Units))
	}
	for _, u := range plan.Units {
		if filepath.Dir(u.Path) != dir {
			t.Errorf("unit %s is outside the root", u.Path)
		}
	}
	if plan.Units[0].Path != filepath.Join(dir, "a.txt") {
		t.Errorf("first unit = %s, want a.txt", plan.Units[0].Path)
	}
}

func TestPlanOrdersAndDeduplicatesAcrossRoots(t *testing.T) {
	t.Parallel()

	dir1, dir2 := t.TempDir(), t.TempDir()
	for _, n := range []string{"z", "m", "a"} {
		writeFile(t, dir1, n, n)
		writeFile(t, dir2, n, n)
	}

	plan, err := Planner{}.Plan(context.Background(),
		[]string{dir2, dir1, dir2 + string(filepath.Separator)}, resolve(t, "md5"), NewCacheIndex())
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Units) != 6 {
		t.Fatalf("planned %d units, want 6", len(plan.Units))
	}
	paths := make([]string, len(plan.Units))
	for i, u := range plan.Units {
		paths[i] = u.Path
	}
	if !sort.StringsAreSorted(paths) {
		t.Errorf("units not in lexical order: %v", paths)
	}
}

func TestPlanFiltersCachedPairs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a", "a")
	writeFile(t, dir, "b", "b")

	cache := NewCacheIndex()
	cache.Add(a, "md5")

	tests := []struct {
		name       string
		algorithms []string
		wantUnits  int
		wantCached int
		wantAlgsA  []string
	}{
		{"fully cached file dropped", []string{"md5"}, 1, 1, nil},
		{"only missing algorithms planned", []string{"md5", "sha1"}, 2, 0, []string{"sha1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Planner{}.Plan(context.Background(), []string{dir}, resolve(t, tt.algorithms...), cache)
			if err != nil {
				t.Fatal(err)
			}
			if len(plan.Units) != tt.wantUnits || plan.Cached != tt.wantCached {
				t.Fatalf("units=%d cached=%d, want %d and %d", len(plan.Units), plan.Cached, tt.wantUnits, tt.wantCached)
			}
			for _, u := range plan.Units {
				if u.Path != a {
					if u.Existing {
						t.Errorf("%s marked existing", u.Path)
					}
					continue
				}
				if !u.Existing {
					t.Error("a should be marked existing")
				}
				var names []string
				for _, alg := range u.Algorithms {
					names = append(names, alg.Name)
				}
				if len(names) != len(tt.wantAlgsA) || names[0] != tt.wantAlgsA[0] {
					t.Errorf("algorithms for a = %v, want %v", names, tt.wantAlgsA)
				}
			}
		})
	}
}

func TestPlanSkipHidden(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".hidden", "h")
	writeFile(t, dir, "visible", "v")

	for _, skip := range []bool{false, true} {
		plan, err := Planner{SkipHidden: skip}.Plan(context.Background(), []string{dir}, resolve(t, "md5"), NewCacheIndex())
		if err != nil {
			t.Fatal(err)
		}
		want := 2
		if skip {
			want = 1
		}
		if len(plan.Units) != want {
			t.Errorf("SkipHidden=%v: planned %d, want %d", skip, len(plan.Units), want)
		}
	}
}

func TestPlanMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Planner{}.Plan(context.Background(),
		[]string{filepath.Join(t.TempDir(), "missing")}, resolve(t, "md5"), NewCacheIndex())
	if err == nil {
		t.Error("expected error for missing root")
	}
}
