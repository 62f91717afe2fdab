package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Parallel()

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{"CPU-bound task (1.0x multiplier)", 1.0, 0, 1, availableCPU},
		{"I/O-bound task (2.0x multiplier)", 2.0, 0, 1, availableCPU * 2},
		{"Mixed task (1.5x multiplier)", 1.5, 0, 1, max(1, int(float64(availableCPU)*1.5))},
		{"With limit lower than calculated", 2.0, 2, 1, 2},
		{"Very low multiplier", 0.1, 0, 1, max(1, int(float64(availableCPU)*0.1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect {
				t.Errorf("Count(%v, %d) = %d, expected >= %d", tt.multiplier, tt.limit, got, tt.minExpect)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestForMixedRespectsLimit(t *testing.T) {
	t.Parallel()

	if got := ForMixed(1); got != 1 {
		t.Errorf("ForMixed(1) = %d, want 1", got)
	}
}

func TestForFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured int
		limit      int
		want       int
	}{
		{"explicit", 7, 4, 7},
		{"default", 0, 4, DefaultFileWorkers},
		{"auto capped", -1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ForFiles(tt.configured, tt.limit); got != tt.want {
				t.Errorf("ForFiles(%d, %d) = %d, want %d", tt.configured, tt.limit, got, tt.want)
			}
		})
	}
}
