package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func newTestMonitor(limit int64, alloc *atomic.Uint64) *Monitor {
	m := NewMonitor(Config{
		LimitBytes:        limit,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Millisecond,
	})
	m.readAlloc = alloc.Load
	return m
}

func TestMonitorThresholds(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)

	tests := []struct {
		name      string
		alloc     uint64
		throttled bool
		paused    bool
	}{
		{"low usage", 100, false, false},
		{"above high-water", 750, true, false},
		{"critical", 900, true, true},
		{"between marks stays paused", 800, true, true},
		{"recovered", 300, false, false},
	}

	for _, tt := range tests {
		alloc.Store(tt.alloc)
		m.check()

		if got := m.ShouldThrottle(); got != tt.throttled {
			t.Errorf("%s: ShouldThrottle = %v, want %v", tt.name, got, tt.throttled)
		}
		if got := m.IsPaused(); got != tt.paused {
			t.Errorf("%s: IsPaused = %v, want %v", tt.name, got, tt.paused)
		}
	}
}

func TestMonitorUsage(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(250)
	m := newTestMonitor(1000, &alloc)
	m.check()

	if got := m.Usage(); got != 0.25 {
		t.Errorf("Usage = %v, want 0.25", got)
	}
}

func TestMonitorWaitIfPaused(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)

	if !m.WaitIfPaused(context.Background()) {
		t.Fatal("WaitIfPaused should return immediately when not paused")
	}

	alloc.Store(950)
	m.check()

	released := make(chan bool, 1)
	go func() {
		released <- m.WaitIfPaused(context.Background())
	}()

	select {
	case <-released:
		t.Fatal("WaitIfPaused returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	alloc.Store(100)
	m.check()

	select {
	case ok := <-released:
		if !ok {
			t.Error("WaitIfPaused returned false after recovery")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused did not return after recovery")
	}
}

func TestMonitorWaitIfPausedContextCancel(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(990)
	m := newTestMonitor(1000, &alloc)
	m.check()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if m.WaitIfPaused(ctx) {
		t.Error("WaitIfPaused should return false for a cancelled context")
	}
}

func TestMonitorWithoutLimit(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(1 << 40)
	m := newTestMonitor(0, &alloc)
	m.limit = 0
	m.check()

	if m.ShouldThrottle() {
		t.Error("monitor without limit must not throttle")
	}
	if m.Usage() != 0 {
		t.Errorf("Usage = %v, want 0", m.Usage())
	}

	// Start is a no-op and Stop must be safe to call twice.
	m.Start()
	m.Stop()
	m.Stop()
}

func TestNilMonitorShouldThrottle(t *testing.T) {
	var m *Monitor
	if m.ShouldThrottle() {
		t.Error("nil monitor must not throttle")
	}
}

func TestMonitorStartStop(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(10)
	m := newTestMonitor(1000, &alloc)

	m.Start()
	time.Sleep(10 * time.Millisecond)
	m.Stop()
}
