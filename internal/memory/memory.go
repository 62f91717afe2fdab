package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"fingerprinter/internal/logging"
	"fingerprinter/internal/metrics"
)

// Config holds memory management configuration
type Config struct {
	// LimitBytes is the soft limit to measure against; 0 uses GOMEMLIMIT.
	LimitBytes int64

	// HighWaterMark is the usage ratio at which the result buffer shrinks.
	HighWaterMark float64

	// CriticalWaterMark is the usage ratio at which workers stop taking files.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns sensible defaults for memory management
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     2 * time.Second,
	}
}

// Monitor samples heap usage against the soft limit and exposes two
// backpressure signals: ShouldThrottle above the high-water mark and
// WaitIfPaused above the critical mark. A Monitor without a limit never
// signals.
type Monitor struct {
	config Config
	limit  int64
	// readAlloc is swapped out in tests.
	readAlloc func() uint64

	stopOnce sync.Once
	stopChan chan struct{}

	mu        sync.RWMutex
	current   uint64
	paused    bool
	resumeCh  chan struct{}
	throttled bool
}

// NewMonitor creates a new memory monitor
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}

	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, backpressure disabled")
	} else {
		logging.Info("Memory monitor limit: %s (high %.0f%%, critical %.0f%%)",
			FormatBytes(limit), config.HighWaterMark*100, config.CriticalWaterMark*100)
	}
	metrics.GoMemLimit.Set(float64(limit))

	return &Monitor{
		config:    config,
		limit:     limit,
		readAlloc: heapAlloc,
		stopChan:  make(chan struct{}),
		resumeCh:  make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins sampling. It is a no-op without a limit.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.loop()
}

// Stop ends sampling and releases any goroutine blocked in WaitIfPaused.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) check() {
	alloc := m.readAlloc()
	metrics.GoMemAllocBytes.Set(float64(alloc))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc
	if m.limit == 0 {
		return
	}

	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	throttled := usage >= m.config.HighWaterMark
	if throttled && !m.throttled {
		metrics.MemoryPressureTotal.Inc()
		logging.Debug("Memory above high-water mark (%.1f%% of limit)", usage*100)
	}
	m.throttled = throttled

	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing file dispatch", usage*100)
		m.paused = true
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming file dispatch", usage*100)
		m.paused = false
		close(m.resumeCh)
		m.resumeCh = make(chan struct{})
	}
}

// WaitIfPaused blocks while usage is critical. It returns false when ctx is
// done or the monitor is stopped first.
func (m *Monitor) WaitIfPaused(ctx context.Context) bool {
	m.mu.RLock()
	if !m.paused {
		m.mu.RUnlock()
		return true
	}
	resume := m.resumeCh
	m.mu.RUnlock()

	select {
	case <-resume:
		return true
	case <-ctx.Done():
		return false
	case <-m.stopChan:
		return false
	}
}

// ShouldThrottle reports whether usage was above the high-water mark at the
// last sample.
func (m *Monitor) ShouldThrottle() bool {
	if m == nil || m.limit == 0 {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.throttled
}

// IsPaused reports whether dispatch is paused.
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Usage returns the last sampled usage as a ratio of the limit, or 0.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
