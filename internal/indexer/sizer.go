package indexer

import (
	"math/rand/v2"
	"sync"
	"time"

	"fingerprinter/internal/logging"
)

const (
	// DefaultBufferSize is the static flush threshold.
	DefaultBufferSize = 10
	// DefaultBufferMax is the largest capacity the adaptive policy tries.
	DefaultBufferMax = 64

	adaptiveAlpha    = 0.5
	adaptiveEpsilon  = 0.25
	adaptiveDiscount = 0.99
)

// Sizer chooses the result buffer capacity.
type Sizer interface {
	// Size returns the capacity at which the buffer should flush.
	Size() int
	// Observe reports that n results were committed after elapsed time
	// spent filling and flushing at the current capacity.
	Observe(n int, elapsed time.Duration)
}

// StaticSizer always returns the same capacity.
type StaticSizer struct {
	size int
}

// NewStaticSizer returns a sizer fixed at size (at least 1).
func NewStaticSizer(size int) *StaticSizer {
	return &StaticSizer{size: max(size, 1)}
}

func (s *StaticSizer) Size() int { return s.size }
func (s *StaticSizer) Observe(int, time.Duration) {}

// AdaptiveSizer learns a capacity between 1 and max with epsilon-greedy
// Q-learning. The reward for a capacity is the commit throughput in
// results per second observed while it was in effect.
type AdaptiveSizer struct {
	mu      sync.Mutex
	q       []float64 // q[i] scores capacity i+1
	current int
	rng     *rand.Rand

	alpha    float64
	epsilon  float64
	discount float64
}

// NewAdaptiveSizer starts at min(DefaultBufferSize, max). seed makes the
// exploration sequence reproducible.
func NewAdaptiveSizer(maxSize int, seed uint64) *AdaptiveSizer {
	maxSize = max(maxSize, 1)
	return &AdaptiveSizer{
		q:        make([]float64, maxSize),
		current:  min(DefaultBufferSize, maxSize),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		alpha:    adaptiveAlpha,
		epsilon:  adaptiveEpsilon,
		discount: adaptiveDiscount,
	}
}

// Size returns the current capacity.
func (s *AdaptiveSizer) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Observe scores the current capacity and picks the next one.
func (s *AdaptiveSizer) Observe(n int, elapsed time.Duration) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reward := float64(n)
	if secs := elapsed.Seconds(); secs > 0 {
		reward = float64(n) / secs
	}

	i := s.current - 1
	s.q[i] += s.alpha * (reward + s.discount*s.best() - s.q[i])

	prev := s.current
	if s.rng.Float64() < s.epsilon {
		s.current = s.rng.IntN(len(s.q)) + 1
	} else {
		s.current = s.argmax() + 1
	}
	if s.current != prev {
		logging.Debug("Adaptive buffer capacity %d -> %d (reward %.1f/s)", prev, s.current, reward)
	}
}

func (s *AdaptiveSizer) best() float64 {
	return s.q[s.argmax()]
}

func (s *AdaptiveSizer) argmax() int {
	best := 0
	for i, v := range s.q {
		if v > s.q[best] {
			best = i
		}
	}
	return best
}

// PressureSignal reports memory pressure.
type PressureSignal interface {
	ShouldThrottle() bool
}

// MemoryAwareSizer halves the inner sizer's capacity while the pressure
// signal is raised.
type MemoryAwareSizer struct {
	inner    Sizer
	pressure PressureSignal
}

// NewMemoryAwareSizer wraps inner. A nil pressure signal never throttles.
func NewMemoryAwareSizer(inner Sizer, pressure PressureSignal) *MemoryAwareSizer {
	return &MemoryAwareSizer{inner: inner, pressure: pressure}
}

func (m *MemoryAwareSizer) Size() int {
	size := m.inner.Size()
	if m.pressure != nil && m.pressure.ShouldThrottle() {
		return max(size/2, 1)
	}
	return size
}

func (m *MemoryAwareSizer) Observe(n int, elapsed time.Duration) {
	m.inner.Observe(n, elapsed)
}
