package ecs

import (
	"sync"
	"time"
)

// TimeProvider is the clock the engine measures elapsed time with.
type TimeProvider interface {
	Now() time.Time
}

// SystemTimeProvider reads the wall clock. Its readings carry the monotonic
// clock, so elapsed times are not affected by wall clock adjustments.
type SystemTimeProvider struct{}

func (SystemTimeProvider) Now() time.Time { return time.Now() }

// MockTimeProvider is a manually advanced clock for tests.
type MockTimeProvider struct {
	mu          sync.RWMutex
	currentTime time.Time
}

// NewMockTimeProvider creates a clock frozen at start.
func NewMockTimeProvider(start time.Time) *MockTimeProvider {
	return &MockTimeProvider{currentTime: start}
}

func (m *MockTimeProvider) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentTime
}

// SetTime moves the clock to t.
func (m *MockTimeProvider) SetTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the clock forward by d.
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}
