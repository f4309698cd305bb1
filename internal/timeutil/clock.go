// Package timeutil abstracts the clock so move pacing can be tested
// without real delays.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the subset of the time package the robot loop depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration

	// Sleep pauses for the specified duration.
	Sleep(d time.Duration)
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }
func (RealClock) Sleep(d time.Duration)           { time.Sleep(d) }

// MockClock is a manually controlled clock for testing. Sleep returns
// immediately, records the duration and advances the clock by it.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the mock clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Sleep records d and advances the clock by it.
func (c *MockClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

// Sleeps returns all recorded sleep durations.
func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]time.Duration, len(c.sleeps))
	copy(result, c.sleeps)
	return result
}

// Pacer holds simulated motion to a physical rate: a move of n steps
// takes StepDuration/StepsPerSecond*n in total, less any time already
// spent since it started.
type Pacer struct {
	Clock          Clock
	StepDuration   time.Duration
	StepsPerSecond int
}

// Budget returns the total wall time allotted to a move of steps.
func (p Pacer) Budget(steps int) time.Duration {
	if p.StepsPerSecond <= 0 || p.StepDuration <= 0 || steps <= 0 {
		return 0
	}
	return p.StepDuration / time.Duration(p.StepsPerSecond) * time.Duration(steps)
}

// Wait sleeps out whatever remains of the budget for a move of steps
// that began at start. It returns the time slept.
func (p Pacer) Wait(start time.Time, steps int) time.Duration {
	if p.Clock == nil {
		return 0
	}
	remaining := p.Budget(steps) - p.Clock.Since(start)
	if remaining <= 0 {
		return 0
	}
	p.Clock.Sleep(remaining)
	return remaining
}
