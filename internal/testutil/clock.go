package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of DeterministicClock.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock that advances by a fixed step on
// every read, so report start and end times are reproducible.
//
// Implements engine.Clock. Unlike a real clock it can be reset, so the
// same scenario can run several times with identical timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	reads int64
}

// NewDeterministicClock creates a clock whose first Now returns start and
// each later Now returns the previous value plus step.
//
// A zero start selects Epoch.
func NewDeterministicClock(start time.Time, step time.Duration) *DeterministicClock {
	if start.IsZero() {
		start = Epoch
	}
	return &DeterministicClock{start: start.UTC(), step: step}
}

// Now returns the next reading.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.reads) * c.step)
	c.reads++
	return t
}

// Reads returns how many times Now was called.
func (c *DeterministicClock) Reads() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Reset rewinds the clock to its start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = 0
}
