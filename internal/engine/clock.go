package engine

import "time"

// Clock supplies wall-clock time for the Invocation start and end fields.
// It is read exactly twice per run, both times by the orchestrator
// goroutine, so report timing never depends on worker scheduling.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
