package domain

import (
	"sync"
	"time"
)

// Clock supplies event creation times. Event ordering is driven entirely
// by these times, so writers use a strictly increasing clock to keep
// events produced in quick succession in their original order.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IncreasingClock is a wall clock that never returns the same or an
// earlier time twice. If the wall clock has not advanced past the last
// reading, it returns the last reading plus one microsecond.
type IncreasingClock struct {
	mu   sync.Mutex
	last time.Time
}

// NewIncreasingClock creates a strictly increasing clock.
func NewIncreasingClock() *IncreasingClock {
	return &IncreasingClock{}
}

// Now returns a UTC time strictly later than any previous return value.
func (c *IncreasingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}
