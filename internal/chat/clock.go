package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock is the server clock used to stamp conversations and messages.
type Clock interface {
	Now() time.Time
}

// MonotonicClock returns strictly increasing UTC timestamps, even when the
// wall clock stalls or steps backwards. Timestamps are truncated to the
// clock's resolution so they survive storage that keeps less precision.
type MonotonicClock struct {
	mu         sync.Mutex
	last       time.Time
	resolution time.Duration
	now        func() time.Time
}

// NewMonotonicClock returns a microsecond MonotonicClock over time.Now.
func NewMonotonicClock() *MonotonicClock {
	return NewMonotonicClockWithResolution(time.Microsecond)
}

// NewMonotonicClockWithResolution returns a MonotonicClock ticking in steps
// of resolution (time.Millisecond for MongoDB dates).
func NewMonotonicClockWithResolution(resolution time.Duration) *MonotonicClock {
	if resolution <= 0 {
		resolution = time.Nanosecond
	}
	return &MonotonicClock{resolution: resolution, now: time.Now}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Round(0).Truncate(c.resolution)
	if !t.After(c.last) {
		t = c.last.Add(c.resolution)
	}
	c.last = t
	return t
}

// newID returns a time-ordered UUIDv7 string.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
