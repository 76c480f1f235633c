package softdelete

import (
	"sync/atomic"
	"time"
)

// Clock stamps tombstones with a deleted-at time and a row version.
type Clock interface {
	Now() time.Time
	// Next returns a version greater than every version returned before.
	Next() int64
}

// SystemClock versions rows by wall time in nanoseconds, bumped when two
// calls land on the same nanosecond.
//
// Thread-safety: SystemClock is safe for concurrent use (atomic operations).
type SystemClock struct {
	last atomic.Int64
}

// NewSystemClock creates a wall-time clock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current UTC time.
func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Next returns max(now, last+1) and records it.
func (c *SystemClock) Next() int64 {
	for {
		last := c.last.Load()
		next := max(time.Now().UnixNano(), last+1)
		if c.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
