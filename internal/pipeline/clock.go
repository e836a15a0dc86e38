package pipeline

import "time"

// Counter is a free-running hardware counter that wraps at 2^32.
type Counter interface {
	Counter() uint32
}

// CounterFunc adapts a function to Counter.
type CounterFunc func() uint32

// Counter implements Counter.
func (f CounterFunc) Counter() uint32 { return f() }

// Clock extends a wrapping 32-bit counter to a monotonic 64-bit timestamp by
// counting overflows. It must be sampled at least once per counter period.
// A Clock is owned by one pipeline and is not safe for concurrent use.
type Clock struct {
	src       Counter
	last      uint32
	overflows uint32
}

// NewClock creates a clock reading src.
func NewClock(src Counter) *Clock {
	return &Clock{src: src}
}

// Now returns the extended counter value.
func (c *Clock) Now() uint64 {
	n := c.src.Counter()
	if n < c.last {
		c.overflows++
	}
	c.last = n
	return uint64(c.overflows)<<32 | uint64(n)
}

// MicrosCounter is a microsecond counter derived from a time source. It wraps
// after about 71 minutes, like a 1 MHz hardware timer.
type MicrosCounter struct {
	start time.Time
	now   func() time.Time
}

// NewMicrosCounter starts a counter at zero.
func NewMicrosCounter(now func() time.Time) *MicrosCounter {
	return &MicrosCounter{start: now(), now: now}
}

// Counter implements Counter.
func (m *MicrosCounter) Counter() uint32 {
	return uint32(m.now().Sub(m.start).Microseconds())
}
