package clock

import "time"

// Precision is the timestamp resolution every storage backend preserves
const Precision = time.Millisecond

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current UTC time truncated to Precision, so a post or
// session reads back equal to what was written on any backend
func (c *RealClock) Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}
