package domain

import "time"

// Clock provides the current time in UTC. It is injected so that
// lead-time checks are testable.
type Clock interface {
	Now() time.Time
}

// UTCClock is the production Clock backed by the system time.
type UTCClock struct{}

// Now returns the current time in UTC.
func (UTCClock) Now() time.Time {
	return time.Now().UTC()
}

// Ensure the interface is satisfied.
var _ Clock = UTCClock{}
