package actor

import (
	"time"

	"coreruntime/internal/core"
)

// Clock supplies the actor's notion of current time, so tests can inject a
// deterministic clock instead of the wall clock.
type Clock interface {
	Now() core.UnixNanos
}

// SystemClock is a Clock backed by time.Now().
type SystemClock struct{}

// Now returns the current wall-clock time as nanoseconds since the epoch.
func (SystemClock) Now() core.UnixNanos { return core.UnixNanos(time.Now().UnixNano()) }
