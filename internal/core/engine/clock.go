package engine

import "time"

// Clock supplies the engine's notion of now. The engine never blocks on
// time; it only compares deadlines at the moment an operation is applied.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
