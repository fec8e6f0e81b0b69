// Package clock provides the monotonic microsecond time source.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock reads monotonic time in microseconds.
type Clock interface {
	Micros() int64
}

// System reads the process monotonic clock.
type System struct {
	start time.Time
}

func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) Micros() int64 {
	return time.Since(s.start).Microseconds()
}

// Manual is advanced explicitly; used by the simulator and tests.
type Manual struct {
	now atomic.Int64
}

func (m *Manual) Micros() int64 {
	return m.now.Load()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.now.Add(d.Microseconds())
}

// Set moves the clock to an absolute reading.
func (m *Manual) Set(us int64) {
	m.now.Store(us)
}
