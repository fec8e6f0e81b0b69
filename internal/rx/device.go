// Package rx provides the receiver devices consumed by the input
// conditioner. Wire-format decoding lives outside this package: devices are
// fed already decoded channel values in microseconds.
package rx

import (
	"github.com/BryanSouza91/flightcore/internal/clock"
)

// Status is the result of polling a device.
type Status int

const (
	// Idle means no new frame since the last poll.
	Idle Status = iota
	// Received means a new frame is available.
	Received
	// Lost means the link went silent.
	Lost
	// Failsafe means the receiver itself reports failsafe.
	Failsafe
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Received:
		return "received"
	case Lost:
		return "lost"
	case Failsafe:
		return "failsafe"
	}
	return "unknown"
}

// Device is a receiver. Update must not block.
type Device interface {
	Update() Status
	// Get copies the first n channels of the latest frame into dst.
	Get(dst []uint16, n int)
	// NeedAverage reports whether the samples are noisy enough to need a
	// two-tap average.
	NeedAverage() bool
	ChannelCount() int
}

// link tracks frame arrival and reports Lost once per silence episode.
type link struct {
	clk     clock.Clock
	timeout int64 // us
	last    int64
	seen    bool
	lost    bool
}

// frame records an arriving frame and returns its status.
func (l *link) frame(failsafe bool) Status {
	l.last = l.clk.Micros()
	l.seen = true
	l.lost = false
	if failsafe {
		return Failsafe
	}
	return Received
}

// silence returns Lost the first time the link has been quiet for longer
// than the timeout, Idle otherwise.
func (l *link) silence() Status {
	if !l.seen || l.lost {
		return Idle
	}
	if l.clk.Micros()-l.last > l.timeout {
		l.lost = true
		return Lost
	}
	return Idle
}

// copyChannels copies up to n channels from src into dst.
func copyChannels(dst []uint16, src []uint16, n int) {
	if n > len(src) {
		n = len(src)
	}
	if n > len(dst) {
		n = len(dst)
	}
	copy(dst[:n], src[:n])
}
