package rx

import (
	"sync"

	"github.com/BryanSouza91/flightcore/internal/state"
)

// Mailbox hands decoded frames from a capture goroutine to a device polled
// by the control loop. Only the latest frame is kept.
type Mailbox struct {
	mu       sync.Mutex
	channels [state.MaxChannels]uint16
	count    int
	failsafe bool
	fresh    bool

	// ready is buffered so Put never waits for the reader.
	ready chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Put stores a frame, replacing any frame not yet taken.
func (m *Mailbox) Put(channels []uint16, failsafe bool) {
	m.mu.Lock()
	m.count = copy(m.channels[:], channels)
	m.failsafe = failsafe
	m.fresh = true
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Take copies the latest frame into dst if one arrived since the last Take.
// It returns the number of channels and the receiver failsafe flag.
func (m *Mailbox) Take(dst *[state.MaxChannels]uint16) (n int, failsafe, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fresh {
		return 0, false, false
	}
	m.fresh = false
	*dst = m.channels
	return m.count, m.failsafe, true
}

// Ready is signalled after each Put.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}
