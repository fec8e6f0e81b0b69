// Package event carries the signals between the sensor pipeline, the control
// loop and the downstream mixer.
package event

// Type identifies an event.
type Type int

const (
	// GyroRead marks a new sensor sample; a control cycle becomes pending.
	GyroRead Type = iota + 1
	// ImuUpdated marks fusion completion; runs the pending control cycle.
	ImuUpdated
	// PidUpdated is emitted after each control cycle.
	PidUpdated
)

func (t Type) String() string {
	switch t {
	case GyroRead:
		return "gyro_read"
	case ImuUpdated:
		return "imu_updated"
	case PidUpdated:
		return "pid_updated"
	}
	return "unknown"
}

// Event is passed by value so sending does not allocate.
type Event struct {
	Type Type
}

// Sink receives events.
type Sink interface {
	Send(e Event) bool
}

// Queue is a bounded, non-blocking event queue. A full queue drops the event
// and reports false so the sender never stalls the control loop.
type Queue struct {
	ch chan Event
}

// NewQueue creates a queue holding up to size events.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan Event, size)}
}

func (q *Queue) Send(e Event) bool {
	select {
	case q.ch <- e:
		return true
	default:
		return false
	}
}

// Receive returns the next event without blocking.
func (q *Queue) Receive() (Event, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return Event{}, false
	}
}

// C exposes the queue for select loops.
func (q *Queue) C() <-chan Event {
	return q.ch
}

func (q *Queue) Len() int {
	return len(q.ch)
}

var _ Sink = (*Queue)(nil)
