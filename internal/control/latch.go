package control

// Latch is the pending/idle state between a sensor sample and the fusion
// result that consumes it.
type Latch struct {
	pending bool
}

// Mark makes a cycle pending.
func (l *Latch) Mark() { l.pending = true }

// Take reports whether a cycle was pending and returns the latch to idle.
func (l *Latch) Take() bool {
	p := l.pending
	l.pending = false
	return p
}

func (l *Latch) Pending() bool { return l.pending }
