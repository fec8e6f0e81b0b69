package state

// FailsafePhase is the link-loss escalation state.
type FailsafePhase int

const (
	FailsafeIdle FailsafePhase = iota
	FailsafeRxLossDetected
	// FailsafeLanding is reserved; the core never enters it.
	FailsafeLanding
	FailsafeLanded
	// FailsafeRxLossMonitoring is reserved; the core never enters it.
	FailsafeRxLossMonitoring
	// FailsafeRxLossRecovered is reserved; the core never enters it.
	FailsafeRxLossRecovered
)

func (p FailsafePhase) String() string {
	switch p {
	case FailsafeIdle:
		return "idle"
	case FailsafeRxLossDetected:
		return "rx_loss_detected"
	case FailsafeLanding:
		return "landing"
	case FailsafeLanded:
		return "landed"
	case FailsafeRxLossMonitoring:
		return "rx_loss_monitoring"
	case FailsafeRxLossRecovered:
		return "rx_loss_recovered"
	}
	return "unknown"
}

// severity orders the phases driven by the core. Reserved phases rank with
// the phase they would follow.
func (p FailsafePhase) severity() int {
	switch p {
	case FailsafeIdle:
		return 0
	case FailsafeRxLossDetected, FailsafeRxLossMonitoring, FailsafeRxLossRecovered:
		return 1
	case FailsafeLanding:
		return 2
	case FailsafeLanded:
		return 3
	}
	return 0
}

// Escalate returns the more severe of p and next. Within a loss episode the
// phase never moves back toward idle.
func (p FailsafePhase) Escalate(next FailsafePhase) FailsafePhase {
	if next.severity() > p.severity() {
		return next
	}
	return p
}
