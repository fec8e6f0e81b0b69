package state

// DebugMode selects which internal values are published to Debug.
type DebugMode int

const (
	DebugNone DebugMode = iota
	DebugRxSignalLoss
	DebugRcSmoothingRate
	DebugAngleRate
)

var debugModeNames = [...]string{"none", "rx_signal_loss", "rc_smoothing_rate", "anglerate"}

func (m DebugMode) String() string {
	if m < 0 || int(m) >= len(debugModeNames) {
		return "unknown"
	}
	return debugModeNames[m]
}

// ParseDebugMode returns the DebugMode for a config name.
func ParseDebugMode(s string) (DebugMode, bool) {
	for i, n := range debugModeNames {
		if n == s {
			return DebugMode(i), true
		}
	}
	return DebugNone, false
}

// Debug is the fixed-size diagnostic array. Writing it has no behavioural
// effect.
type Debug [4]int16

func boolInt(b bool) int16 {
	if b {
		return 1
	}
	return 0
}

// SetBool stores b as 0/1 at index i.
func (d *Debug) SetBool(i int, b bool) {
	d[i] = boolInt(b)
}

// Set stores v at index i, saturating to int16.
func (d *Debug) Set(i int, v int64) {
	switch {
	case v > 32767:
		v = 32767
	case v < -32768:
		v = -32768
	}
	d[i] = int16(v)
}
