// Package state holds the data shared between the input conditioner and the
// control loop. Each struct has exactly one writer: the conditioner produces
// an InputSnapshot, the control loop produces an ActuatorCommand and owns the
// desired/output quantities in AxisState.
package state

// Axis indexes roll, pitch, yaw and thrust. Receiver channels use the same
// indices for the first four channels.
type Axis int

const (
	Roll Axis = iota
	Pitch
	Yaw
	Thrust
)

// Axes is the number of controlled axes.
const Axes = 4

// MaxChannels is the number of receiver channels the core can carry.
const MaxChannels = 16

var axisNames = [Axes]string{"roll", "pitch", "yaw", "thrust"}

func (a Axis) String() string {
	if a < 0 || a >= Axes {
		return "aux"
	}
	return axisNames[a]
}

// IsStick reports whether the channel is a centered stick axis (roll, pitch,
// yaw). Deadband applies to these only.
func IsStick(c int) bool {
	return c < int(Thrust)
}

// IsAxis reports whether the channel is one of the four control axes
// (sticks plus throttle).
func IsAxis(c int) bool {
	return c <= int(Thrust)
}

// Canonical pulse-width range in microseconds.
const (
	PwmMin = 1000
	PwmMid = 1500
	PwmMax = 2000
)

// FrameTiming tracks the receiver frame rate and the interpolation state.
type FrameTiming struct {
	// FrameTime is the clock reading of the last non-idle device status.
	FrameTime int64
	// FrameDelta is the smoothed inter-frame interval in microseconds.
	FrameDelta int64
	// FrameRate is 1e6/FrameDelta.
	FrameRate int64
	// FrameCount counts frames since startup or device re-acquisition.
	FrameCount int64
	// InterpolationDelta is the expected frame interval in seconds.
	InterpolationDelta float64
	// InterpolationStep is the per-tick increment of Step.
	InterpolationStep float64
	// Step is the interpolation position between the previous and the
	// current frame, 0..1.
	Step float64
	// AutoFactor scales frame rate into a filter cutoff.
	AutoFactor float64
	// AutoFreq is the applied adaptive cutoff in Hz.
	AutoFreq float64
}

// InputSnapshot is produced by the input conditioner once per tick and read
// by the control loop and the arming authority.
type InputSnapshot struct {
	ChannelCount int
	// Raw is the remapped device value per channel.
	Raw [MaxChannels]int16
	// Buffer is the conditioned value of the latest processed frame, in
	// canonical microseconds; BufferPrevious is the frame before it.
	Buffer         [MaxChannels]int16
	BufferPrevious [MaxChannels]int16
	// Us is the filtered/interpolated channel value in microseconds.
	Us [MaxChannels]float64
	// Input is Us normalized: sticks and aux channels in [-1,1], throttle in
	// [0,1].
	Input [MaxChannels]float64

	ChannelsValid bool
	RxLoss        bool
	RxFailsafe    bool
	Failsafe      FailsafePhase

	Timing FrameTiming
}

// Measurement is the attitude estimate delivered by sensor fusion. Angles in
// radians, rates in radians per second.
type Measurement struct {
	Angle [3]float64
	Gyro  [3]float64
}

// AxisState is the control loop's per-axis view: what was measured and what
// was asked for.
type AxisState struct {
	DesiredAngle [3]float64
	DesiredRate  [Axes]float64
}

// ActuatorCommand is produced by the control loop for the external mixer.
type ActuatorCommand struct {
	Output [Axes]float64
}

// FlightState is the arena allocated once at startup. Nothing in it is
// reallocated on the hot path.
type FlightState struct {
	Input       InputSnapshot
	Measurement Measurement
	Axis        AxisState
	Command     ActuatorCommand
	Debug       Debug
}
