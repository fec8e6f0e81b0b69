// Package input conditions receiver frames into the per-channel command
// values read by the control loop, and runs the link-loss failsafe.
package input

import (
	"github.com/BryanSouza91/flightcore/internal/arming"
	"github.com/BryanSouza91/flightcore/internal/clock"
	"github.com/BryanSouza91/flightcore/internal/config"
	"github.com/BryanSouza91/flightcore/internal/filter"
	"github.com/BryanSouza91/flightcore/internal/logging"
	"github.com/BryanSouza91/flightcore/internal/mathutil"
	"github.com/BryanSouza91/flightcore/internal/metrics"
	"github.com/BryanSouza91/flightcore/internal/rx"
	"github.com/BryanSouza91/flightcore/internal/state"
)

const (
	frameTimeDefault = 23000 // us
	frameTimeMin     = 4000  // us
	frameTimeMax     = 40000 // us

	// frames after startup or re-acquisition that are never consumed
	settleFrames = 5

	minAutoCutoff = 15.0 // Hz
)

// Conditioner owns the channel filters and the failsafe state machine.
// It is the only writer of the InputSnapshot.
type Conditioner struct {
	cfg  *config.Config
	dev  rx.Device
	auth arming.Authority
	clk  clock.Clock

	in    *state.InputSnapshot
	debug *state.Debug
	mode  state.DebugMode

	loopRate     float64
	loopInterval float64

	// pre is the per-channel averaging filter for noisy devices.
	pre [state.MaxChannels]filter.Filter
	// smooth is the per-axis input filter; its cutoff may follow the frame
	// rate.
	smooth [state.Axes]filter.Filter

	raw      [state.MaxChannels]uint16
	fresh    bool  // a frame reached the buffer during this Update
	lastGood int64 // last valid received frame, us
	stage    int   // highest failsafe stage in the current episode

	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates a conditioner writing into fs. A nil dev leaves it inert; a
// nil auth disables the failsafe switch and disarm requests.
func New(cfg *config.Config, dev rx.Device, auth arming.Authority, clk clock.Clock, fs *state.FlightState, log *logging.Logger, m *metrics.Metrics) *Conditioner {
	if log == nil {
		log = logging.Discard()
	}
	return &Conditioner{
		cfg:          cfg,
		dev:          dev,
		auth:         auth,
		clk:          clk,
		in:           &fs.Input,
		debug:        &fs.Debug,
		mode:         cfg.Debug(),
		loopRate:     float64(cfg.LoopRate),
		loopInterval: cfg.LoopInterval(),
		log:          log.With("input"),
		metrics:      m,
	}
}

// Active reports whether a device is attached.
func (c *Conditioner) Active() bool { return c.dev != nil }

// Begin seeds every channel with a safe neutral value and derives the
// initial interpolation interval.
func (c *Conditioner) Begin() {
	in := c.in
	in.ChannelCount = state.MaxChannels
	if c.dev != nil {
		in.ChannelCount = mathutil.Clamp(c.dev.ChannelCount(), 0, state.MaxChannels)
	}

	t := &in.Timing
	t.FrameDelta = frameTimeDefault
	t.FrameRate = 1000000 / t.FrameDelta
	t.FrameCount = 0
	t.AutoFactor = 1 / (2 + float64(c.cfg.Input.FilterAutoFactor)*0.1)
	t.AutoFreq = 0
	switch c.cfg.Input.InterpolationMode {
	case config.InterpolationAuto:
		t.InterpolationDelta = float64(mathutil.Clamp(t.FrameDelta, frameTimeMin, frameTimeMax)) * 0.000001
	case config.InterpolationManual:
		t.InterpolationDelta = float64(c.cfg.Input.InterpolationInterval) * 0.001
	default:
		t.InterpolationDelta = frameTimeDefault * 0.000001
	}
	t.InterpolationStep = c.loopInterval / t.InterpolationDelta
	t.Step = 0

	now := c.clk.Micros()
	t.FrameTime = now
	c.lastGood = now
	c.stage = 0

	preType := filter.None
	if c.dev != nil && c.dev.NeedAverage() {
		preType = filter.FIR2
	}
	for ch := range c.pre {
		conf := filter.Config{Type: filter.None}
		if state.IsAxis(ch) {
			conf = filter.Config{Type: preType, Freq: 1}
		}
		c.pre[ch].Configure(conf, c.loopRate)
	}
	for i := range c.smooth {
		c.smooth[i].Configure(c.cfg.Input.Filter.Filter(), c.loopRate)
	}

	for ch := 0; ch < state.MaxChannels; ch++ {
		v := int16(state.PwmMid)
		if ch == int(state.Thrust) {
			v = state.PwmMin
		}
		in.Raw[ch] = v
		in.Buffer[ch] = v
		in.BufferPrevious[ch] = v
		c.setInput(ch, float64(v), true, true)
	}
	in.ChannelsValid = false
	in.RxLoss = false
	in.RxFailsafe = false
	in.Failsafe = state.FailsafeIdle
	c.metrics.SetFailsafePhase(int(in.Failsafe))

	if c.dev == nil {
		c.log.Warn("no receiver configured, input inert")
		return
	}
	c.log.Info("receiver ready", logging.WithFields(logging.Fields{
		"provider":      c.cfg.Receiver.Provider.String(),
		"channels":      in.ChannelCount,
		"average":       c.dev.NeedAverage(),
		"interpolation": c.cfg.Input.InterpolationMode.String(),
	}))
}

// Update polls the device once. Failsafe timing and interpolation advance
// on every call, with or without a new frame.
func (c *Conditioner) Update() {
	if c.dev == nil {
		return
	}
	status := c.readInputs()
	if c.failsafe(status) {
		return
	}
	c.filterInputs()
}

func (c *Conditioner) readInputs() rx.Status {
	c.fresh = false
	status := c.dev.Update()
	if status == rx.Idle {
		return status
	}
	c.metrics.DeviceStatus(status.String())

	in := c.in
	in.RxLoss = status == rx.Lost || status == rx.Failsafe
	in.RxFailsafe = status == rx.Failsafe
	if status == rx.Received {
		in.Timing.FrameCount++
	} else {
		// re-acquisition starts a new settle period
		in.Timing.FrameCount = 0
	}

	c.updateFrameRate()
	c.processInputs()

	if status == rx.Received && in.ChannelsValid {
		c.lastGood = c.clk.Micros()
	}

	if c.mode == state.DebugRxSignalLoss {
		c.debug.SetBool(0, !in.RxLoss)
		c.debug.SetBool(1, in.RxFailsafe)
		c.debug.SetBool(2, in.ChannelsValid)
		c.debug.Set(3, int64(in.Raw[state.Thrust]))
	}
	return status
}

func (c *Conditioner) processInputs() {
	in := c.in
	if in.Timing.FrameCount < settleFrames {
		in.ChannelsValid = false
		return
	}

	n := in.ChannelCount
	c.dev.Get(c.raw[:], n)

	valid := true
	for ch := 0; ch < n; ch++ {
		cc := &c.cfg.Input.Channels[ch]

		src := 0
		if cc.Map >= 0 && cc.Map < len(c.raw) {
			src = int(c.raw[cc.Map])
		}
		in.Raw[ch] = int16(mathutil.Clamp(src, -32768, 32767))

		// trim, then stretch the channel's endpoints onto the canonical range
		v := src - (int(cc.Mid) - state.PwmMid)
		v = mathutil.MapInt(v, int(cc.Min), int(cc.Max), state.PwmMin, state.PwmMax)

		v = mathutil.Round[int](c.pre[ch].Update(float64(v)))

		if state.IsStick(ch) {
			v = mathutil.Deadband(v-state.PwmMid, int(cc.Deadband)) + state.PwmMid
		}

		if v < int(c.cfg.Input.MinRc) || v > int(c.cfg.Input.MaxRc) {
			v = int(c.failsafeValue(ch))
			if state.IsAxis(ch) {
				valid = false
			}
		}

		in.BufferPrevious[ch] = in.Buffer[ch]
		in.Buffer[ch] = int16(v)
	}
	in.ChannelsValid = valid
	c.fresh = true
	if !valid {
		c.metrics.InvalidFrame()
	}
}

// failsafeValue is the substitute for an out-of-range or lost channel.
func (c *Conditioner) failsafeValue(ch int) int16 {
	cc := &c.cfg.Input.Channels[ch]
	switch cc.FailsafeMode {
	case config.FailsafeAuto:
		if ch == int(state.Thrust) {
			return state.PwmMin
		}
		return state.PwmMid
	case config.FailsafeSet:
		return cc.FailsafeValue
	}
	return c.in.Buffer[ch]
}

func (c *Conditioner) interpolating() bool {
	return c.cfg.Input.InterpolationMode != config.InterpolationOff &&
		c.cfg.Input.FilterType == config.InputInterpolation
}

func (c *Conditioner) filterInputs() {
	in := c.in
	t := &in.Timing
	interpolation := c.interpolating()

	if interpolation {
		if c.fresh {
			t.Step = 0
		}
		if t.Step < 1 {
			t.Step = mathutil.Clamp(t.Step+t.InterpolationStep, 0, 1)
		}
	}

	for ch := 0; ch < in.ChannelCount; ch++ {
		v := float64(in.Buffer[ch])
		if state.IsAxis(ch) && interpolation {
			v = mathutil.Lerp(float64(in.BufferPrevious[ch]), v, t.Step)
		}
		c.setInput(ch, v, c.fresh, false)
	}
}

// setInput publishes a channel value. Axis channels pass through the input
// filter unless noDelta is set; other channels only change on a new frame.
func (c *Conditioner) setInput(ch int, v float64, newFrame, noDelta bool) {
	in := c.in
	if state.IsAxis(ch) {
		if !noDelta {
			v = c.smooth[ch].Update(v)
		}
	} else if !newFrame {
		return
	}
	in.Us[ch] = v
	in.Input[ch] = normalize(ch, v)
}

// normalize maps canonical microseconds to [0,1] for the throttle and
// [-1,1] for every other channel.
func normalize(ch int, us float64) float64 {
	if ch == int(state.Thrust) {
		return mathutil.Clamp(mathutil.Map(us, state.PwmMin, state.PwmMax, 0.0, 1.0), 0, 1)
	}
	return mathutil.Clamp(mathutil.Map(us, state.PwmMin, state.PwmMax, -1.0, 1.0), -1, 1)
}

func (c *Conditioner) updateFrameRate() {
	t := &c.in.Timing
	now := c.clk.Micros()
	delta := now - t.FrameTime
	t.FrameTime = now

	t.FrameDelta += (delta - t.FrameDelta) >> 3
	if t.FrameDelta < 1 {
		t.FrameDelta = 1
	}
	t.FrameRate = 1000000 / t.FrameDelta
	c.metrics.SetFrameRate(float64(t.FrameRate))

	if c.cfg.Input.InterpolationMode == config.InterpolationAuto && c.cfg.Input.FilterType == config.InputInterpolation {
		t.InterpolationDelta = float64(mathutil.Clamp(t.FrameDelta, frameTimeMin, frameTimeMax)) * 0.000001
		t.InterpolationStep = c.loopInterval / t.InterpolationDelta
	}

	if c.mode == state.DebugRcSmoothingRate {
		c.debug.Set(0, t.FrameRate)
	}

	freq := max(float64(t.FrameRate)*t.AutoFactor, minAutoCutoff)
	if freq > t.AutoFreq*1.1 || freq < t.AutoFreq*0.9 {
		t.AutoFreq += 0.25 * (freq - t.AutoFreq)
		if c.mode == state.DebugRcSmoothingRate {
			c.debug.Set(1, mathutil.Round[int64](freq))
			c.debug.Set(2, mathutil.Round[int64](t.AutoFreq))
		}
		if c.cfg.Input.Filter.Freq == 0 {
			conf := filter.Config{Type: filter.Type(c.cfg.Input.Filter.Type), Freq: t.AutoFreq}
			for i := range c.smooth {
				c.smooth[i].Reconfigure(conf, c.loopRate)
			}
		}
		c.metrics.SetAutoCutoff(t.AutoFreq)
		c.log.Debug("input cutoff", logging.WithFields(logging.Fields{
			"frame_rate": t.FrameRate,
			"target":     freq,
			"applied":    t.AutoFreq,
		}))
	}
}
