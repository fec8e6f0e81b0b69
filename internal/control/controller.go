// Package control runs the cascaded angle/rate PID loops.
package control

import (
	"github.com/BryanSouza91/flightcore/internal/arming"
	"github.com/BryanSouza91/flightcore/internal/config"
	"github.com/BryanSouza91/flightcore/internal/event"
	"github.com/BryanSouza91/flightcore/internal/filter"
	"github.com/BryanSouza91/flightcore/internal/logging"
	"github.com/BryanSouza91/flightcore/internal/mathutil"
	"github.com/BryanSouza91/flightcore/internal/metrics"
	"github.com/BryanSouza91/flightcore/internal/pid"
	"github.com/BryanSouza91/flightcore/internal/rates"
	"github.com/BryanSouza91/flightcore/internal/state"
)

const (
	gimbalSpeedCutoff = 10.0 // Hz
	gimbalSpeedScale  = 2.0
	gimbalGyroScale   = 0.1

	// rateBalance would drive the gimbal pitch from the speed estimate
	// instead of the stick. It is never enabled.
	rateBalance = false
)

// Controller reads the input snapshot and the measurement, and writes the
// desired quantities and the actuator command.
type Controller struct {
	cfg   *config.Config
	auth  arming.Authority
	curve rates.Curve
	sink  event.Sink

	fs    *state.FlightState
	mode  state.DebugMode
	rate  float64
	latch Latch

	inner [3]pid.PID
	outer [3]pid.PID
	speed filter.Filter

	// derivative cutoff last taken from the input stage
	autoFreq float64
	mixer    config.Mixer

	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates a controller. A nil curve builds the configured rate profile;
// a nil auth behaves as permanently disarmed.
func New(cfg *config.Config, auth arming.Authority, curve rates.Curve, sink event.Sink, fs *state.FlightState, log *logging.Logger, m *metrics.Metrics) *Controller {
	if log == nil {
		log = logging.Discard()
	}
	if curve == nil {
		curve = Curve(cfg.Rates)
	}
	return &Controller{
		cfg:     cfg,
		auth:    auth,
		curve:   curve,
		sink:    sink,
		fs:      fs,
		mode:    cfg.Debug(),
		rate:    float64(cfg.LoopRate),
		mixer:   cfg.Control.Mixer,
		log:     log.With("control"),
		metrics: m,
	}
}

// Curve builds the rate curve for a rate profile.
func Curve(r config.RatesConfig) *rates.Betaflight {
	axis := func(a config.RateAxis) rates.Axis {
		return rates.Axis{RcRate: a.RcRate, SuperRate: a.SuperRate, Expo: a.Expo, Limit: a.Limit}
	}
	return &rates.Betaflight{Axes: [3]rates.Axis{axis(r.Roll), axis(r.Pitch), axis(r.Yaw)}}
}

func gains(p config.AxisPID, oLimit float64) pid.Gains {
	return pid.Gains{Kp: p.P, Ki: p.I, Kd: p.D, Kf: p.F, ILimit: p.ILimit, OLimit: oLimit}
}

// Begin initializes the PID stages and filters.
func (c *Controller) Begin() {
	fterm := c.cfg.Input.FilterDerivative.Filter()
	for i := range c.inner {
		axis := state.Axis(i)
		p := c.cfg.PID.Inner.Axis(axis)
		c.inner[i].Begin(gains(p, c.cfg.PID.OutputLimit), c.rate)
		c.inner[i].DtermFilter.Configure(p.DFilter.Filter(), c.rate)
		c.inner[i].FtermFilter.Configure(fterm, c.rate)
	}
	rateLimit := mathutil.Radians(c.cfg.Control.AngleRateLimit)
	for i := range c.outer {
		axis := state.Axis(i)
		if axis == state.Yaw {
			// yaw has no angle stage
			c.outer[i].Begin(pid.Gains{}, c.rate)
			continue
		}
		c.outer[i].Begin(gains(c.cfg.PID.Outer.Axis(axis), rateLimit), c.rate)
	}
	c.speed.Configure(filter.Config{Type: filter.Biquad, Freq: gimbalSpeedCutoff}, c.rate)
	c.autoFreq = 0
	c.latch = Latch{}
	c.mixer = c.cfg.Control.Mixer
	c.log.Info("control ready", logging.WithFields(logging.Fields{
		"mixer":     c.mixer.String(),
		"loop_rate": c.cfg.LoopRate,
	}))
}

// OnEvent handles a sensor event and reports whether it was consumed. A
// fusion result runs at most one control cycle per sensor sample.
func (c *Controller) OnEvent(e event.Event) bool {
	switch e.Type {
	case event.GyroRead:
		c.latch.Mark()
		return true
	case event.ImuUpdated:
		if c.latch.Take() {
			c.Update()
			if c.sink != nil {
				c.sink.Send(event.Event{Type: event.PidUpdated})
			}
		}
		return true
	}
	return false
}

// Update runs one control cycle.
func (c *Controller) Update() {
	c.syncDerivativeCutoff()
	c.resetIterm()

	mixer := c.cfg.Control.Mixer
	if mixer != c.mixer {
		c.log.Debug("topology changed", logging.WithFields(logging.Fields{"from": c.mixer.String(), "to": mixer.String()}))
		c.mixer = mixer
	}

	if mixer == config.MixerGimbal {
		c.outerLoopGimbal()
		c.innerLoopGimbal()
	} else {
		c.outerLoop()
		c.innerLoop()
	}
	c.metrics.ControlCycle(mixer.String())
}

// resetIterm zeroes every integrator while disarmed, or at low throttle
// outside airmode when configured to.
func (c *Controller) resetIterm() bool {
	if !c.isArmed() || (!c.isAirmode() && c.cfg.Control.LowThrottleZeroIterm && c.isThrottleLow()) {
		c.zeroIterm()
		return true
	}
	return false
}

func (c *Controller) zeroIterm() {
	for i := range c.inner {
		c.inner[i].ITerm = 0
		c.outer[i].ITerm = 0
	}
	c.metrics.ItermReset()
}

// TpaFactor attenuates the rate loop above the throttle breakpoint, from 1
// down to 1 - scale% at full throttle.
func (c *Controller) TpaFactor() float64 {
	scale := c.cfg.Control.TpaScale
	if scale == 0 {
		return 1
	}
	bp := float64(c.cfg.Control.TpaBreakpoint)
	t := mathutil.Clamp(c.fs.Input.Us[state.Thrust], bp, state.PwmMax)
	return mathutil.Map(t, bp, state.PwmMax, 1, 1-float64(scale)*0.01)
}

func (c *Controller) outerLoop() {
	in := &c.fs.Input
	meas := &c.fs.Measurement
	ax := &c.fs.Axis

	if c.isModeActive(config.ModeAngle) {
		limit := mathutil.Radians(c.cfg.Control.AngleLimit)
		ax.DesiredAngle[state.Roll] = in.Input[state.Roll] * limit
		ax.DesiredAngle[state.Pitch] = in.Input[state.Pitch] * limit
		ax.DesiredAngle[state.Yaw] = meas.Angle[state.Yaw]
		ax.DesiredRate[state.Roll] = c.outer[state.Roll].Update(ax.DesiredAngle[state.Roll], meas.Angle[state.Roll])
		ax.DesiredRate[state.Pitch] = c.outer[state.Pitch].Update(ax.DesiredAngle[state.Pitch], meas.Angle[state.Pitch])
		// the angle stage already damps roll and pitch
		c.inner[state.Roll].FScale = 0
		c.inner[state.Pitch].FScale = 0
	} else {
		ax.DesiredRate[state.Roll] = c.setpointRate(state.Roll, in.Input[state.Roll])
		ax.DesiredRate[state.Pitch] = c.setpointRate(state.Pitch, in.Input[state.Pitch])
		c.inner[state.Roll].FScale = 1
		c.inner[state.Pitch].FScale = 1
	}
	ax.DesiredRate[state.Yaw] = c.setpointRate(state.Yaw, in.Input[state.Yaw])
	ax.DesiredRate[state.Thrust] = in.Input[state.Thrust]

	if c.mode == state.DebugAngleRate {
		for i := 0; i < 3; i++ {
			c.fs.Debug.Set(i, mathutil.Round[int64](mathutil.Degrees(ax.DesiredRate[i])))
		}
	}
}

func (c *Controller) innerLoop() {
	meas := &c.fs.Measurement
	ax := &c.fs.Axis
	out := &c.fs.Command.Output

	tpa := c.TpaFactor()
	for i := 0; i <= int(state.Yaw); i++ {
		out[i] = c.inner[i].Update(ax.DesiredRate[i], meas.Gyro[i]) * tpa
	}
	out[state.Thrust] = ax.DesiredRate[state.Thrust]
	c.metrics.SetTpaFactor(tpa)
}

func (c *Controller) outerLoopGimbal() {
	in := &c.fs.Input
	meas := &c.fs.Measurement
	ax := &c.fs.Axis

	speed := c.speed.Update(c.fs.Command.Output[state.Pitch]*gimbalSpeedScale + meas.Gyro[state.Pitch]*gimbalGyroScale)

	var angle float64
	if rateBalance {
		angle = c.outer[state.Pitch].Update(in.Input[state.Pitch], speed) * mathutil.Radians(c.cfg.Control.AngleRateLimit)
	} else {
		angle = in.Input[state.Pitch] * mathutil.Radians(c.cfg.Control.AngleLimit)
	}
	ax.DesiredAngle[state.Pitch] = angle
	ax.DesiredRate[state.Yaw] = in.Input[state.Yaw] * mathutil.Radians(c.cfg.Control.AngleRateLimit)

	if c.mode == state.DebugAngleRate {
		c.fs.Debug.Set(0, int64(speed*1000))
		c.fs.Debug.Set(1, mathutil.Round[int64](mathutil.Degrees(angle)*10))
	}
}

func (c *Controller) innerLoopGimbal() {
	meas := &c.fs.Measurement
	ax := &c.fs.Axis
	out := &c.fs.Command.Output

	tilt := max(mathutil.Abs(meas.Angle[state.Pitch]), mathutil.Abs(meas.Angle[state.Roll]))
	if tilt < mathutil.Radians(c.cfg.Control.AngleLimit) {
		out[state.Pitch] = c.inner[state.Pitch].Update(ax.DesiredAngle[state.Pitch], meas.Angle[state.Pitch])
		out[state.Yaw] = c.inner[state.Yaw].Update(ax.DesiredRate[state.Yaw], meas.Gyro[state.Yaw])
	} else {
		// too far over: let go instead of fighting it
		c.zeroIterm()
		out[state.Pitch] = 0
		out[state.Yaw] = 0
	}
	out[state.Roll] = 0
	out[state.Thrust] = 0

	if c.mode == state.DebugAngleRate {
		c.fs.Debug.Set(2, mathutil.Round[int64](mathutil.Degrees(meas.Angle[state.Pitch])*10))
		c.fs.Debug.Set(3, mathutil.Round[int64](out[state.Pitch]*1000))
	}
}

// setpointRate looks up the rate curve; yaw stick is inverted first.
func (c *Controller) setpointRate(axis state.Axis, stick float64) float64 {
	if axis == state.Yaw {
		stick = -stick
	}
	return c.curve.Setpoint(axis, stick)
}

// syncDerivativeCutoff follows the input stage's adaptive cutoff when the
// derivative filter cutoff is automatic.
func (c *Controller) syncDerivativeCutoff() {
	conf := c.cfg.Input.FilterDerivative
	freq := c.fs.Input.Timing.AutoFreq
	if conf.Freq != 0 || freq <= 0 || freq == c.autoFreq {
		return
	}
	c.autoFreq = freq
	fc := filter.Config{Type: filter.Type(conf.Type), Freq: freq}
	for i := range c.inner {
		c.inner[i].FtermFilter.Reconfigure(fc, c.rate)
	}
}

func (c *Controller) isArmed() bool {
	return c.auth != nil && c.auth.IsArmed()
}

func (c *Controller) isAirmode() bool {
	return c.auth != nil && c.auth.IsAirmodeActive()
}

func (c *Controller) isThrottleLow() bool {
	return c.auth == nil || c.auth.IsThrottleLow()
}

func (c *Controller) isModeActive(m config.Mode) bool {
	return c.auth != nil && c.auth.IsModeActive(m)
}

// Inner exposes the rate stage of an axis for inspection.
func (c *Controller) Inner(axis state.Axis) *pid.PID { return &c.inner[axis] }

// Outer exposes the angle stage of an axis for inspection.
func (c *Controller) Outer(axis state.Axis) *pid.PID { return &c.outer[axis] }
