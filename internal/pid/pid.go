// Package pid implements the PID stage used by both cascades of the control
// loop.
package pid

import (
	"github.com/BryanSouza91/flightcore/internal/filter"
	"github.com/BryanSouza91/flightcore/internal/mathutil"
)

// Gains holds the controller coefficients and limits.
type Gains struct {
	Kp, Ki, Kd, Kf float64
	// ILimit bounds the integrator; zero leaves it unbounded.
	ILimit float64
	// OLimit bounds the output; zero leaves it unbounded.
	OLimit float64
}

// PID holds the state for one axis of one cascade stage.
type PID struct {
	Gains

	// Rate is the update frequency in Hz.
	Rate float64

	// Per-term scales, 1 by default. FScale scales the setpoint-derivative
	// term; the angle loop forces it to zero on the inner stage.
	PScale, IScale, DScale, FScale float64

	// ITerm is the integral accumulator. It is always finite: a NaN or Inf
	// result resets it to zero.
	ITerm float64
	PTerm float64
	DTerm float64
	FTerm float64

	DtermFilter filter.Filter
	FtermFilter filter.Filter

	prevMeasurement float64
	prevSetpoint    float64
	primed          bool
}

// New creates and initializes a new PID.
func New(g Gains, rate float64) *PID {
	p := &PID{}
	p.Begin(g, rate)
	return p
}

// Begin (re)initializes gains and scales and clears the state.
func (p *PID) Begin(g Gains, rate float64) {
	p.Gains = g
	p.Rate = rate
	p.PScale, p.IScale, p.DScale, p.FScale = 1, 1, 1, 1
	p.Reset()
}

// Reset clears the integrator and the derivative history.
func (p *PID) Reset() {
	p.ITerm = 0
	p.PTerm, p.DTerm, p.FTerm = 0, 0, 0
	p.prevMeasurement, p.prevSetpoint = 0, 0
	p.primed = false
	p.DtermFilter.Reset()
	p.FtermFilter.Reset()
}

// Update calculates the new control output from the setpoint and the
// measured value.
func (p *PID) Update(setpoint, measurement float64) float64 {
	if !p.primed {
		p.prevMeasurement = measurement
		p.prevSetpoint = setpoint
		p.primed = true
	}
	err := setpoint - measurement

	// Proportional term
	p.PTerm = p.Kp * err * p.PScale

	// Integral term
	if p.Ki > 0 && p.Rate > 0 {
		p.ITerm += p.Ki * p.IScale * err / p.Rate
		if p.ILimit > 0 {
			p.ITerm = mathutil.Clamp(p.ITerm, -p.ILimit, p.ILimit)
		}
		if !mathutil.Finite(p.ITerm) {
			p.ITerm = 0
		}
	}

	// Derivative on measurement, so setpoint steps do not kick
	p.DTerm = 0
	if p.Kd > 0 && p.Rate > 0 {
		d := -(measurement - p.prevMeasurement) * p.Rate
		p.DTerm = p.Kd * p.DScale * p.DtermFilter.Update(d)
	}

	// Setpoint derivative (feed forward)
	p.FTerm = 0
	if p.Kf > 0 && p.Rate > 0 {
		f := (setpoint - p.prevSetpoint) * p.Rate
		p.FTerm = p.Kf * p.FScale * p.FtermFilter.Update(f)
	}

	p.prevMeasurement = measurement
	p.prevSetpoint = setpoint

	out := p.PTerm + p.ITerm + p.DTerm + p.FTerm
	if p.OLimit > 0 {
		out = mathutil.Clamp(out, -p.OLimit, p.OLimit)
	}
	if !mathutil.Finite(out) {
		return 0
	}
	return out
}
