// Package rates maps normalized stick deflection to a target angular rate.
package rates

import (
	"github.com/BryanSouza91/flightcore/internal/mathutil"
	"github.com/BryanSouza91/flightcore/internal/state"
)

// Curve maps a stick value in [-1,1] to a target rate in rad/s. It must be
// stateless.
type Curve interface {
	Setpoint(axis state.Axis, stick float64) float64
}

// Axis is one axis of a Betaflight-style rate profile.
type Axis struct {
	RcRate    float64 // percent, 100 = 200 deg/s at full stick before super rate
	SuperRate float64 // percent
	Expo      float64 // percent
	Limit     float64 // deg/s
}

// Betaflight implements the rc_rate / super_rate / expo curve.
type Betaflight struct {
	Axes [3]Axis
}

const defaultRateLimit = 1998

func power3(x float64) float64 {
	return x * x * x
}

// Setpoint returns the rate for the stick value; thrust and unknown axes
// return zero.
func (b *Betaflight) Setpoint(axis state.Axis, stick float64) float64 {
	if axis < state.Roll || axis > state.Yaw {
		return 0
	}
	a := b.Axes[axis]
	stick = mathutil.Clamp(stick, -1, 1)
	absStick := mathutil.Abs(stick)

	if a.Expo > 0 {
		expo := a.Expo * 0.01
		stick = stick*power3(absStick)*expo + stick*(1-expo)
	}

	rcRate := a.RcRate * 0.01
	if rcRate > 2 {
		rcRate += 14.54 * (rcRate - 2)
	}
	rate := 200 * rcRate * stick

	if a.SuperRate > 0 {
		factor := 1 / mathutil.Clamp(1-absStick*a.SuperRate*0.01, 0.01, 1)
		rate *= factor
	}

	limit := a.Limit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	rate = mathutil.Clamp(rate, -limit, limit)
	return mathutil.Radians(rate)
}

var _ Curve = (*Betaflight)(nil)
