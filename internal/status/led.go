// Package status shows the flight status on an indicator LED.
//
// Waiting on the ground alternates slowly, flight is solid, failsafe is a
// rapid flash.
package status

import (
	"time"

	"github.com/BryanSouza91/flightcore/internal/clock"
	"github.com/BryanSouza91/flightcore/internal/state"
)

// Pattern is an LED pattern.
type Pattern int

const (
	Off Pattern = iota
	On
	SlowFlash
	FastFlash
	Flash
	Alternate
)

var patternNames = [...]string{"off", "on", "slow_flash", "fast_flash", "flash", "alternate"}

func (p Pattern) String() string {
	if p < 0 || int(p) >= len(patternNames) {
		return "unknown"
	}
	return patternNames[p]
}

// halfPeriod is the on (and off) duration of each flashing pattern.
var halfPeriod = [...]time.Duration{
	SlowFlash: 250 * time.Millisecond,
	FastFlash: 50 * time.Millisecond,
	Flash:     150 * time.Millisecond,
	Alternate: 500 * time.Millisecond,
}

// Pin is an output pin, as provided by machine.Pin.
type Pin interface {
	High()
	Low()
}

// LED drives one pin with a pattern.
type LED struct {
	pin        Pin
	clk        clock.Clock
	pattern    Pattern
	lastToggle int64
	isOn       bool
}

func NewLED(pin Pin, clk clock.Clock) *LED {
	l := &LED{pin: pin, clk: clk, lastToggle: clk.Micros()}
	pin.Low()
	return l
}

// SetPattern switches the pattern. Flashing restarts from the current state.
func (l *LED) SetPattern(p Pattern) {
	if p == l.pattern {
		return
	}
	l.pattern = p
	l.lastToggle = l.clk.Micros()
}

func (l *LED) Pattern() Pattern { return l.pattern }

func (l *LED) IsOn() bool { return l.isOn }

// Update advances the pattern. Call it from the main loop.
func (l *LED) Update() {
	switch l.pattern {
	case Off:
		l.set(false)
	case On:
		l.set(true)
	default:
		if int(l.pattern) >= len(halfPeriod) {
			l.set(false)
			return
		}
		now := l.clk.Micros()
		if now-l.lastToggle >= halfPeriod[l.pattern].Microseconds() {
			l.set(!l.isOn)
			l.lastToggle = now
		}
	}
}

func (l *LED) set(on bool) {
	if on == l.isOn {
		return
	}
	if on {
		l.pin.High()
	} else {
		l.pin.Low()
	}
	l.isOn = on
}

// Select picks the pattern for the current input state. active is false
// when no receiver is configured.
func Select(in *state.InputSnapshot, armed, active bool) Pattern {
	switch {
	case !active:
		return SlowFlash
	case in.Failsafe != state.FailsafeIdle:
		return FastFlash
	case in.RxLoss:
		return Flash
	case armed:
		return On
	}
	return Alternate
}
