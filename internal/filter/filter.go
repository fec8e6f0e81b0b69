// Package filter implements the low-pass filters used on receiver channels,
// PID derivative terms and the gimbal speed estimate.
package filter

import (
	"math"

	"github.com/BryanSouza91/flightcore/internal/mathutil"
)

// Type selects the filter response.
type Type int

const (
	None Type = iota
	PT1
	PT2
	Biquad
	FIR2
)

var typeNames = [...]string{"none", "pt1", "pt2", "biquad", "fir2"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// ParseType returns the Type for a config name.
func ParseType(s string) (Type, bool) {
	for i, n := range typeNames {
		if n == s {
			return Type(i), true
		}
	}
	return None, false
}

// Config is a filter type and cutoff frequency in Hz. A zero frequency on a
// low-pass type means "not configured" and the filter passes samples through.
type Config struct {
	Type Type
	Freq float64
}

// butterworth Q for the biquad low-pass
const biquadQ = 0.7071067811865476

// cutoff correction so two cascaded PT1 stages have -3dB at the requested freq
const pt2Correction = 1.553773974

// Filter is a single-channel IIR/FIR low-pass. The zero value passes samples
// through unchanged.
type Filter struct {
	conf Config
	rate float64

	// pt1/pt2
	k float64
	// biquad
	b0, b1, b2, a1, a2 float64

	x1, x2 float64
	y1, y2 float64
	primed bool
}

// New returns a configured filter.
func New(conf Config, rate float64) *Filter {
	f := &Filter{}
	f.Configure(conf, rate)
	return f
}

// Configure sets the coefficients and clears the state.
func (f *Filter) Configure(conf Config, rate float64) {
	f.Reconfigure(conf, rate)
	f.Reset()
}

// Reconfigure changes the coefficients while keeping the delay line, so a
// cutoff change does not produce a step in the output.
func (f *Filter) Reconfigure(conf Config, rate float64) {
	f.conf = conf
	f.rate = rate
	if rate <= 0 {
		f.conf.Type = None
		return
	}
	switch conf.Type {
	case PT1:
		f.k = pt1Gain(conf.Freq, rate)
	case PT2:
		f.k = pt1Gain(conf.Freq*pt2Correction, rate)
	case Biquad:
		f.configureBiquad(conf.Freq, rate)
	}
}

// Config returns the active configuration.
func (f *Filter) Config() Config {
	return f.conf
}

func (f *Filter) active() bool {
	switch f.conf.Type {
	case PT1, PT2, Biquad:
		return f.conf.Freq > 0
	case FIR2:
		return true
	}
	return false
}

func pt1Gain(freq, rate float64) float64 {
	if freq <= 0 {
		return 1
	}
	rc := 1 / (2 * math.Pi * freq)
	dt := 1 / rate
	return dt / (rc + dt)
}

func (f *Filter) configureBiquad(freq, rate float64) {
	if freq <= 0 {
		return
	}
	// keep below nyquist
	freq = mathutil.Clamp(freq, 0.1, rate*0.48)
	omega := 2 * math.Pi * freq / rate
	sinOmega := math.Sin(omega)
	cosOmega := math.Cos(omega)
	alpha := sinOmega / (2 * biquadQ)

	a0 := 1 + alpha
	f.b0 = (1 - cosOmega) / 2 / a0
	f.b1 = (1 - cosOmega) / a0
	f.b2 = (1 - cosOmega) / 2 / a0
	f.a1 = -2 * cosOmega / a0
	f.a2 = (1 - alpha) / a0
}

// Update processes a single sample. The first sample after a reset primes the
// delay line so the output starts at the input instead of ramping from zero.
func (f *Filter) Update(v float64) float64 {
	if !f.active() {
		return v
	}
	if !f.primed {
		f.x1, f.x2 = v, v
		f.y1, f.y2 = v, v
		f.primed = true
		return v
	}
	switch f.conf.Type {
	case PT1:
		f.y1 += f.k * (v - f.y1)
		return f.y1
	case PT2:
		f.x1 += f.k * (v - f.x1)
		f.y1 += f.k * (f.x1 - f.y1)
		return f.y1
	case Biquad:
		out := f.b0*v + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2 = f.x1
		f.x1 = v
		f.y2 = f.y1
		f.y1 = out
		return out
	case FIR2:
		out := (v + f.x1) * 0.5
		f.x1 = v
		return out
	}
	return v
}

// Reset clears the filter state.
func (f *Filter) Reset() {
	f.x1, f.x2 = 0, 0
	f.y1, f.y2 = 0, 0
	f.primed = false
}
