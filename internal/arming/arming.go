// Package arming decides whether the craft is armed and which flight modes
// are active.
package arming

import (
	"github.com/BryanSouza91/flightcore/internal/config"
	"github.com/BryanSouza91/flightcore/internal/logging"
	"github.com/BryanSouza91/flightcore/internal/metrics"
	"github.com/BryanSouza91/flightcore/internal/state"
)

// DisarmReason says why a disarm was requested.
type DisarmReason int

const (
	DisarmNone DisarmReason = iota
	DisarmSwitch
	DisarmFailsafe
)

func (r DisarmReason) String() string {
	switch r {
	case DisarmNone:
		return "none"
	case DisarmSwitch:
		return "switch"
	case DisarmFailsafe:
		return "failsafe"
	}
	return "unknown"
}

// Authority is queried by the input and control stages.
type Authority interface {
	IsArmed() bool
	IsAirmodeActive() bool
	IsThrottleLow() bool
	IsModeActive(m config.Mode) bool
	Disarm(reason DisarmReason)
}

// Model activates modes from AUX channel ranges. The arm switch arms only
// while the failsafe phase is idle and the throttle is low; after any
// disarm the switch must be released before it arms again.
type Model struct {
	ranges   []config.ModeRange
	minCheck float64
	in       *state.InputSnapshot

	active     [config.ModeCount]bool
	armed      bool
	needReset  bool
	lastReason DisarmReason

	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewModel reads channel values from in, which the input conditioner owns.
func NewModel(cfg *config.Config, in *state.InputSnapshot, log *logging.Logger, m *metrics.Metrics) *Model {
	if log == nil {
		log = logging.Discard()
	}
	return &Model{
		ranges:   cfg.Modes,
		minCheck: float64(cfg.Input.MinCheck),
		in:       in,
		// a switch left on at power up must be cycled first
		needReset: true,
		log:       log.With("arming"),
		metrics:   m,
	}
}

// Update re-evaluates the mode ranges and the arm switch. Call it once per
// tick after the input conditioner.
func (a *Model) Update() {
	var next [config.ModeCount]bool
	for _, r := range a.ranges {
		if r.Mode < 0 || r.Mode >= config.ModeCount {
			continue
		}
		ch := int(state.Thrust) + 1 + r.Channel
		if ch >= state.MaxChannels {
			continue
		}
		us := a.in.Us[ch]
		if us >= float64(r.Min) && us <= float64(r.Max) {
			next[r.Mode] = true
		}
	}
	a.active = next

	armSwitch := a.active[config.ModeArm]
	switch {
	case !armSwitch:
		if a.armed {
			a.Disarm(DisarmSwitch)
		}
		a.needReset = false
	case !a.armed && !a.needReset:
		if a.in.Failsafe == state.FailsafeIdle && a.IsThrottleLow() {
			a.armed = true
			a.log.Info("armed")
		}
	}
}

func (a *Model) IsArmed() bool { return a.armed }

func (a *Model) IsAirmodeActive() bool { return a.active[config.ModeAirmode] }

// IsThrottleLow compares the conditioned throttle against min_check.
func (a *Model) IsThrottleLow() bool {
	return a.in.Us[state.Thrust] < a.minCheck
}

func (a *Model) IsModeActive(m config.Mode) bool {
	if m < 0 || m >= config.ModeCount {
		return false
	}
	return a.active[m]
}

// Disarm drops the armed state. Disarming while disarmed is a no-op.
func (a *Model) Disarm(reason DisarmReason) {
	if !a.armed {
		return
	}
	a.armed = false
	a.needReset = true
	a.lastReason = reason
	a.metrics.Disarm(reason.String())
	a.log.Warn("disarmed", logging.WithField("reason", reason.String()))
}

// LastDisarmReason returns the reason of the most recent disarm.
func (a *Model) LastDisarmReason() DisarmReason { return a.lastReason }

var _ Authority = (*Model)(nil)
