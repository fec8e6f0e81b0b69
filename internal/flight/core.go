// Package flight wires the receiver, the input conditioner, the arming
// authority and the control loop into one tick.
package flight

import (
	"github.com/BryanSouza91/flightcore/internal/arming"
	"github.com/BryanSouza91/flightcore/internal/clock"
	"github.com/BryanSouza91/flightcore/internal/config"
	"github.com/BryanSouza91/flightcore/internal/control"
	"github.com/BryanSouza91/flightcore/internal/event"
	"github.com/BryanSouza91/flightcore/internal/input"
	"github.com/BryanSouza91/flightcore/internal/logging"
	"github.com/BryanSouza91/flightcore/internal/metrics"
	"github.com/BryanSouza91/flightcore/internal/rates"
	"github.com/BryanSouza91/flightcore/internal/rx"
	"github.com/BryanSouza91/flightcore/internal/state"
)

// Options carries the collaborators of a Core. Zero values are usable: no
// device leaves the input inert, a nil Authority builds the reference arming
// model, a nil Clock uses the system clock.
type Options struct {
	Device    rx.Device
	Authority arming.Authority
	Curve     rates.Curve
	Sink      event.Sink
	Clock     clock.Clock
	Log       *logging.Logger
	Metrics   *metrics.Metrics
}

// updater is implemented by authorities that evaluate the switches each tick.
type updater interface {
	Update()
}

// Core owns the FlightState arena. Tick must not be called concurrently.
type Core struct {
	fs    *state.FlightState
	auth  arming.Authority
	input *input.Conditioner
	ctrl  *control.Controller
	log   *logging.Logger
}

func New(cfg *config.Config, opts Options) *Core {
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	fs := &state.FlightState{}
	auth := opts.Authority
	if auth == nil {
		auth = arming.NewModel(cfg, &fs.Input, opts.Log, opts.Metrics)
	}
	return &Core{
		fs:    fs,
		auth:  auth,
		input: input.New(cfg, opts.Device, auth, opts.Clock, fs, opts.Log, opts.Metrics),
		ctrl:  control.New(cfg, auth, opts.Curve, opts.Sink, fs, opts.Log, opts.Metrics),
		log:   opts.Log.With("flight"),
	}
}

// Begin seeds the input and initializes the control stages.
func (c *Core) Begin() {
	c.input.Begin()
	c.ctrl.Begin()
	c.log.Info("core started", logging.WithField("receiver", c.input.Active()))
}

// Tick runs one control period: the new measurement is stored, the input is
// conditioned, the switches are evaluated, and the sensor and fusion events
// drive exactly one control cycle.
func (c *Core) Tick(meas state.Measurement) {
	c.fs.Measurement = meas
	c.input.Update()
	if u, ok := c.auth.(updater); ok {
		u.Update()
	}
	c.ctrl.OnEvent(event.Event{Type: event.GyroRead})
	c.ctrl.OnEvent(event.Event{Type: event.ImuUpdated})
}

// State exposes the arena. Read it only between ticks.
func (c *Core) State() *state.FlightState { return c.fs }

func (c *Core) Authority() arming.Authority { return c.auth }

func (c *Core) Controller() *control.Controller { return c.ctrl }
