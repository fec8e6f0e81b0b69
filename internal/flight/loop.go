package flight

import (
	"context"
	"time"

	"github.com/BryanSouza91/flightcore/internal/state"
)

// Sensor delivers the fused attitude estimate for the next tick.
type Sensor interface {
	Sample() state.Measurement
}

// Actuator receives the command after each tick.
type Actuator interface {
	Apply(cmd state.ActuatorCommand)
}

// Loop drives a Core at a fixed interval.
type Loop struct {
	Core     *Core
	Interval time.Duration
	Sensor   Sensor
	Actuator Actuator
}

// Run ticks until ctx is done and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Step()
		}
	}
}

// Step performs one tick without waiting.
func (l *Loop) Step() {
	var meas state.Measurement
	if l.Sensor != nil {
		meas = l.Sensor.Sample()
	}
	l.Core.Tick(meas)
	if l.Actuator != nil {
		l.Actuator.Apply(l.Core.State().Command)
	}
}
