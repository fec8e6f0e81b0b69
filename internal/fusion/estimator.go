// Package fusion turns raw IMU samples into the attitude estimate consumed
// by the control loop. It is a simple stand-in for a full AHRS, used by the
// simulator.
package fusion

import (
	"math"

	"github.com/BryanSouza91/flightcore/internal/logging"
	"github.com/BryanSouza91/flightcore/internal/state"
)

const (
	defaultProcessNoise     = 0.0001
	defaultMeasurementNoise = 0.05
)

// Sample is one IMU reading: acceleration in g, angular rate in rad/s, both
// in the body frame ordered roll, pitch, yaw.
type Sample struct {
	Accel [3]float64
	Gyro  [3]float64
}

// RollAccel returns the roll angle implied by the gravity vector.
func (s Sample) RollAccel() float64 {
	return math.Atan2(s.Accel[1], s.Accel[2])
}

// PitchAccel returns the pitch angle implied by the gravity vector.
func (s Sample) PitchAccel() float64 {
	ax, ay, az := s.Accel[0], s.Accel[1], s.Accel[2]
	return math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
}

// Estimator runs the Kalman filter for roll and pitch and integrates yaw.
type Estimator struct {
	kf  *Kalman
	dt  float64
	yaw float64

	failed bool
	log    *logging.Logger
}

// NewEstimator creates an estimator updated at rate Hz.
func NewEstimator(rate float64, log *logging.Logger) *Estimator {
	if log == nil {
		log = logging.Discard()
	}
	return &Estimator{
		kf:  NewKalman(defaultProcessNoise, defaultMeasurementNoise),
		dt:  1 / rate,
		log: log.With("fusion"),
	}
}

// Update consumes one sample and returns the new estimate.
func (e *Estimator) Update(s Sample) state.Measurement {
	e.kf.Predict(s.Gyro[state.Roll], s.Gyro[state.Pitch], e.dt)
	if err := e.kf.Correct(s.RollAccel(), s.PitchAccel()); err != nil {
		// keep the prediction, report once
		if !e.failed {
			e.log.Warn("correction skipped", logging.WithField("error", err.Error()))
			e.failed = true
		}
	} else {
		e.failed = false
	}
	e.yaw = wrap(e.yaw + s.Gyro[state.Yaw]*e.dt)

	return state.Measurement{
		Angle: [3]float64{e.kf.Roll(), e.kf.Pitch(), e.yaw},
		Gyro:  s.Gyro,
	}
}

// Reset forgets the estimate.
func (e *Estimator) Reset() {
	e.kf.Reset()
	e.yaw = 0
	e.failed = false
}

// wrap keeps an angle within [-pi, pi).
func wrap(a float64) float64 {
	return math.Mod(a+3*math.Pi, 2*math.Pi) - math.Pi
}
