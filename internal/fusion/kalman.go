package fusion

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kalman is a two-state Kalman filter over [roll, pitch]. Gyro rates drive
// the prediction, accelerometer angles the correction. Both the state
// transition and the observation matrix are the identity.
type Kalman struct {
	X *mat.VecDense // (2x1) estimated state [roll, pitch]

	P *mat.Dense // (2x2) estimate error covariance
	Q *mat.Dense // (2x2) process noise covariance
	R *mat.Dense // (2x2) measurement noise covariance

	eye *mat.DiagDense
}

// NewKalman creates a filter with diagonal process noise q and measurement
// noise r.
func NewKalman(q, r float64) *Kalman {
	return &Kalman{
		X:   mat.NewVecDense(2, nil),
		P:   mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		Q:   mat.NewDense(2, 2, []float64{q, 0, 0, q}),
		R:   mat.NewDense(2, 2, []float64{r, 0, 0, r}),
		eye: mat.NewDiagDense(2, []float64{1, 1}),
	}
}

// Predict integrates the gyro rates over dt seconds.
func (k *Kalman) Predict(rollRate, pitchRate, dt float64) {
	k.X.AddScaledVec(k.X, dt, mat.NewVecDense(2, []float64{rollRate, pitchRate}))
	// P = F P F^T + Q with F = I
	k.P.Add(k.P, k.Q)
}

// Correct blends in the angles derived from the accelerometer.
func (k *Kalman) Correct(roll, pitch float64) error {
	z := mat.NewVecDense(2, []float64{roll, pitch})

	// innovation y = z - H x
	var y mat.VecDense
	y.SubVec(z, k.X)

	// S = H P H^T + R
	var s, sInv mat.Dense
	s.Add(k.P, k.R)
	if err := sInv.Inverse(&s); err != nil {
		return errors.Wrap(err, "innovation covariance")
	}

	// K = P H^T S^-1
	var gain mat.Dense
	gain.Mul(k.P, &sInv)

	var dx mat.VecDense
	dx.MulVec(&gain, &y)
	k.X.AddVec(k.X, &dx)

	// P = (I - K H) P
	var ikh, p mat.Dense
	ikh.Sub(k.eye, &gain)
	p.Mul(&ikh, k.P)
	k.P.Copy(&p)
	return nil
}

// Roll returns the roll estimate in radians.
func (k *Kalman) Roll() float64 { return k.X.AtVec(0) }

// Pitch returns the pitch estimate in radians.
func (k *Kalman) Pitch() float64 { return k.X.AtVec(1) }

// Reset zeroes the state and restores the initial covariance.
func (k *Kalman) Reset() {
	k.X.Zero()
	k.P = mat.NewDense(2, 2, []float64{1, 0, 0, 1})
}
