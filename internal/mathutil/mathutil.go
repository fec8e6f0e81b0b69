// Package mathutil holds the small numeric helpers shared by the input and
// control stages.
package mathutil

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Number is any integer or float type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Clamp constrains value within min and max bounds.
func Clamp[T constraints.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Map maps a value from one range to another.
func Map[T constraints.Float](value, fromMin, fromMax, toMin, toMax T) T {
	if fromMax == fromMin {
		return toMin
	}
	return (value-fromMin)/(fromMax-fromMin)*(toMax-toMin) + toMin
}

// MapInt is Map on integers; the product is taken before the division so
// precision is kept for pulse-width ranges.
func MapInt[T constraints.Signed](value, fromMin, fromMax, toMin, toMax T) T {
	if fromMax == fromMin {
		return toMin
	}
	return (value-fromMin)*(toMax-toMin)/(fromMax-fromMin) + toMin
}

// Deadband returns zero inside [-band, band] and shifts the value toward zero
// by band outside of it, so the output stays continuous.
func Deadband[T constraints.Signed | constraints.Float](value, band T) T {
	if value > band {
		return value - band
	}
	if value < -band {
		return value + band
	}
	return 0
}

// Lerp blends left and right; step 0 yields left, 1 yields right.
func Lerp(left, right, step float64) float64 {
	return left*(1-step) + right*step
}

// Round rounds half away from zero and converts to an integer type.
func Round[T constraints.Integer](v float64) T {
	return T(math.Round(v))
}

func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Abs returns |v|.
func Abs[T Number](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
