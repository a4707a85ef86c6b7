// Package conic holds the small trigonometric and geometric helpers used by
// the orbit propagator.
package conic

import (
	"errors"
	"fmt"
	"math"
)

// ErrDomain is returned when an argument lies outside a function's domain.
var ErrDomain = errors.New("argument outside domain")

// Sinh returns the hyperbolic sine of x.
func Sinh(x float64) float64 {
	return 0.5 * (math.Exp(x) - math.Exp(-x))
}

// Cosh returns the hyperbolic cosine of x.
func Cosh(x float64) float64 {
	return 0.5 * (math.Exp(x) + math.Exp(-x))
}

// Asinh returns the inverse hyperbolic sine of x.
func Asinh(x float64) float64 {
	return math.Asinh(x)
}

// Atanh returns the inverse hyperbolic tangent of x for |x| < 1.
func Atanh(x float64) (float64, error) {
	if math.IsNaN(x) || x <= -1 || x >= 1 {
		return math.NaN(), fmt.Errorf("atanh(%g): %w", x, ErrDomain)
	}
	return 0.5 * math.Log((1+x)/(1-x)), nil
}

// Rotate rotates the vector (x, y) counter-clockwise by angle radians.
func Rotate(x, y, angle float64) (float64, float64) {
	s, c := math.Sincos(angle)
	return x*c - y*s, x*s + y*c
}

// NormalizeAngle maps an angle into [0, 2π).
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

// WrapAngle maps an angle into (-π, π].
func WrapAngle(angle float64) float64 {
	a := NormalizeAngle(angle)
	if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Sign returns -1 for negative x and 1 otherwise.
func Sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
