package orbit

import (
	"fmt"
	"math"

	"github.com/gravitysim/gravity/internal/conic"
)

// Determine computes the elements of the conic passing through s at time t.
// The returned anomaly is the one Propagate would solve for at t and is a
// suitable warm-start seed.
func Determine(t float64, s State) (Elements, float64, error) {
	for _, v := range []float64{t, s.X, s.Y, s.VX, s.VY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Elements{}, math.NaN(), fmt.Errorf("%w: %+v at t=%g", ErrInvalidState, s, t)
		}
	}

	r := s.Radius()
	if r == 0 {
		return Elements{}, math.NaN(), ErrZeroRadius
	}
	l := s.AngularMomentum()
	if l == 0 {
		return Elements{}, math.NaN(), ErrRadialOrbit
	}

	theta := math.Atan2(s.Y, s.X)
	vr := (s.X*s.VX + s.Y*s.VY) / r

	// eccentricity vector expressed in the radial frame
	ex := l*l/r - 1
	ey := l * vr
	e := math.Hypot(ex, ey)

	if e == 0 {
		el, err := NewElements(l, 0, theta, t)
		return el, 0, err
	}

	nu := math.Atan2(ey, ex)
	el, err := NewElements(l, e, theta-nu, 0)
	if err != nil {
		return Elements{}, math.NaN(), err
	}

	sinceP, anomaly := timeSincePeriapsis(el, r, nu)
	el, err = NewElements(l, e, theta-nu, t-sinceP)
	if err != nil {
		return Elements{}, math.NaN(), err
	}
	return el, anomaly, nil
}

// timeSincePeriapsis returns t − T for a body at radius r and true anomaly nu,
// together with the matching anomaly.
func timeSincePeriapsis(el Elements, r, nu float64) (float64, float64) {
	e := el.Eccentricity
	dir := el.Direction()
	sinNu, cosNu := math.Sincos(nu)
	x0, y0 := r*cosNu, r*sinNu

	switch el.regime {
	case Ellipse:
		E := math.Atan2(y0/el.b, x0/el.a+e)
		return dir * el.n * (E - e*math.Sin(E)), E
	case Hyperbola:
		E := conic.Asinh(y0 / el.b)
		return dir * el.n * (e*conic.Sinh(E) - E), E
	default:
		l := el.AngularMomentum
		D := math.Tan(nu / 2)
		return l * l * l / 2 * (D + D*D*D/3), D
	}
}

// TrueAnomaly converts a propagation anomaly on el into the true anomaly.
func TrueAnomaly(el Elements, anomaly float64) float64 {
	e := el.Eccentricity
	switch el.regime {
	case Ellipse:
		return 2 * math.Atan2(math.Sqrt(1+e)*math.Sin(anomaly/2), math.Sqrt(1-e)*math.Cos(anomaly/2))
	case Hyperbola:
		return 2 * math.Atan(math.Sqrt((e+1)/(e-1))*math.Tanh(anomaly/2))
	default:
		return 2 * math.Atan(anomaly)
	}
}

// HyperbolicAnomaly converts a true anomaly on a hyperbola into E. nu must lie
// strictly inside the asymptote angles.
func HyperbolicAnomaly(el Elements, nu float64) (float64, error) {
	if el.regime != Hyperbola {
		return 0, fmt.Errorf("hyperbolic anomaly on %v orbit", el.regime)
	}
	e := el.Eccentricity
	x := math.Sqrt((e-1)/(e+1)) * math.Tan(nu/2)
	h, err := conic.Atanh(x)
	if err != nil {
		return 0, fmt.Errorf("true anomaly %g beyond asymptote: %w", nu, err)
	}
	return 2 * h, nil
}

// AsymptoteAngle returns the true anomaly of a hyperbola's asymptote.
func AsymptoteAngle(el Elements) float64 {
	switch el.regime {
	case Hyperbola:
		return math.Acos(-1 / el.Eccentricity)
	case Parabola:
		return math.Pi
	default:
		return math.Inf(1)
	}
}
