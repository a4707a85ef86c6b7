package orbit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/gravitysim/gravity/internal/conic"
)

// ParabolicTolerance is how close to 1 an eccentricity must be to be
// propagated as a parabola.
const ParabolicTolerance = 1e-12

var (
	// ErrRadialOrbit is returned for zero angular momentum (straight-line fall).
	ErrRadialOrbit = errors.New("zero angular momentum")
	// ErrZeroRadius is returned when the body sits on the gravitational center.
	ErrZeroRadius = errors.New("zero radius")
	// ErrInvalidEccentricity is returned for negative or non-finite eccentricity.
	ErrInvalidEccentricity = errors.New("invalid eccentricity")
	// ErrInvalidState is returned for non-finite Cartesian input.
	ErrInvalidState = errors.New("invalid state vector")
)

// Regime is the conic family an orbit belongs to.
type Regime int

const (
	Ellipse Regime = iota
	Parabola
	Hyperbola
)

func (r Regime) String() string {
	switch r {
	case Ellipse:
		return "ellipse"
	case Parabola:
		return "parabola"
	case Hyperbola:
		return "hyperbola"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// Classify returns the regime for eccentricity e.
func Classify(e float64) Regime {
	switch {
	case scalar.EqualWithinAbs(e, 1, ParabolicTolerance):
		return Parabola
	case e < 1:
		return Ellipse
	default:
		return Hyperbola
	}
}

// Elements is an immutable set of orbital elements with the regime-specific
// quantities derived once at construction.
type Elements struct {
	// AngularMomentum is r²·θ̇. Negative values orbit clockwise.
	AngularMomentum float64
	Eccentricity    float64
	// PeriapsisAngle is the polar angle of periapsis in radians.
	PeriapsisAngle float64
	// PeriapsisEpoch is a simulated time at which the body passes periapsis.
	PeriapsisEpoch float64

	regime Regime
	a, b   float64 // semi-axes; +Inf for a parabola
	n      float64 // a^1.5, the time scale of the anomaly equation
	cx, cy float64
}

// NewElements validates the inputs and derives the regime fields.
func NewElements(l, e, theta0, epoch float64) (Elements, error) {
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Elements{}, ErrRadialOrbit
	}
	if e < 0 || math.IsNaN(e) || math.IsInf(e, 0) {
		return Elements{}, fmt.Errorf("%w: %g", ErrInvalidEccentricity, e)
	}
	if math.IsNaN(theta0) || math.IsNaN(epoch) {
		return Elements{}, fmt.Errorf("%w: theta0=%g epoch=%g", ErrInvalidState, theta0, epoch)
	}

	el := Elements{
		AngularMomentum: l,
		Eccentricity:    e,
		PeriapsisAngle:  theta0,
		PeriapsisEpoch:  epoch,
		regime:          Classify(e),
	}

	l2 := l * l
	switch el.regime {
	case Ellipse:
		el.a = l2 / (1 - e*e)
		el.b = el.a * math.Sqrt(1-e*e)
		el.n = math.Pow(el.a, 1.5)
		el.cx, el.cy = conic.Rotate(-el.a*e, 0, theta0)
	case Hyperbola:
		el.a = l2 / (e*e - 1)
		el.b = el.a * math.Sqrt(e*e-1)
		el.n = math.Pow(el.a, 1.5)
		el.cx, el.cy = conic.Rotate(el.a*e, 0, theta0)
	case Parabola:
		el.a = math.Inf(1)
		el.b = math.Inf(1)
		el.n = math.Inf(1)
	}
	return el, nil
}

// Regime returns the conic family.
func (el Elements) Regime() Regime { return el.regime }

// SemiMajorAxis returns a. For a hyperbola it is the positive distance from
// center to vertex; for a parabola it is +Inf.
func (el Elements) SemiMajorAxis() float64 { return el.a }

// SemiMinorAxis returns b.
func (el Elements) SemiMinorAxis() float64 { return el.b }

// Center returns the conic's center in the plane. It is meaningless for a
// parabola and returns the origin there.
func (el Elements) Center() (float64, float64) { return el.cx, el.cy }

// Period returns the orbital period for an ellipse.
func (el Elements) Period() (float64, bool) {
	if el.regime != Ellipse {
		return 0, false
	}
	return 2 * math.Pi * el.n, true
}

// Periapsis returns the closest-approach distance.
func (el Elements) Periapsis() float64 {
	return el.AngularMomentum * el.AngularMomentum / (1 + el.Eccentricity)
}

// Apoapsis returns the farthest distance, or +Inf for open orbits.
func (el Elements) Apoapsis() float64 {
	if el.regime != Ellipse {
		return math.Inf(1)
	}
	return el.AngularMomentum * el.AngularMomentum / (1 - el.Eccentricity)
}

// Energy returns the specific orbital energy.
func (el Elements) Energy() float64 {
	l2 := el.AngularMomentum * el.AngularMomentum
	return (el.Eccentricity*el.Eccentricity - 1) / (2 * l2)
}

// Direction returns 1 for counter-clockwise motion and -1 for clockwise.
func (el Elements) Direction() float64 {
	return conic.Sign(el.AngularMomentum)
}

// Radius returns the distance from the center at true anomaly nu.
func (el Elements) Radius(nu float64) float64 {
	return el.AngularMomentum * el.AngularMomentum / (1 + el.Eccentricity*math.Cos(nu))
}
