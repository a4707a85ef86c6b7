package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/gravitysim/gravity/internal/conic"
	"github.com/gravitysim/gravity/internal/orbit"
	geom "github.com/peterstace/simplefeatures/geom"
)

// DefaultSamples is the vertex count used when OrbitPath is given fewer than two.
const DefaultSamples = 128

// ErrOutOfRange is returned when no part of an open orbit lies within the
// radius bound.
var ErrOutOfRange = errors.New("orbit lies outside radius bound")

// OrbitPath samples the conic of el in the direction of motion. Ellipses are
// closed (first vertex repeated at the end); parabolas and hyperbolas are cut
// where the radius reaches maxRadius.
func OrbitPath(el orbit.Elements, maxRadius float64, samples int) (geom.LineString, error) {
	path, err := SampleOrbit(el, maxRadius, samples)
	if err != nil {
		return geom.LineString{}, err
	}
	return LineStringFromPath(path), nil
}

// SampleOrbit is OrbitPath returning the vertices as [x, y] pairs.
func SampleOrbit(el orbit.Elements, maxRadius float64, samples int) ([][2]float64, error) {
	if samples < 2 {
		samples = DefaultSamples
	}

	var local [][2]float64
	switch el.Regime() {
	case orbit.Ellipse:
		local = sampleEllipse(el, samples)
	case orbit.Hyperbola, orbit.Parabola:
		if !(maxRadius > 0) {
			return nil, fmt.Errorf("%w: bound %g", ErrOutOfRange, maxRadius)
		}
		if el.Periapsis() > maxRadius {
			return nil, fmt.Errorf("%w: periapsis %g beyond %g", ErrOutOfRange, el.Periapsis(), maxRadius)
		}
		var err error
		local, err = sampleOpen(el, maxRadius, samples)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown regime %v", el.Regime())
	}

	for i, pt := range local {
		x, y := conic.Rotate(pt[0], pt[1], el.PeriapsisAngle)
		local[i] = [2]float64{x, y}
	}
	return local, nil
}

// sampleEllipse walks the eccentric anomaly once around, starting at periapsis.
func sampleEllipse(el orbit.Elements, samples int) [][2]float64 {
	a, b, e := el.SemiMajorAxis(), el.SemiMinorAxis(), el.Eccentricity
	dir := el.Direction()

	path := make([][2]float64, samples+1)
	for i := 0; i < samples; i++ {
		E := dir * 2 * math.Pi * float64(i) / float64(samples)
		sin, cos := math.Sincos(E)
		path[i] = [2]float64{a * (cos - e), b * sin}
	}
	path[samples] = path[0]
	return path
}

// boundAnomaly returns the true anomaly at which the radius equals maxRadius.
func boundAnomaly(el orbit.Elements, maxRadius float64) float64 {
	p := el.AngularMomentum * el.AngularMomentum
	c := (p/maxRadius - 1) / el.Eccentricity
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// sampleOpen walks the anomaly from the incoming to the outgoing bound.
func sampleOpen(el orbit.Elements, maxRadius float64, samples int) ([][2]float64, error) {
	nuMax := boundAnomaly(el, maxRadius)
	dir := el.Direction()
	path := make([][2]float64, samples)

	if el.Regime() == orbit.Parabola {
		p := el.AngularMomentum * el.AngularMomentum
		dMax := math.Tan(nuMax / 2)
		for i := range path {
			D := dir * (-dMax + 2*dMax*float64(i)/float64(samples-1))
			path[i] = [2]float64{p / 2 * (1 - D*D), p * D}
		}
		return path, nil
	}

	eMax, err := orbit.HyperbolicAnomaly(el, nuMax)
	if err != nil {
		return nil, err
	}
	a, b, e := el.SemiMajorAxis(), el.SemiMinorAxis(), el.Eccentricity
	for i := range path {
		E := dir * (-eMax + 2*eMax*float64(i)/float64(samples-1))
		path[i] = [2]float64{a * (e - conic.Cosh(E)), b * conic.Sinh(E)}
	}
	return path, nil
}
