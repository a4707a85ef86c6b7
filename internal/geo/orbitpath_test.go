package geo

import (
	"math"
	"testing"

	"github.com/gravitysim/gravity/internal/conic"
	"github.com/gravitysim/gravity/internal/orbit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustElements(t *testing.T, l, e, theta0 float64) orbit.Elements {
	t.Helper()
	el, err := orbit.NewElements(l, e, theta0, 0)
	require.NoError(t, err)
	return el
}

// assertOnConic checks r·(1 + e·cos(θ − θ0)) = l² for every vertex.
func assertOnConic(t *testing.T, el orbit.Elements, path [][2]float64) {
	t.Helper()
	p := el.AngularMomentum * el.AngularMomentum
	for i, pt := range path {
		r := math.Hypot(pt[0], pt[1])
		nu := math.Atan2(pt[1], pt[0]) - el.PeriapsisAngle
		assert.InDelta(t, p, r*(1+el.Eccentricity*math.Cos(nu)), 1e-9*p, "vertex %d", i)
	}
}

func TestSampleOrbit_EllipseClosed(t *testing.T) {
	el := mustElements(t, -6, 0.1, 0.7)

	path, err := SampleOrbit(el, 0, 64)
	require.NoError(t, err)
	require.Len(t, path, 65)
	assert.Equal(t, path[0], path[64])
	assertOnConic(t, el, path)

	// starts at periapsis
	x, y := conic.Rotate(el.Periapsis(), 0, el.PeriapsisAngle)
	assert.InDelta(t, x, path[0][0], 1e-9)
	assert.InDelta(t, y, path[0][1], 1e-9)
}

func TestSampleOrbit_FollowsDirectionOfMotion(t *testing.T) {
	for _, l := range []float64{6, -6} {
		el := mustElements(t, l, 0.3, 0)
		path, err := SampleOrbit(el, 0, 16)
		require.NoError(t, err)

		step := math.Atan2(path[1][1], path[1][0]) - math.Atan2(path[0][1], path[0][0])
		assert.Equal(t, conic.Sign(l), conic.Sign(step), "l=%g", l)
	}
}

func TestSampleOrbit_HyperbolaBounded(t *testing.T) {
	el := mustElements(t, 6, 1.5, -1.2)
	const bound = 200.0

	path, err := SampleOrbit(el, bound, 50)
	require.NoError(t, err)
	require.Len(t, path, 50)
	assertOnConic(t, el, path)

	for _, pt := range path {
		assert.LessOrEqual(t, math.Hypot(pt[0], pt[1]), bound*(1+1e-9))
	}
	assert.InDelta(t, bound, math.Hypot(path[0][0], path[0][1]), 1e-6)
	assert.InDelta(t, bound, math.Hypot(path[49][0], path[49][1]), 1e-6)
}

func TestSampleOrbit_ParabolaBounded(t *testing.T) {
	el := mustElements(t, 6, 1, 2)
	const bound = 150.0

	path, err := SampleOrbit(el, bound, 41)
	require.NoError(t, err)
	assertOnConic(t, el, path)
	assert.InDelta(t, bound, math.Hypot(path[0][0], path[0][1]), 1e-6)

	// the middle vertex is periapsis
	assert.InDelta(t, el.Periapsis(), math.Hypot(path[20][0], path[20][1]), 1e-9)
}

func TestSampleOrbit_OutOfRange(t *testing.T) {
	el := mustElements(t, 6, 1.5, 0)

	_, err := SampleOrbit(el, 10, 32)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = SampleOrbit(el, 0, 32)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestOrbitPath_DefaultSamples(t *testing.T) {
	el := mustElements(t, -6, 0.1, 0)

	ls, err := OrbitPath(el, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSamples+1, ls.Coordinates().Length())
}
