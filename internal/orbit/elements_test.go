package orbit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		e    float64
		want Regime
	}{
		{0, Ellipse},
		{0.5, Ellipse},
		{1 - 1e-6, Ellipse},
		{1, Parabola},
		{1 + 1e-13, Parabola},
		{1 - 1e-13, Parabola},
		{1 + 1e-6, Hyperbola},
		{3, Hyperbola},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.e), "e=%v", tt.e)
	}
}

func TestNewElements_Validation(t *testing.T) {
	_, err := NewElements(0, 0.5, 0, 0)
	assert.ErrorIs(t, err, ErrRadialOrbit)

	_, err = NewElements(math.NaN(), 0.5, 0, 0)
	assert.ErrorIs(t, err, ErrRadialOrbit)

	_, err = NewElements(2, -0.1, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidEccentricity)

	_, err = NewElements(2, math.Inf(1), 0, 0)
	assert.ErrorIs(t, err, ErrInvalidEccentricity)

	_, err = NewElements(2, 0.5, math.NaN(), 0)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestNewElements_Ellipse(t *testing.T) {
	el, err := NewElements(6, 0.6, math.Pi/2, 10)
	require.NoError(t, err)

	assert.Equal(t, Ellipse, el.Regime())
	assert.InDelta(t, 36/0.64, el.SemiMajorAxis(), 1e-9)
	assert.InDelta(t, 36/0.64*0.8, el.SemiMinorAxis(), 1e-9)

	period, ok := el.Period()
	require.True(t, ok)
	assert.InDelta(t, 2*math.Pi*math.Pow(36/0.64, 1.5), period, 1e-6)

	// center sits halfway between periapsis and apoapsis
	rp, ra := el.Periapsis(), el.Apoapsis()
	assert.InDelta(t, 36/1.6, rp, 1e-12)
	assert.InDelta(t, 36/0.4, ra, 1e-12)
	cx, cy := el.Center()
	assert.InDelta(t, 0, cx, 1e-9)
	assert.InDelta(t, (rp-ra)/2, cy, 1e-9)

	assert.Less(t, el.Energy(), 0.0)
	assert.Equal(t, 1.0, el.Direction())
}

func TestNewElements_Hyperbola(t *testing.T) {
	el, err := NewElements(-3, 2, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, Hyperbola, el.Regime())
	assert.InDelta(t, 3.0, el.SemiMajorAxis(), 1e-12)
	assert.InDelta(t, 3*math.Sqrt(3), el.SemiMinorAxis(), 1e-12)
	assert.True(t, math.IsInf(el.Apoapsis(), 1))
	assert.Greater(t, el.Energy(), 0.0)
	assert.Equal(t, -1.0, el.Direction())

	_, ok := el.Period()
	assert.False(t, ok)
	assert.InDelta(t, math.Acos(-0.5), AsymptoteAngle(el), 1e-12)
}

func TestNewElements_Parabola(t *testing.T) {
	el, err := NewElements(4, 1, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, Parabola, el.Regime())
	assert.True(t, math.IsInf(el.SemiMajorAxis(), 1))
	assert.InDelta(t, 8.0, el.Periapsis(), 1e-12)
	assert.InDelta(t, 0.0, el.Energy(), 1e-15)
	assert.InDelta(t, 16.0, el.Radius(math.Pi/2), 1e-12)
}

func TestRegime_String(t *testing.T) {
	assert.Equal(t, "ellipse", Ellipse.String())
	assert.Equal(t, "parabola", Parabola.String())
	assert.Equal(t, "hyperbola", Hyperbola.String())
	assert.Equal(t, "regime(9)", Regime(9).String())
}
