package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gravitysim/gravity/internal/geo"
	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreToSession(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := CoreToSession(core.Session{
		ID:           4,
		Name:         "gravity",
		Tag:          "sandbox",
		StartTime:    start,
		Speed:        0.3,
		TickInterval: 18 * time.Millisecond,
		Tolerance:    1e-10,
		Seed:         99,
		Version:      "1.0.0",
	})

	assert.Equal(t, uint(4), s.ID)
	assert.Equal(t, "gravity", s.SessionName)
	assert.Equal(t, "sandbox", s.Tag)
	assert.Equal(t, start, s.StartTime)
	assert.Equal(t, 18*time.Millisecond, s.TickInterval)
	assert.Equal(t, int64(99), s.Seed)
}

func TestCoreToBodyState(t *testing.T) {
	st := CoreToBodyState(core.BodyState{
		BodyID:  2,
		Tick:    30,
		SimTime: 162,
		X:       40,
		Y:       -1,
		VX:      0.01,
		VY:      -0.15,
		Facing:  15,
		Elements: core.Elements{
			Regime:          "ellipse",
			AngularMomentum: -6,
			Eccentricity:    0.1,
		},
	})

	assert.Equal(t, uint(2), st.BodyID)
	assert.Equal(t, uint64(30), st.Tick)
	x, y := geo.XYFromPoint(st.Position)
	assert.Equal(t, 40.0, x)
	assert.Equal(t, -1.0, y)
	assert.Equal(t, -0.15, st.VY)
	assert.Equal(t, 15.0, st.Facing)
	assert.Equal(t, "ellipse", st.Elements.Regime)
	assert.Equal(t, -6.0, st.Elements.AngularMomentum)
}

func TestCoreToManeuver(t *testing.T) {
	m := CoreToManeuver(core.Maneuver{
		BodyID:   1,
		Kind:     core.ManeuverThrust,
		DeltaV:   0.02,
		AngleDeg: 90,
		Before:   core.Elements{Regime: "ellipse", Eccentricity: 0.1},
		After:    core.Elements{Regime: "hyperbola", Eccentricity: 1.4},
		Path:     [][2]float64{{1, 2}, {3, 4}},
	})

	assert.Equal(t, "thrust", m.Kind)
	assert.Equal(t, 0.02, m.DeltaV)

	var before model.Elements
	require.NoError(t, json.Unmarshal(m.Before, &before))
	assert.Equal(t, "ellipse", before.Regime)
	assert.Equal(t, 0.1, before.Eccentricity)

	assert.Equal(t, 2, m.Path.Coordinates().Length())
}
