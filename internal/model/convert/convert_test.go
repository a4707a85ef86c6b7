package convert

import (
	"testing"
	"time"

	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/pkg/core"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestJSONToElements_Invalid(t *testing.T) {
	assert.Equal(t, core.Elements{}, jsonToElements(datatypes.JSON("not json")))
	assert.Equal(t, core.Elements{}, jsonToElements(nil))
}

// Round-trip: Core → GORM → Core
func TestSessionRoundTrip(t *testing.T) {
	orig := core.Session{
		ID:           7,
		Name:         "gravity",
		Tag:          "sandbox",
		StartTime:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Speed:        1.2,
		TickInterval: 20 * time.Millisecond,
		Tolerance:    1e-9,
		Seed:         42,
		Version:      "1.0.0",
	}
	assert.Equal(t, orig, SessionToCore(CoreToSession(orig)))
}

func TestBodyRoundTrip(t *testing.T) {
	orig := core.Body{
		ID:          3,
		SessionID:   7,
		Name:        "ship",
		JoinTime:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		JoinSimTime: 12.5,
	}
	assert.Equal(t, orig, BodyToCore(CoreToBody(orig)))
}

func TestBodyStateRoundTrip(t *testing.T) {
	orig := core.BodyState{
		BodyID:  3,
		Tick:    90,
		SimTime: 486,
		Time:    time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
		X:       31.5,
		Y:       -22,
		VX:      0.11,
		VY:      0.04,
		Facing:  -30,
		Elements: core.Elements{
			Regime:          "ellipse",
			AngularMomentum: -6,
			Eccentricity:    0.1,
			PeriapsisAngle:  3.14,
			PeriapsisEpoch:  -500,
			SemiMajorAxis:   36.36,
		},
	}
	got := BodyStateToCore(CoreToBodyState(orig))
	assert.Equal(t, orig, got)
}

func TestManeuverRoundTrip(t *testing.T) {
	orig := core.Maneuver{
		BodyID:   3,
		Kind:     core.ManeuverReset,
		Tick:     5,
		SimTime:  27,
		Time:     time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
		DeltaV:   0,
		AngleDeg: 0,
		Before:   core.Elements{Regime: "ellipse", Eccentricity: 0.1, SemiMajorAxis: 36},
		After:    core.Elements{Regime: "parabola", Eccentricity: 1},
		Path:     [][2]float64{{1, 2}, {3, 4}, {5, 6}},
	}
	assert.Equal(t, orig, ManeuverToCore(CoreToManeuver(orig)))
}

func TestManeuverToCore_GormRow(t *testing.T) {
	row := model.Maneuver{
		BodyID: 9,
		Kind:   "turn",
		Before: datatypes.JSON(`{"regime":"hyperbola","e":1.5}`),
	}
	m := ManeuverToCore(row)
	assert.Equal(t, uint(9), m.BodyID)
	assert.Equal(t, "hyperbola", m.Before.Regime)
	assert.Equal(t, 1.5, m.Before.Eccentricity)
	assert.Nil(t, m.Path)
}
