package convert

import (
	"encoding/json"

	"github.com/gravitysim/gravity/internal/geo"
	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/pkg/core"
	"gorm.io/datatypes"
)

func elementsToCore(e model.Elements) core.Elements {
	return core.Elements{
		Regime:          e.Regime,
		AngularMomentum: e.AngularMomentum,
		Eccentricity:    e.Eccentricity,
		PeriapsisAngle:  e.PeriapsisAngle,
		PeriapsisEpoch:  e.PeriapsisEpoch,
		SemiMajorAxis:   e.SemiMajorAxis,
	}
}

func jsonToElements(data datatypes.JSON) core.Elements {
	var e model.Elements
	if len(data) > 0 {
		_ = json.Unmarshal(data, &e)
	}
	return elementsToCore(e)
}

// SessionToCore converts a GORM Session to a core.Session.
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:           s.ID,
		Name:         s.SessionName,
		Tag:          s.Tag,
		StartTime:    s.StartTime,
		Speed:        s.Speed,
		TickInterval: s.TickInterval,
		Tolerance:    s.Tolerance,
		Seed:         uint64(s.Seed),
		Version:      s.Version,
	}
}

// BodyToCore converts a GORM Body to a core.Body.
func BodyToCore(b model.Body) core.Body {
	return core.Body{
		ID:          b.ID,
		SessionID:   b.SessionID,
		Name:        b.Name,
		JoinTime:    b.JoinTime,
		JoinSimTime: b.JoinSimTime,
	}
}

// BodyStateToCore converts a GORM BodyState to a core.BodyState.
// BodyName is left empty; callers resolve it from the body table.
func BodyStateToCore(s model.BodyState) core.BodyState {
	x, y := geo.XYFromPoint(s.Position)
	return core.BodyState{
		BodyID:   s.BodyID,
		Tick:     s.Tick,
		SimTime:  s.SimTime,
		Time:     s.Time,
		X:        x,
		Y:        y,
		VX:       s.VX,
		VY:       s.VY,
		Facing:   s.Facing,
		Elements: elementsToCore(s.Elements),
	}
}

// ManeuverToCore converts a GORM Maneuver to a core.Maneuver.
func ManeuverToCore(m model.Maneuver) core.Maneuver {
	return core.Maneuver{
		BodyID:   m.BodyID,
		Kind:     m.Kind,
		Tick:     m.Tick,
		SimTime:  m.SimTime,
		Time:     m.Time,
		DeltaV:   m.DeltaV,
		AngleDeg: m.AngleDeg,
		Before:   jsonToElements(m.Before),
		After:    jsonToElements(m.After),
		Path:     geo.PathFromLineString(m.Path),
	}
}
