// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/gravitysim/gravity/internal/geo"
	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/pkg/core"
	"gorm.io/datatypes"
)

func elementsToGorm(e core.Elements) model.Elements {
	return model.Elements{
		Regime:          e.Regime,
		AngularMomentum: e.AngularMomentum,
		Eccentricity:    e.Eccentricity,
		PeriapsisAngle:  e.PeriapsisAngle,
		PeriapsisEpoch:  e.PeriapsisEpoch,
		SemiMajorAxis:   e.SemiMajorAxis,
	}
}

// elementsToJSON converts elements to datatypes.JSON for DB storage.
func elementsToJSON(e core.Elements) datatypes.JSON {
	data, err := json.Marshal(elementsToGorm(e))
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	out := model.Session{
		SessionName:  s.Name,
		Tag:          s.Tag,
		StartTime:    s.StartTime,
		Speed:        s.Speed,
		TickInterval: s.TickInterval,
		Tolerance:    s.Tolerance,
		Seed:         int64(s.Seed),
		Version:      s.Version,
	}
	out.ID = s.ID
	return out
}

// CoreToBody converts a core.Body to a GORM model.Body.
func CoreToBody(b core.Body) model.Body {
	return model.Body{
		ID:          b.ID,
		SessionID:   b.SessionID,
		Name:        b.Name,
		JoinTime:    b.JoinTime,
		JoinSimTime: b.JoinSimTime,
	}
}

// CoreToBodyState converts a core.BodyState to a GORM model.BodyState.
// The session ID is stamped by the caller.
func CoreToBodyState(s core.BodyState) model.BodyState {
	return model.BodyState{
		Time:     s.Time,
		BodyID:   s.BodyID,
		Tick:     s.Tick,
		SimTime:  s.SimTime,
		Position: geo.PointFromXY(s.X, s.Y),
		VX:       s.VX,
		VY:       s.VY,
		Facing:   s.Facing,
		Elements: elementsToGorm(s.Elements),
	}
}

// CoreToManeuver converts a core.Maneuver to a GORM model.Maneuver.
// The session ID is stamped by the caller.
func CoreToManeuver(m core.Maneuver) model.Maneuver {
	return model.Maneuver{
		Time:     m.Time,
		BodyID:   m.BodyID,
		Kind:     m.Kind,
		Tick:     m.Tick,
		SimTime:  m.SimTime,
		DeltaV:   m.DeltaV,
		AngleDeg: m.AngleDeg,
		Before:   elementsToJSON(m.Before),
		After:    elementsToJSON(m.After),
		Path:     geo.LineStringFromPath(m.Path),
	}
}
