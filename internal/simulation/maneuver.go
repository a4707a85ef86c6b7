package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/gravitysim/gravity/internal/geo"
	"github.com/gravitysim/gravity/internal/orbit"
	"github.com/gravitysim/gravity/pkg/core"
)

// Thrust applies an impulse to the named body along its facing rotated by
// extraDeg.
func (s *Simulator) Thrust(name string, deltaV, extraDeg float64) (*core.Maneuver, error) {
	return s.maneuver(name, core.ManeuverThrust, deltaV, extraDeg, func(o *orbit.Orbit) error {
		return o.Thrust(deltaV, extraDeg)
	})
}

// Turn rotates the named body's facing by deltaDeg.
func (s *Simulator) Turn(name string, deltaDeg float64) (*core.Maneuver, error) {
	return s.maneuver(name, core.ManeuverTurn, 0, deltaDeg, func(o *orbit.Orbit) error {
		o.Turn(deltaDeg)
		return nil
	})
}

// Reset places the named body at (x, y) with velocity (vx, vy) at the
// current simulated time.
func (s *Simulator) Reset(name string, x, y, vx, vy float64) (*core.Maneuver, error) {
	return s.maneuver(name, core.ManeuverReset, 0, 0, func(o *orbit.Orbit) error {
		return o.Reset(o.Time(), x, y, vx, vy)
	})
}

// Randomize moves the named body to a random bound orbit below the
// configured eccentricity cap.
func (s *Simulator) Randomize(name string) (*core.Maneuver, error) {
	return s.maneuver(name, core.ManeuverRandomize, 0, 0, func(o *orbit.Orbit) error {
		return o.Randomize(s.cfg.MaxEccentricity)
	})
}

// maneuver applies fn to the named body. A failed fn leaves the orbit as it
// was before the call.
func (s *Simulator) maneuver(name, kind string, deltaV, angle float64, fn func(*orbit.Orbit) error) (*core.Maneuver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	b, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBody, name)
	}

	before := b.orbit.Elements()
	if err := fn(b.orbit); err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, name, err)
	}
	after := b.orbit.Elements()

	mv := &core.Maneuver{
		BodyID:   b.record.ID,
		BodyName: name,
		Kind:     kind,
		Tick:     s.tick,
		SimTime:  b.orbit.Time(),
		Time:     s.deps.Now(),
		DeltaV:   deltaV,
		AngleDeg: angle,
		Before:   coreElements(before),
		After:    coreElements(after),
	}
	if kind != core.ManeuverTurn {
		mv.Path = s.samplePath(b.orbit)
	}

	st := s.stateOf(b)
	s.deps.States.Set(st)

	if s.recording() {
		if err := s.deps.Storage.RecordManeuver(mv); err != nil {
			s.log.Error("Failed to record maneuver", "body", name, "kind", kind, "error", err)
		}
	}
	if s.deps.Telemetry != nil {
		if err := s.deps.Telemetry.WriteManeuver(context.Background(), *mv); err != nil {
			s.log.Debug("Telemetry write failed", "error", err)
		}
	}

	s.log.Info("Maneuver",
		"body", name,
		"kind", kind,
		"regime", after.Regime().String(),
		"e", after.Eccentricity,
	)
	s.publish(Event{Kind: KindManeuver, Tick: s.tick, SimTime: mv.SimTime, Bodies: []core.BodyState{st}, Maneuver: mv})
	return mv, nil
}

func (s *Simulator) samplePath(o *orbit.Orbit) [][2]float64 {
	bound := s.cfg.PathRadius
	if bound <= 0 {
		bound = 4 * o.State().Radius()
	}
	path, err := geo.SampleOrbit(o.Elements(), bound, s.cfg.PathSamples)
	if err != nil {
		if !errors.Is(err, geo.ErrOutOfRange) {
			s.log.Warn("Failed to sample orbit", "body", o.Name(), "error", err)
		}
		return nil
	}
	return path
}
