package simulation

import (
	"fmt"
	"math"

	"github.com/gravitysim/gravity/internal/clock"
	"github.com/gravitysim/gravity/internal/orbit"
)

// Speed steps used by SpeedUp and SlowDown.
const SpeedFactor = 1.1

// BodySnapshot is the displayable state of one body.
type BodySnapshot struct {
	Name          string         `json:"name"`
	Position      orbit.Position `json:"position"`
	Stats         orbit.Stats    `json:"stats"`
	Regime        string         `json:"regime"`
	SemiMajorAxis float64        `json:"a"`
	Period        float64        `json:"period,omitempty"`
	Extent        float64        `json:"extent"`
}

// Snapshot is the state of the whole simulation at one tick.
type Snapshot struct {
	Tick    uint64         `json:"tick"`
	SimTime float64        `json:"simTime"`
	Running bool           `json:"running"`
	Speed   float64        `json:"speed"`
	Bodies  []BodySnapshot `json:"bodies"`
	// Scale is the view scale for a unit square viewport.
	Scale float64 `json:"scale"`
}

// Start resumes the clock.
func (s *Simulator) Start() { s.deps.Clock.Start() }

// Stop halts the clock. Time spent stopped does not advance the simulation.
func (s *Simulator) Stop() { s.deps.Clock.Stop() }

// Pause toggles the clock and reports whether it is now running.
func (s *Simulator) Pause() bool {
	s.deps.Clock.Pause()
	return s.deps.Clock.Running()
}

// SetSpeed sets simulated milliseconds per real millisecond.
func (s *Simulator) SetSpeed(v float64) error {
	if err := s.deps.Clock.SetSpeed(v); err != nil {
		return err
	}
	s.log.Info("Speed changed", "speed", v)
	return nil
}

// SpeedUp multiplies the speed by SpeedFactor and returns the new speed.
func (s *Simulator) SpeedUp() (float64, error) {
	v := s.deps.Clock.Speed() * SpeedFactor
	return v, s.SetSpeed(v)
}

// SlowDown divides the speed by SpeedFactor and returns the new speed.
func (s *Simulator) SlowDown() (float64, error) {
	v := s.deps.Clock.Speed() / SpeedFactor
	return v, s.SetSpeed(v)
}

// ResetSpeed restores clock.DefaultSpeed.
func (s *Simulator) ResetSpeed() error {
	return s.SetSpeed(clock.DefaultSpeed)
}

// Stats returns the named body's orbit summary.
func (s *Simulator) Stats(name string) (orbit.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byName[name]
	if !ok {
		return orbit.Stats{}, fmt.Errorf("%w: %s", ErrUnknownBody, name)
	}
	return b.orbit.Stats(), nil
}

// Snapshot returns every body in insertion order.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Tick:    s.tick,
		SimTime: s.deps.Clock.Time(),
		Running: s.deps.Clock.Running(),
		Speed:   s.deps.Clock.Speed(),
		Bodies:  make([]BodySnapshot, 0, len(s.bodies)),
	}
	extents := make([]float64, 0, len(s.bodies))
	for _, b := range s.bodies {
		el := b.orbit.Elements()
		ext := b.orbit.Extent()
		extents = append(extents, ext)
		snap.Bodies = append(snap.Bodies, BodySnapshot{
			Name:          b.record.Name,
			Position:      b.orbit.Position(),
			Stats:         b.orbit.Stats(),
			Regime:        el.Regime().String(),
			SemiMajorAxis: finite(el.SemiMajorAxis()),
			Period:        period(el),
			Extent:        ext,
		})
	}
	snap.Scale = ViewScale(extents, 1, 1)
	return snap
}

func period(el orbit.Elements) float64 {
	if el.Regime() != orbit.Ellipse {
		return 0
	}
	return finite(el.Period())
}

// ViewScale returns the zoom that fits every extent into a width by height
// viewport. The scale snaps to powers of √e so the view does not jitter as
// bodies move.
func ViewScale(extents []float64, width, height float64) float64 {
	scene := 0.0
	for _, ext := range extents {
		if ext > scene && !math.IsInf(ext, 0) {
			scene = ext
		}
	}
	if scene <= 0 || width <= 0 || height <= 0 {
		return 1
	}
	scale := math.Min(width/scene, height/scene)
	return math.Exp(math.Floor(2*math.Log(scale)) / 2)
}
