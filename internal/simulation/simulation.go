// Package simulation runs named orbits against a shared clock, serializing
// ticks and commands, and feeds the results to storage, telemetry and event
// subscribers.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gravitysim/gravity/internal/cache"
	"github.com/gravitysim/gravity/internal/channel"
	"github.com/gravitysim/gravity/internal/clock"
	"github.com/gravitysim/gravity/internal/geo"
	"github.com/gravitysim/gravity/internal/orbit"
	"github.com/gravitysim/gravity/internal/session"
	"github.com/gravitysim/gravity/internal/solver"
	"github.com/gravitysim/gravity/internal/storage"
	"github.com/gravitysim/gravity/pkg/core"
)

// Defaults for Config.
const (
	DefaultRecordEvery = 10
	DefaultEventBuffer = 256
	DefaultPathSamples = 128
)

// Event kinds.
const (
	KindTick     = "tick"
	KindManeuver = "maneuver"
)

var (
	// ErrUnknownBody is returned for commands naming a body that does not exist.
	ErrUnknownBody = errors.New("unknown body")
	// ErrDuplicateBody is returned when adding a body whose name is taken.
	ErrDuplicateBody = errors.New("body already exists")
	// ErrNoClock is returned by New without a clock.
	ErrNoClock = errors.New("simulation needs a clock")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("simulation closed")
)

// Telemetry receives sampled states and maneuvers for time-series storage.
type Telemetry interface {
	WriteBodyState(ctx context.Context, s core.BodyState) error
	WriteManeuver(ctx context.Context, m core.Maneuver) error
}

// Config tunes the simulator.
type Config struct {
	// RecordEvery is the number of ticks between recorded states.
	RecordEvery     int
	Tolerance       float64
	MaxEccentricity float64
	// Seed makes Randomize reproducible; 0 picks a random seed.
	Seed        uint64
	PathSamples int
	// PathRadius bounds sampled paths of open orbits; 0 uses four times the
	// current radius.
	PathRadius  float64
	EventBuffer int
	Version     string
}

// Dependencies holds the collaborators of a Simulator. Only Clock is required.
type Dependencies struct {
	Clock     *clock.Clock
	Storage   storage.Backend
	States    *cache.StateCache
	Session   *session.Context
	Telemetry Telemetry
	Logger    *slog.Logger
	Now       func() time.Time
}

// Event is published after every tick and every maneuver.
type Event struct {
	Kind     string           `json:"kind"`
	Tick     uint64           `json:"tick"`
	SimTime  float64          `json:"simTime"`
	Bodies   []core.BodyState `json:"bodies,omitempty"`
	Maneuver *core.Maneuver   `json:"maneuver,omitempty"`
}

type body struct {
	orbit  *orbit.Orbit
	record core.Body
}

// Simulator owns the bodies. All orbit access happens under mu.
type Simulator struct {
	mu     sync.Mutex
	cfg    Config
	deps   Dependencies
	bodies []*body
	byName map[string]*body
	tick   uint64
	closed bool
	seed   uint64

	events        channel.Channel[Event]
	dropped       atomic.Uint64
	advanceErrors atomic.Uint64
	log           *slog.Logger
}

// New creates a simulator and registers it with the clock.
func New(cfg Config, deps Dependencies) (*Simulator, error) {
	if deps.Clock == nil {
		return nil, ErrNoClock
	}
	if cfg.RecordEvery <= 0 {
		cfg.RecordEvery = DefaultRecordEvery
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	if cfg.PathSamples < 2 {
		cfg.PathSamples = DefaultPathSamples
	}
	if cfg.MaxEccentricity <= 0 {
		cfg.MaxEccentricity = 1
	}
	if deps.States == nil {
		deps.States = cache.NewStateCache()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	s := &Simulator{
		cfg:    cfg,
		deps:   deps,
		byName: make(map[string]*body),
		seed:   seed,
		events: channel.NewBuffered[Event](cfg.EventBuffer),
		log:    deps.Logger,
	}
	deps.Clock.AddListener(s.onTick)
	return s, nil
}

// Events returns the event stream. It is closed by Close.
func (s *Simulator) Events() channel.Receiver[Event] {
	return s.events
}

// States returns the cache of latest body states.
func (s *Simulator) States() *cache.StateCache {
	return s.deps.States
}

// Clock returns the driving clock.
func (s *Simulator) Clock() *clock.Clock {
	return s.deps.Clock
}

// Dropped returns how many events were discarded because no one was reading.
func (s *Simulator) Dropped() uint64 { return s.dropped.Load() }

// AdvanceErrors returns how many orbit advances failed.
func (s *Simulator) AdvanceErrors() uint64 { return s.advanceErrors.Load() }

func (s *Simulator) newOrbit(name string, index int) *orbit.Orbit {
	opts := []orbit.Option{
		orbit.WithRand(rand.New(rand.NewPCG(s.seed, uint64(index)))),
	}
	if s.cfg.Tolerance > 0 {
		opts = append(opts, orbit.WithSolverOptions(solver.WithTolerance(s.cfg.Tolerance)))
	}
	return orbit.New(name, opts...)
}

// AddBody creates a body passing through (x, y) with velocity (vx, vy) at
// the current simulated time.
func (s *Simulator) AddBody(name string, x, y, vx, vy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBody, name)
	}

	t := s.deps.Clock.Time()
	o := s.newOrbit(name, len(s.bodies))
	if err := o.Reset(t, x, y, vx, vy); err != nil {
		return err
	}
	b := &body{
		orbit: o,
		record: core.Body{
			Name:        name,
			JoinTime:    s.deps.Now(),
			JoinSimTime: t,
		},
	}
	s.bodies = append(s.bodies, b)
	s.byName[name] = b
	s.deps.States.Set(s.stateOf(b))

	if s.recording() {
		if err := s.deps.Storage.AddBody(&b.record); err != nil {
			s.log.Error("Failed to record body", "body", name, "error", err)
		}
	}
	s.log.Info("Body added", "body", name, "regime", o.Elements().Regime().String())
	return nil
}

// LoadDefaultScenario adds the target and the ship on their starting orbits.
func (s *Simulator) LoadDefaultScenario() error {
	if err := s.AddBody("target", 50, 0, 0, -0.15); err != nil {
		return err
	}
	return s.AddBody("ship", 40, 0, 0, -0.15)
}

// BodyNames returns body names in the order they were added.
func (s *Simulator) BodyNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.bodies))
	for i, b := range s.bodies {
		names[i] = b.record.Name
	}
	return names
}

func (s *Simulator) recording() bool {
	return s.deps.Storage != nil && s.deps.Session.Active()
}

// StartSession begins recording, ending any active session first. Bodies that already exist are registered
// with the storage backend and their current state is recorded.
func (s *Simulator) StartSession(name, tag string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.endSessionLocked(); err != nil {
		return nil, err
	}

	sess := &core.Session{
		Name:         name,
		Tag:          tag,
		StartTime:    s.deps.Now(),
		Speed:        s.deps.Clock.Speed(),
		TickInterval: s.deps.Clock.Interval(),
		Tolerance:    s.cfg.Tolerance,
		Seed:         s.seed,
		Version:      s.cfg.Version,
	}
	if s.deps.Storage != nil {
		if err := s.deps.Storage.StartSession(sess); err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
	}
	s.deps.Session.SetSession(sess)

	if s.deps.Storage != nil {
		for _, b := range s.bodies {
			b.record.ID = 0
			if err := s.deps.Storage.AddBody(&b.record); err != nil {
				s.log.Error("Failed to record body", "body", b.record.Name, "error", err)
				continue
			}
			st := s.stateOf(b)
			if err := s.deps.Storage.RecordBodyState(&st); err != nil {
				s.log.Error("Failed to record state", "body", b.record.Name, "error", err)
			}
		}
	}
	s.log.Info("Session started", "session", name, "tag", tag, "seed", s.seed)
	return sess, nil
}

// EndSession stops recording and lets the backend flush.
func (s *Simulator) EndSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endSessionLocked()
}

func (s *Simulator) endSessionLocked() error {
	if !s.deps.Session.Active() {
		return nil
	}
	s.deps.Session.End(s.deps.Now())
	s.log.Info("Session ended", "session", s.deps.Session.GetSession().Name, "tick", s.tick)
	if s.deps.Storage == nil {
		return nil
	}
	if err := s.deps.Storage.EndSession(); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Close stops the clock and closes the event stream.
func (s *Simulator) Close() {
	s.deps.Clock.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.events.Close()
}

// onTick advances every body to t. A failing body keeps its last state.
func (s *Simulator) onTick(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.tick++

	states := make([]core.BodyState, 0, len(s.bodies))
	for _, b := range s.bodies {
		if err := b.orbit.Advance(t); err != nil {
			s.advanceErrors.Add(1)
			recordAdvanceError()
			s.log.Error("Advance failed", "body", b.record.Name, "time", t, "error", err)
			continue
		}
		st := s.stateOf(b)
		s.deps.States.Set(st)
		states = append(states, st)
	}

	if s.tick%uint64(s.cfg.RecordEvery) == 0 {
		s.record(states)
	}
	s.publish(Event{Kind: KindTick, Tick: s.tick, SimTime: t, Bodies: states})
}

func (s *Simulator) record(states []core.BodyState) {
	ctx := context.Background()
	for i := range states {
		if s.recording() {
			if err := s.deps.Storage.RecordBodyState(&states[i]); err != nil {
				s.log.Error("Failed to record state", "body", states[i].BodyName, "error", err)
			}
		}
		if s.deps.Telemetry != nil {
			if err := s.deps.Telemetry.WriteBodyState(ctx, states[i]); err != nil {
				s.log.Debug("Telemetry write failed", "error", err)
			}
		}
	}
}

func (s *Simulator) publish(ev Event) {
	if !s.events.TrySend(ev) {
		s.dropped.Add(1)
		recordDroppedEvent()
	}
}

// stateOf must be called with mu held.
func (s *Simulator) stateOf(b *body) core.BodyState {
	st := b.orbit.State()
	return core.BodyState{
		BodyID:   b.record.ID,
		BodyName: b.record.Name,
		Tick:     s.tick,
		SimTime:  b.orbit.Time(),
		Time:     s.deps.Now(),
		X:        st.X,
		Y:        st.Y,
		VX:       st.VX,
		VY:       st.VY,
		Facing:   b.orbit.Facing(),
		Elements: coreElements(b.orbit.Elements()),
	}
}

// coreElements converts elements for recording. Non-finite values (the
// parabolic semi-major axis) become 0 so they encode as JSON.
func coreElements(el orbit.Elements) core.Elements {
	return core.Elements{
		Regime:          el.Regime().String(),
		AngularMomentum: el.AngularMomentum,
		Eccentricity:    el.Eccentricity,
		PeriapsisAngle:  el.PeriapsisAngle,
		PeriapsisEpoch:  el.PeriapsisEpoch,
		SemiMajorAxis:   finite(el.SemiMajorAxis()),
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
