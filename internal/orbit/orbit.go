package orbit

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/gravitysim/gravity/internal/conic"
	"github.com/gravitysim/gravity/internal/solver"
)

// DefaultRandomizeAttempts bounds the rejection sampling in Randomize.
const DefaultRandomizeAttempts = 1000

var (
	// ErrNotInitialized is returned when an orbit is used before Reset.
	ErrNotInitialized = errors.New("orbit has no elements")
	// ErrRandomizeExhausted is returned when Randomize cannot find an
	// acceptable orbit within its attempt budget.
	ErrRandomizeExhausted = errors.New("no orbit found below eccentricity cap")
)

// Position is the externally visible state of a body. Angle is the facing
// direction in degrees.
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	Angle float64 `json:"angle"`
}

// Stats summarizes the current orbit.
type Stats struct {
	L      float64 `json:"l"`
	E      float64 `json:"e"`
	Theta0 float64 `json:"theta0"`
	Theta  float64 `json:"theta"`
}

// Option configures an Orbit.
type Option func(*Orbit)

// WithSolverOptions passes options to every anomaly solve.
func WithSolverOptions(opts ...solver.Option) Option {
	return func(o *Orbit) {
		o.solverOpts = append(o.solverOpts, opts...)
	}
}

// WithRand sets the random source used by Randomize.
func WithRand(r *rand.Rand) Option {
	return func(o *Orbit) {
		o.rng = r
	}
}

// WithRandomizeAttempts overrides DefaultRandomizeAttempts.
func WithRandomizeAttempts(n int) Option {
	return func(o *Orbit) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// Orbit is a body moving on a Kepler orbit around a unit mass at the origin.
// It is not safe for concurrent use.
type Orbit struct {
	name        string
	elements    Elements
	initialized bool

	t       float64
	state   State
	anomaly float64
	facing  float64

	solverOpts []solver.Option
	rng        *rand.Rand
	attempts   int
}

// New creates an orbit with no elements. Call Reset before Advance.
func New(name string, opts ...Option) *Orbit {
	o := &Orbit{
		name:     name,
		anomaly:  math.NaN(),
		attempts: DefaultRandomizeAttempts,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// Name returns the orbit's name.
func (o *Orbit) Name() string { return o.name }

// Initialized reports whether the orbit has elements.
func (o *Orbit) Initialized() bool { return o.initialized }

// Elements returns the current orbital elements.
func (o *Orbit) Elements() Elements { return o.elements }

// Time returns the simulated time of the current state.
func (o *Orbit) Time() float64 { return o.t }

// State returns the current Cartesian state.
func (o *Orbit) State() State { return o.state }

// Facing returns the heading offset in degrees applied by Turn.
func (o *Orbit) Facing() float64 { return o.facing }

// Anomaly returns the last solved anomaly.
func (o *Orbit) Anomaly() float64 { return o.anomaly }

// Reset sets the orbit to pass through (x, y) with velocity (vx, vy) at time t.
// Degenerate input leaves the orbit unchanged and returns the reason.
func (o *Orbit) Reset(t, x, y, vx, vy float64) error {
	if err := o.reset(t, x, y, vx, vy); err != nil {
		return err
	}
	recordManeuver("reset")
	return nil
}

func (o *Orbit) reset(t, x, y, vx, vy float64) error {
	st := State{X: x, Y: y, VX: vx, VY: vy}
	el, anomaly, err := Determine(t, st)
	if err != nil {
		return fmt.Errorf("reset %s: %w", o.name, err)
	}
	o.elements = el
	o.initialized = true
	o.t = t
	o.state = st
	o.anomaly = anomaly
	return nil
}

// Advance moves the body along its orbit to simulated time t.
func (o *Orbit) Advance(t float64) error {
	if !o.initialized {
		return ErrNotInitialized
	}
	st, anomaly, res, err := propagate(o.elements, t, o.anomaly, o.solverOpts)
	recordSolve(o.elements.regime, res.Method.String(), err)
	if err != nil {
		return fmt.Errorf("advance %s: %w", o.name, err)
	}
	o.t = t
	o.state = st
	o.anomaly = anomaly
	return nil
}

// Position returns the current position, velocity and facing.
func (o *Orbit) Position() Position {
	heading := conic.RadToDeg(math.Atan2(o.state.VY, o.state.VX))
	return Position{
		X:     o.state.X,
		Y:     o.state.Y,
		VX:    o.state.VX,
		VY:    o.state.VY,
		Angle: heading + o.facing,
	}
}

// Turn rotates the facing by deltaDeg without touching the trajectory.
func (o *Orbit) Turn(deltaDeg float64) {
	o.facing += deltaDeg
}

// Thrust applies an impulse deltaV along the facing rotated by extraDeg and
// recomputes the elements from the current position.
func (o *Orbit) Thrust(deltaV, extraDeg float64) error {
	if !o.initialized {
		return ErrNotInitialized
	}
	dir := math.Atan2(o.state.VY, o.state.VX) + conic.DegToRad(o.facing+extraDeg)
	sin, cos := math.Sincos(dir)
	vx := o.state.VX + deltaV*cos
	vy := o.state.VY + deltaV*sin
	if err := o.reset(o.t, o.state.X, o.state.Y, vx, vy); err != nil {
		return err
	}
	recordManeuver("thrust")
	return nil
}

// Stats returns angular momentum, eccentricity, periapsis angle and the
// current polar angle.
func (o *Orbit) Stats() Stats {
	return Stats{
		L:      o.elements.AngularMomentum,
		E:      o.elements.Eccentricity,
		Theta0: o.elements.PeriapsisAngle,
		Theta:  math.Atan2(o.state.Y, o.state.X),
	}
}

// Extent returns the size of the region the orbit needs on screen: the major
// axis for an ellipse, the current radius otherwise.
func (o *Orbit) Extent() float64 {
	if o.initialized && o.elements.regime == Ellipse {
		return 2 * o.elements.a
	}
	return o.state.Radius()
}

// Randomize resets the orbit at its current time to a random state whose
// eccentricity is below maxEccentricity (1 when not positive).
func (o *Orbit) Randomize(maxEccentricity float64) error {
	if maxEccentricity <= 0 {
		maxEccentricity = 1
	}
	for i := 0; i < o.attempts; i++ {
		st := o.randomState()
		el, _, err := Determine(o.t, st)
		if err != nil || el.Eccentricity >= maxEccentricity {
			continue
		}
		if err := o.reset(o.t, st.X, st.Y, st.VX, st.VY); err != nil {
			return err
		}
		recordManeuver("randomize")
		return nil
	}
	return fmt.Errorf("randomize %s: %w (cap %g after %d attempts)", o.name, ErrRandomizeExhausted, maxEccentricity, o.attempts)
}

func (o *Orbit) randomState() State {
	r := 20 + 60*o.rng.Float64()
	theta := 2 * math.Pi * o.rng.Float64()
	circular := math.Sqrt(1 / r)

	vt := circular * (0.5 + o.rng.Float64())
	if o.rng.IntN(2) == 0 {
		vt = -vt
	}
	vr := circular * (o.rng.Float64() - 0.5)

	sin, cos := math.Sincos(theta)
	return State{
		X:  r * cos,
		Y:  r * sin,
		VX: vr*cos - vt*sin,
		VY: vr*sin + vt*cos,
	}
}
