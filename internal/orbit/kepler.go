package orbit

import (
	"fmt"
	"math"

	"github.com/gravitysim/gravity/internal/conic"
	"github.com/gravitysim/gravity/internal/solver"
)

// State is a Cartesian position and velocity relative to the central mass.
type State struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Radius returns the distance from the central mass.
func (s State) Radius() float64 { return math.Hypot(s.X, s.Y) }

// Speed returns the velocity magnitude.
func (s State) Speed() float64 { return math.Hypot(s.VX, s.VY) }

// AngularMomentum returns x·vy − y·vx.
func (s State) AngularMomentum() float64 { return s.X*s.VY - s.Y*s.VX }

// Propagate computes the state on el at simulated time t. seed is the anomaly
// returned by a previous call (NaN for a cold start) and the returned anomaly
// can be fed back as the next seed.
func Propagate(el Elements, t, seed float64, opts ...solver.Option) (State, float64, error) {
	st, anomaly, _, err := propagate(el, t, seed, opts)
	return st, anomaly, err
}

func propagate(el Elements, t, seed float64, opts []solver.Option) (State, float64, solver.Result, error) {
	switch el.regime {
	case Ellipse:
		return propagateEllipse(el, t, seed, opts)
	case Hyperbola:
		return propagateHyperbola(el, t, seed, opts)
	case Parabola:
		return propagateParabola(el, t, seed, opts)
	default:
		return State{}, seed, solver.Result{}, fmt.Errorf("unknown regime %v", el.regime)
	}
}

func propagateEllipse(el Elements, t, seed float64, opts []solver.Option) (State, float64, solver.Result, error) {
	e, n := el.Eccentricity, el.n
	dir := el.Direction()

	// reduce to within half a period of periapsis
	rhs := dir * (t - el.PeriapsisEpoch)
	period := 2 * math.Pi * n
	k := math.Round(rhs / period)
	m := rhs - k*period

	f := func(E float64) float64 { return n*(E-e*math.Sin(E)) - m }
	df := func(E float64) float64 { return n * (1 - e*math.Cos(E)) }

	res, err := solver.Solve(f, solveOptions(df, seed-2*math.Pi*k, opts)...)
	if err != nil {
		return State{}, seed, res, fmt.Errorf("solving eccentric anomaly at t=%g: %w", t, err)
	}
	E := res.Root

	sinE, cosE := math.Sincos(E)
	rate := dir / (n * (1 - e*cosE))
	st := State{
		X:  el.a * (cosE - e),
		Y:  el.b * sinE,
		VX: -el.a * sinE * rate,
		VY: el.b * cosE * rate,
	}
	return rotateState(st, el.PeriapsisAngle), E + 2*math.Pi*k, res, nil
}

func propagateHyperbola(el Elements, t, seed float64, opts []solver.Option) (State, float64, solver.Result, error) {
	e, n := el.Eccentricity, el.n
	dir := el.Direction()
	rhs := dir * (t - el.PeriapsisEpoch)

	f := func(E float64) float64 { return n*(e*conic.Sinh(E)-E) - rhs }
	df := func(E float64) float64 { return n * (e*conic.Cosh(E) - 1) }

	res, err := solver.Solve(f, solveOptions(df, seed, opts)...)
	if err != nil {
		return State{}, seed, res, fmt.Errorf("solving hyperbolic anomaly at t=%g: %w", t, err)
	}
	E := res.Root

	sinhE, coshE := conic.Sinh(E), conic.Cosh(E)
	rate := dir / (n * (e*coshE - 1))
	st := State{
		X:  el.a * (e - coshE),
		Y:  el.b * sinhE,
		VX: -el.a * sinhE * rate,
		VY: el.b * coshE * rate,
	}
	return rotateState(st, el.PeriapsisAngle), E, res, nil
}

func propagateParabola(el Elements, t, seed float64, opts []solver.Option) (State, float64, solver.Result, error) {
	l := el.AngularMomentum
	l2 := l * l
	half := l2 * l / 2
	rhs := t - el.PeriapsisEpoch

	f := func(D float64) float64 { return half*(D+D*D*D/3) - rhs }
	df := func(D float64) float64 { return half * (1 + D*D) }

	res, err := solver.Solve(f, solveOptions(df, seed, opts)...)
	if err != nil {
		return State{}, seed, res, fmt.Errorf("solving parabolic anomaly at t=%g: %w", t, err)
	}
	D := res.Root

	vy := 2 / (l * (1 + D*D))
	st := State{
		X:  l2 / 2 * (1 - D*D),
		Y:  l2 * D,
		VX: -D * vy,
		VY: vy,
	}
	return rotateState(st, el.PeriapsisAngle), D, res, nil
}

func solveOptions(df solver.Func, seed float64, extra []solver.Option) []solver.Option {
	opts := make([]solver.Option, 0, len(extra)+2)
	opts = append(opts, solver.WithDerivative(df), solver.WithSeed(seed))
	return append(opts, extra...)
}

func rotateState(s State, angle float64) State {
	x, y := conic.Rotate(s.X, s.Y, angle)
	vx, vy := conic.Rotate(s.VX, s.VY, angle)
	return State{X: x, Y: y, VX: vx, VY: vy}
}
