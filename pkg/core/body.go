package core

import "time"

// Elements is a snapshot of a body's orbital elements.
type Elements struct {
	Regime          string
	AngularMomentum float64
	Eccentricity    float64
	PeriapsisAngle  float64
	PeriapsisEpoch  float64
	SemiMajorAxis   float64
}

// Body is a simulated object orbiting the central mass.
type Body struct {
	ID        uint
	SessionID uint
	Name      string
	JoinTime  time.Time
	// JoinSimTime is the simulated time the body was added.
	JoinSimTime float64
}

// BodyState is a sample of a body's trajectory.
type BodyState struct {
	BodyID   uint
	BodyName string
	Tick     uint64
	SimTime  float64
	Time     time.Time
	X        float64
	Y        float64
	VX       float64
	VY       float64
	Facing   float64
	Elements Elements
}

// Maneuver kinds.
const (
	ManeuverReset     = "reset"
	ManeuverThrust    = "thrust"
	ManeuverTurn      = "turn"
	ManeuverRandomize = "randomize"
)

// Maneuver records a change to a body's orbit or facing.
type Maneuver struct {
	BodyID   uint
	BodyName string
	Kind     string
	Tick     uint64
	SimTime  float64
	Time     time.Time
	DeltaV   float64
	AngleDeg float64
	Before   Elements
	After    Elements
	// Path samples the trajectory after the maneuver as [x, y] pairs.
	Path [][2]float64
}
