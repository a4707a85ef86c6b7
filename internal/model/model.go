package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&Session{},
	&Body{},
	&BodyState{},
	&Maneuver{},
	&WritePerformance{},
}

// Session is one recorded run of the simulator
type Session struct {
	gorm.Model
	SessionName  string        `json:"sessionName" gorm:"size:200"`
	Tag          string        `json:"tag" gorm:"size:127"`
	StartTime    time.Time     `json:"sessionStart" gorm:"index:idx_session_start"`
	Speed        float64       `json:"speed" gorm:"default:0.3"`
	TickInterval time.Duration `json:"tickInterval"`
	Tolerance    float64       `json:"tolerance"`
	Seed         int64         `json:"seed"`
	Version      string        `json:"version" gorm:"size:64"`

	Bodies    []Body
	Maneuvers []Maneuver
}

func (*Session) TableName() string {
	return "sessions"
}

// Body is a simulated object registered in a session
type Body struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID   uint      `json:"sessionId" gorm:"index:idx_body_session_id"`
	Session     Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Name        string    `json:"name" gorm:"size:64"`
	JoinTime    time.Time `json:"joinTime"`
	JoinSimTime float64   `json:"joinSimTime"`
}

func (*Body) TableName() string {
	return "bodies"
}

// Elements holds orbital elements embedded in state rows
type Elements struct {
	Regime          string  `json:"regime" gorm:"size:16"`
	AngularMomentum float64 `json:"l"`
	Eccentricity    float64 `json:"e"`
	PeriapsisAngle  float64 `json:"theta0"`
	PeriapsisEpoch  float64 `json:"t0"`
	SemiMajorAxis   float64 `json:"a"`
}

// BodyState is a sampled position and velocity of a body
type BodyState struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"` // wall time when the state was recorded
	SessionID uint      `json:"sessionId" gorm:"index:idx_bodystate_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	BodyID    uint      `json:"bodyId" gorm:"index:idx_bodystate_body_id"`
	Body      Body      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BodyID;"`
	Tick      uint64    `json:"tick" gorm:"index:idx_bodystate_tick"`
	SimTime   float64   `json:"simTime"`

	Position geom.Point `json:"position"`
	VX       float64    `json:"vx"`
	VY       float64    `json:"vy"`
	Facing   float64    `json:"facing"` // degrees relative to the velocity heading
	Elements Elements   `json:"elements" gorm:"embedded;embeddedPrefix:el_"`
}

func (*BodyState) TableName() string {
	return "body_states"
}

// Maneuver is a recorded change to a body's orbit or facing
type Maneuver struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_maneuver_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	BodyID    uint      `json:"bodyId" gorm:"index:idx_maneuver_body_id"`
	Body      Body      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BodyID;"`
	Kind      string    `json:"kind" gorm:"size:16"`
	Tick      uint64    `json:"tick"`
	SimTime   float64   `json:"simTime"`
	DeltaV    float64   `json:"deltaV"`
	AngleDeg  float64   `json:"angleDeg"`

	Before datatypes.JSON  `json:"before"`
	After  datatypes.JSON  `json:"after"`
	Path   geom.LineString `json:"path"` // conic after the maneuver
}

func (*Maneuver) TableName() string {
	return "maneuvers"
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// WritePerformance is the model for storage writer metrics
type WritePerformance struct {
	Time                time.Time         `json:"time" gorm:"index:idx_time"`
	SessionID           uint              `json:"sessionId" gorm:"index:idx_writeperformance_session_id"`
	Session             Session           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*WritePerformance) TableName() string {
	return "write_performances"
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	BodyStates uint16 `json:"bodyStates"`
	Maneuvers  uint16 `json:"maneuvers"`
}
