// Package worker turns dispatched commands into simulator calls.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/internal/orbit"
	"github.com/gravitysim/gravity/internal/parser"
	"github.com/gravitysim/gravity/internal/simulation"
	"github.com/gravitysim/gravity/internal/storage"
	"github.com/gravitysim/gravity/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Simulation is the part of the simulator that commands drive.
type Simulation interface {
	AddBody(name string, x, y, vx, vy float64) error
	Thrust(name string, deltaV, extraDeg float64) (*core.Maneuver, error)
	Turn(name string, deltaDeg float64) (*core.Maneuver, error)
	Reset(name string, x, y, vx, vy float64) (*core.Maneuver, error)
	Randomize(name string) (*core.Maneuver, error)
	Start()
	Stop()
	Pause() bool
	SetSpeed(v float64) error
	SpeedUp() (float64, error)
	SlowDown() (float64, error)
	ResetSpeed() error
	Stats(name string) (orbit.Stats, error)
	Snapshot() simulation.Snapshot
	StartSession(name, tag string) (*core.Session, error)
	EndSession() error
}

var _ Simulation = (*simulation.Simulator)(nil)

// MetricWriter accepts custom metric points.
type MetricWriter interface {
	WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Simulation Simulation
	Parser     *parser.Parser
	Metrics    MetricWriter
	Logger     *slog.Logger

	// OnSessionStart and OnSessionEnd run after the simulator has started
	// or ended a session.
	OnSessionStart func(*core.Session)
	OnSessionEnd   func()
}

// Manager owns the command handlers.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger, "")
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// WriteStatsProvider is an optional interface that backends can implement
// to expose their write queues for monitoring.
type WriteStatsProvider interface {
	QueueLengths() model.WriteQueueLengths
	LastWriteDuration() time.Duration
}

// LastWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) LastWriteDuration() time.Duration {
	if p, ok := m.backend.(WriteStatsProvider); ok {
		return p.LastWriteDuration()
	}
	return 0
}

// QueueLengths returns the backend's pending writes, or zeros.
func (m *Manager) QueueLengths() model.WriteQueueLengths {
	if p, ok := m.backend.(WriteStatsProvider); ok {
		return p.QueueLengths()
	}
	return model.WriteQueueLengths{}
}
