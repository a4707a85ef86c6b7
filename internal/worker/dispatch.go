package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/gravitysim/gravity/internal/dispatcher"
	"github.com/gravitysim/gravity/internal/influx"
	"github.com/gravitysim/gravity/internal/parser"
	"github.com/gravitysim/gravity/internal/util"
)

// ErrNoMetrics is returned by :METRIC: when no metric writer is configured.
var ErrNoMetrics = errors.New("metrics writer not configured")

// ClockResult is returned by clock commands.
type ClockResult struct {
	Running bool    `json:"running"`
	Speed   float64 `json:"speed"`
}

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Maneuvers - sync so callers get the resulting elements
	d.Register(":THRUST:", m.handleThrust, dispatcher.Logged())
	d.Register(":TURN:", m.handleTurn, dispatcher.Logged())
	d.Register(":RESET:", m.handleReset, dispatcher.Logged())
	d.Register(":RANDOMIZE:", m.handleRandomize, dispatcher.Logged())
	d.Register(":BODY:ADD:", m.handleAddBody, dispatcher.Logged())

	// Clock
	d.Register(":PAUSE:", m.handlePause, dispatcher.Logged())
	d.Register(":START:", m.handleStart, dispatcher.Logged())
	d.Register(":STOP:", m.handleStop, dispatcher.Logged())
	d.Register(":SPEED:", m.handleSpeed, dispatcher.Logged())

	// Queries
	d.Register(":STATS:", m.handleStats)
	d.Register(":SNAPSHOT:", m.handleSnapshot)
	d.Register(":HELP:", func(dispatcher.Event) (any, error) { return d.Commands(), nil })

	// Sessions
	d.Register(":SESSION:START:", m.handleSessionStart, dispatcher.Logged())
	d.Register(":SESSION:END:", m.handleSessionEnd, dispatcher.Logged())

	// Custom metrics - buffered
	d.Register(":METRIC:", m.handleMetric, dispatcher.Buffered(1000), dispatcher.Logged())
}

// Execute splits a console line and dispatches it.
func Execute(d *dispatcher.Dispatcher, line string) (any, error) {
	cmd, args, err := parser.SplitLine(line)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(dispatcher.Event{Command: cmd, Args: args})
}

func (m *Manager) handleThrust(e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseThrust(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse thrust: %w", err)
	}
	return m.deps.Simulation.Thrust(cmd.Body, cmd.DeltaV, cmd.ExtraDeg)
}

func (m *Manager) handleTurn(e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseTurn(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse turn: %w", err)
	}
	return m.deps.Simulation.Turn(cmd.Body, cmd.Degrees)
}

func (m *Manager) handleReset(e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseState(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reset: %w", err)
	}
	return m.deps.Simulation.Reset(cmd.Body, cmd.X, cmd.Y, cmd.VX, cmd.VY)
}

func (m *Manager) handleRandomize(e dispatcher.Event) (any, error) {
	cmd := m.deps.Parser.ParseBody(e.Args)
	return m.deps.Simulation.Randomize(cmd.Body)
}

func (m *Manager) handleAddBody(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("failed to parse body: %w", parser.ErrMissingArgs)
	}
	cmd, err := m.deps.Parser.ParseState(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body: %w", err)
	}
	if err := m.deps.Simulation.AddBody(cmd.Body, cmd.X, cmd.Y, cmd.VX, cmd.VY); err != nil {
		return nil, err
	}
	return m.deps.Simulation.Stats(cmd.Body)
}

func (m *Manager) clockResult() ClockResult {
	snap := m.deps.Simulation.Snapshot()
	return ClockResult{Running: snap.Running, Speed: snap.Speed}
}

func (m *Manager) handlePause(dispatcher.Event) (any, error) {
	m.deps.Simulation.Pause()
	return m.clockResult(), nil
}

func (m *Manager) handleStart(dispatcher.Event) (any, error) {
	m.deps.Simulation.Start()
	return m.clockResult(), nil
}

func (m *Manager) handleStop(dispatcher.Event) (any, error) {
	m.deps.Simulation.Stop()
	return m.clockResult(), nil
}

func (m *Manager) handleSpeed(e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseSpeed(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse speed: %w", err)
	}

	sim := m.deps.Simulation
	switch cmd.Mode {
	case parser.SpeedUp:
		_, err = sim.SpeedUp()
	case parser.SpeedDown:
		_, err = sim.SlowDown()
	case parser.SpeedDefault:
		err = sim.ResetSpeed()
	default:
		err = sim.SetSpeed(cmd.Value)
	}
	if err != nil {
		return nil, err
	}
	return m.clockResult(), nil
}

func (m *Manager) handleStats(e dispatcher.Event) (any, error) {
	cmd := m.deps.Parser.ParseBody(e.Args)
	return m.deps.Simulation.Stats(cmd.Body)
}

func (m *Manager) handleSnapshot(dispatcher.Event) (any, error) {
	return m.deps.Simulation.Snapshot(), nil
}

func (m *Manager) handleSessionStart(e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseSession(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	sess, err := m.deps.Simulation.StartSession(cmd.Name, cmd.Tag)
	if err != nil {
		return nil, err
	}
	if m.deps.OnSessionStart != nil {
		m.deps.OnSessionStart(sess)
	}
	return sess, nil
}

func (m *Manager) handleSessionEnd(dispatcher.Event) (any, error) {
	if err := m.deps.Simulation.EndSession(); err != nil {
		return nil, err
	}
	if m.deps.OnSessionEnd != nil {
		m.deps.OnSessionEnd()
	}
	return "ended", nil
}

func (m *Manager) handleMetric(e dispatcher.Event) (any, error) {
	if m.deps.Metrics == nil {
		return nil, ErrNoMetrics
	}
	bucket, point, err := influx.ProcessMetricData(e.Args, util.FixEscapeQuotes, util.TrimQuotes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	point.SetTime(e.Timestamp)
	if err := m.deps.Metrics.WritePoint(context.Background(), bucket, point); err != nil {
		return nil, fmt.Errorf("failed to write metric: %w", err)
	}
	return nil, nil
}
