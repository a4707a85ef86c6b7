package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gravitysim/gravity/internal/clock"
	"github.com/gravitysim/gravity/internal/dispatcher"
	"github.com/gravitysim/gravity/internal/logging"
	"github.com/gravitysim/gravity/internal/simulation"
	"github.com/gravitysim/gravity/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsoleApp(t *testing.T) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := clock.New(clock.WithInterval(time.Hour))
	require.NoError(t, err)
	sim, err := simulation.New(simulation.Config{Seed: 1}, simulation.Dependencies{Clock: c, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, sim.LoadDefaultScenario())
	t.Cleanup(sim.Close)

	d, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	worker.NewManager(worker.Dependencies{Simulation: sim, Logger: logger}, nil).RegisterHandlers(d)

	return &app{logger: logger, clock: c, sim: sim, dispatcher: d}
}

func TestConsole(t *testing.T) {
	a := newConsoleApp(t)

	in := strings.NewReader("stats target\n\nwarp 9\nquit\nstats ship\n")
	var out bytes.Buffer
	a.console(context.Background(), in, &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"l":`)
	assert.True(t, strings.HasPrefix(lines[1], "error: unknown command"), lines[1])
}

func TestConsole_StopsOnCancelledContext(t *testing.T) {
	a := newConsoleApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	a.console(ctx, strings.NewReader("stats\n"), &out)
	assert.Empty(t, out.String())
}
