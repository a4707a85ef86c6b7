package monitor

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gravitysim/gravity/internal/database"
	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/internal/session"
	"github.com/gravitysim/gravity/internal/simulation"
	"github.com/gravitysim/gravity/internal/worker"
	"github.com/gravitysim/gravity/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct{}

func (fakeStats) QueueLengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{BodyStates: 12, Maneuvers: 2}
}

func (fakeStats) LastWriteDuration() time.Duration { return 1500 * time.Microsecond }

var _ worker.WriteStatsProvider = fakeStats{}

type fakeSim struct{}

func (fakeSim) Snapshot() simulation.Snapshot {
	return simulation.Snapshot{Tick: 9, Bodies: []simulation.BodySnapshot{{Name: "ship"}}}
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetProgramStatus(t *testing.T) {
	sess := session.NewContext()
	sess.SetSession(&core.Session{ID: 4, Name: "run"})

	s := NewService(Dependencies{
		Stats:      fakeStats{},
		Simulation: fakeSim{},
		Session:    sess,
		Logger:     discardLogger(),
		Now:        func() time.Time { return fixedNow },
	})

	output, perf := s.GetProgramStatus(true, true, true)
	require.Len(t, output, 3)

	var queues model.WriteQueueLengths
	require.NoError(t, json.Unmarshal([]byte(output[0]), &queues))
	assert.Equal(t, uint16(12), queues.BodyStates)
	assert.Equal(t, "1.5", output[1])

	var snap simulation.Snapshot
	require.NoError(t, json.Unmarshal([]byte(output[2]), &snap))
	assert.Equal(t, uint64(9), snap.Tick)

	assert.Equal(t, fixedNow, perf.Time)
	assert.Equal(t, uint(4), perf.SessionID)
	assert.Equal(t, float32(1.5), perf.LastWriteDurationMs)

	output, _ = s.GetProgramStatus(false, false, false)
	assert.Empty(t, output)
}

func TestGetProgramStatus_NoStats(t *testing.T) {
	s := NewService(Dependencies{Logger: discardLogger()})

	output, perf := s.GetProgramStatus(true, true, true)
	// no simulation, so no snapshot section
	assert.Len(t, output, 2)
	assert.Zero(t, perf.SessionID)
	assert.Equal(t, model.WriteQueueLengths{}, perf.WriteQueueLengths)
}

func TestStartStop_WritesStatusFile(t *testing.T) {
	dir := t.TempDir()
	s := NewService(Dependencies{
		Stats:      fakeStats{},
		Simulation: fakeSim{},
		Logger:     discardLogger(),
		StatusDir:  dir,
		Interval:   5 * time.Millisecond,
	})

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	// second Start is a no-op
	require.NoError(t, s.Start())

	path := filepath.Join(dir, StatusFileName)
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(b), `"bodyStates": 12`)
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestStart_BadStatusDir(t *testing.T) {
	s := NewService(Dependencies{
		Logger:    discardLogger(),
		StatusDir: filepath.Join(t.TempDir(), "missing", "dir"),
	})
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}

func TestWriteStatus_StoresPerformance(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zerolog.Nop()))

	row := model.Session{SessionName: "run"}
	require.NoError(t, db.Create(&row).Error)

	sess := session.NewContext()
	s := NewService(Dependencies{
		Stats:           fakeStats{},
		Session:         sess,
		Logger:          discardLogger(),
		DB:              db,
		IsDatabaseValid: func() bool { return true },
		Now:             func() time.Time { return fixedNow },
	})

	// inactive session writes nothing
	s.writeStatus(nil)
	var count int64
	require.NoError(t, db.Model(&model.WritePerformance{}).Count(&count).Error)
	assert.Zero(t, count)

	sess.SetSession(&core.Session{ID: row.ID, Name: "run"})
	s.writeStatus(nil)

	var perfs []model.WritePerformance
	require.NoError(t, db.Find(&perfs).Error)
	require.Len(t, perfs, 1)
	assert.Equal(t, row.ID, perfs[0].SessionID)
	assert.Equal(t, uint16(2), perfs[0].WriteQueueLengths.Maneuvers)
}

func TestValidateHypertables_RequiresTimescale(t *testing.T) {
	s := NewService(Dependencies{Logger: discardLogger()})
	assert.Error(t, s.ValidateHypertables(Hypertables))

	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	s = NewService(Dependencies{Logger: discardLogger(), DB: db})
	// SQLite has no create_hypertable
	assert.Error(t, s.ValidateHypertables(map[string][]string{"body_states": {"body_id"}}))
}
