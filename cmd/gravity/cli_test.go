package main

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gravitysim/gravity/internal/database"
	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/internal/model/convert"
	"github.com/gravitysim/gravity/internal/storage/memory"
	"github.com/gravitysim/gravity/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

// seedRecording writes one session with a body, a state and a maneuver to
// a SQLite file and returns its path and session ID.
func seedRecording(t *testing.T) (string, uint) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.db")
	db, err := database.OpenSqlite(path)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zerolog.Nop()))

	sess := model.Session{
		SessionName: "transfer",
		Tag:         "hohmann",
		StartTime:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Speed:       0.3,
	}
	require.NoError(t, db.Create(&sess).Error)

	body := model.Body{SessionID: sess.ID, Name: "ship"}
	require.NoError(t, db.Omit(clause.Associations).Create(&body).Error)

	state := convert.CoreToBodyState(core.BodyState{
		BodyID:   body.ID,
		Tick:     10,
		SimTime:  1.5,
		X:        40,
		VY:       -0.15,
		Elements: core.Elements{Regime: "ellipse", Eccentricity: 0.1},
	})
	state.SessionID = sess.ID
	require.NoError(t, db.Omit(clause.Associations).Create(&state).Error)

	mv := convert.CoreToManeuver(core.Maneuver{
		BodyID: body.ID,
		Kind:   core.ManeuverThrust,
		Tick:   12,
		DeltaV: 0.01,
		Path:   [][2]float64{{40, 0}, {0, -40}, {-40, 0}},
	})
	mv.SessionID = sess.ID
	require.NoError(t, db.Omit(clause.Associations).Create(&mv).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path, sess.ID
}

func TestRunSessions(t *testing.T) {
	path, _ := seedRecording(t)

	var out bytes.Buffer
	require.NoError(t, runSessions([]string{path}, &out))
	assert.Contains(t, out.String(), "transfer")
	assert.Contains(t, out.String(), "hohmann")

	assert.ErrorIs(t, runSessions(nil, &out), errUsage)
}

func TestRunExport(t *testing.T) {
	path, id := seedRecording(t)
	outDir := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, runExport([]string{path, strconv.Itoa(int(id)), outDir}, &out))
	assert.Contains(t, out.String(), "1 bodies, 1 states, 1 maneuvers")

	f, err := os.Open(filepath.Join(outDir, "transfer_20240501_100000.json.gz"))
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export memory.SessionExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "transfer", export.SessionName)
	require.Len(t, export.Bodies, 1)
	assert.Equal(t, "ship", export.Bodies[0].Name)
	assert.Len(t, export.Bodies[0].States, 1)
	require.Len(t, export.Bodies[0].Maneuvers, 1)
	assert.Equal(t, core.ManeuverThrust, export.Bodies[0].Maneuvers[0].Kind)
	assert.Len(t, export.Bodies[0].Maneuvers[0].Path, 3)
}

func TestRunExport_Errors(t *testing.T) {
	path, _ := seedRecording(t)
	var out bytes.Buffer

	assert.ErrorIs(t, runExport([]string{path}, &out), errUsage)
	assert.ErrorIs(t, runExport([]string{path, "abc"}, &out), errUsage)
	assert.Error(t, runExport([]string{path, "999", t.TempDir()}, &out))
}
