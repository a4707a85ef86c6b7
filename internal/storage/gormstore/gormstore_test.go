package gormstore

import (
	"math"
	"testing"
	"time"

	"github.com/gravitysim/gravity/internal/database"
	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/internal/model/convert"
	"github.com/gravitysim/gravity/internal/storage"
	"github.com/gravitysim/gravity/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	return b
}

func startSession(t *testing.T, b *Backend) *core.Session {
	t.Helper()
	s := &core.Session{
		Name:         "gravity",
		StartTime:    time.Now(),
		Speed:        0.3,
		TickInterval: 18 * time.Millisecond,
		Seed:         7,
	}
	require.NoError(t, b.StartSession(s))
	return s
}

func TestNew_Defaults(t *testing.T) {
	b := New(Dependencies{})
	assert.Equal(t, DefaultFlushInterval, b.deps.FlushInterval)
	assert.Equal(t, DefaultQueueLimit, b.deps.QueueLimit)
	assert.NotNil(t, b.deps.IDCache)
	assert.Error(t, b.Init())
}

func TestStartSession_AssignsID(t *testing.T) {
	b := newTestBackend(t)
	s := startSession(t, b)

	assert.NotZero(t, s.ID)

	var row model.Session
	require.NoError(t, b.DB().First(&row, s.ID).Error)
	assert.Equal(t, "gravity", row.SessionName)
	assert.Equal(t, int64(7), row.Seed)
}

func TestAddBody_BeforeSession(t *testing.T) {
	b := newTestBackend(t)
	assert.ErrorIs(t, b.AddBody(&core.Body{Name: "ship"}), ErrNoSession)
}

func TestAddBody_ReusesName(t *testing.T) {
	b := newTestBackend(t)
	s := startSession(t, b)

	ship := &core.Body{Name: "ship"}
	require.NoError(t, b.AddBody(ship))
	assert.NotZero(t, ship.ID)
	assert.Equal(t, s.ID, ship.SessionID)

	again := &core.Body{Name: "ship"}
	require.NoError(t, b.AddBody(again))
	assert.Equal(t, ship.ID, again.ID)

	var count int64
	require.NoError(t, b.DB().Model(&model.Body{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecord_QueuesUntilFlush(t *testing.T) {
	b := newTestBackend(t)
	startSession(t, b)
	ship := &core.Body{Name: "ship"}
	require.NoError(t, b.AddBody(ship))

	require.NoError(t, b.RecordBodyState(&core.BodyState{BodyID: ship.ID, Tick: 1, X: 40, VY: -0.15}))
	require.NoError(t, b.RecordBodyState(&core.BodyState{BodyID: ship.ID, Tick: 2, X: 39.9, VY: -0.15}))
	require.NoError(t, b.RecordManeuver(&core.Maneuver{
		BodyID: ship.ID,
		Kind:   core.ManeuverThrust,
		DeltaV: 0.01,
		After:  core.Elements{Regime: "ellipse", Eccentricity: 0.2},
		Path:   [][2]float64{{40, 0}, {0, 30}, {-20, 0}},
	}))

	lengths := b.QueueLengths()
	assert.Equal(t, uint16(2), lengths.BodyStates)
	assert.Equal(t, uint16(1), lengths.Maneuvers)

	require.NoError(t, b.EndSession())
	assert.Equal(t, model.WriteQueueLengths{}, b.QueueLengths())

	var states []model.BodyState
	require.NoError(t, b.DB().Order("tick").Find(&states).Error)
	require.Len(t, states, 2)
	assert.Equal(t, ship.SessionID, states[0].SessionID)
	got := convert.BodyStateToCore(states[1])
	assert.Equal(t, 39.9, got.X)

	var maneuvers []model.Maneuver
	require.NoError(t, b.DB().Find(&maneuvers).Error)
	require.Len(t, maneuvers, 1)
	m := convert.ManeuverToCore(maneuvers[0])
	assert.Equal(t, 0.2, m.After.Eccentricity)
	assert.Len(t, m.Path, 3)

	var perf []model.WritePerformance
	require.NoError(t, b.DB().Find(&perf).Error)
	require.Len(t, perf, 1)
	assert.Equal(t, uint16(2), perf[0].WriteQueueLengths.BodyStates)
	assert.Greater(t, b.LastWriteDuration(), time.Duration(0))
}

func TestFlush_NoSessionKeepsQueue(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.RecordBodyState(&core.BodyState{BodyID: 1}))

	b.Flush()
	assert.Equal(t, uint16(1), b.QueueLengths().BodyStates)
}

func TestClose_FlushesPending(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	startSession(t, b)
	ship := &core.Body{Name: "ship"}
	require.NoError(t, b.AddBody(ship))
	require.NoError(t, b.RecordBodyState(&core.BodyState{BodyID: ship.ID}))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.BodyState{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWriterLoop_Flushes(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	startSession(t, b)
	ship := &core.Body{Name: "ship"}
	require.NoError(t, b.AddBody(ship))
	require.NoError(t, b.RecordBodyState(&core.BodyState{BodyID: ship.ID}))

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&model.BodyState{}).Count(&count)
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClampUint16(t *testing.T) {
	assert.Equal(t, uint16(5), clampUint16(5))
	assert.Equal(t, uint16(math.MaxUint16), clampUint16(1<<20))
}
