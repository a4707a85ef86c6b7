package postgres

import (
	"os"
	"testing"
	"time"

	"github.com/gravitysim/gravity/internal/database"
	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/internal/storage"
	"github.com/gravitysim/gravity/pkg/core"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew(t *testing.T) {
	b := New(Dependencies{})
	require.NotNil(t, b)
	assert.False(t, b.Ready())
	assert.False(t, b.IsLocalFallback())
	assert.NoError(t, b.Close())
}

func TestStartSession_BeforeInit(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.StartSession(&core.Session{Name: "early"}))
	assert.NoError(t, b.EndSession())
}

func TestInitClose_InjectedDB(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	assert.True(t, b.Ready())
	assert.False(t, b.IsLocalFallback())

	s := &core.Session{Name: "injected", StartTime: time.Now()}
	require.NoError(t, b.StartSession(s))
	ship := &core.Body{Name: "ship"}
	require.NoError(t, b.AddBody(ship))
	require.NoError(t, b.RecordBodyState(&core.BodyState{BodyID: ship.ID, Tick: 3}))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.BodyState{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInit_FallsBackToSqlite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "nobody")
	viper.Set("db.password", "none")
	viper.Set("db.database", "gravity")

	dir := t.TempDir()
	b := New(Dependencies{DBLogger: zerolog.Nop(), FallbackDir: dir, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	assert.True(t, b.IsLocalFallback())

	s := &core.Session{Name: "offline", StartTime: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)}
	require.NoError(t, b.StartSession(s))
	require.NoError(t, b.EndSession())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "20260506_070809")
}
