package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gravitysim/gravity/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "6543")
	viper.Set("db.username", "sim")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "orbits")

	assert.Equal(t, "host=db.internal port=6543 user=sim password=pw dbname=orbits sslmode=disable", PostgresDSN())
}

func TestOpenSqlite_InMemoryIsolated(t *testing.T) {
	a, err := OpenSqlite("")
	require.NoError(t, err)
	b, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(a, zerolog.Nop()))
	require.NoError(t, a.Create(&model.Session{SessionName: "one"}).Error)

	assert.False(t, b.Migrator().HasTable(&model.Session{}))
}

func TestMigrateAndDump(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db, zerolog.Nop()))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}

	require.NoError(t, db.Create(&model.Session{SessionName: "dumped", StartTime: time.Now()}).Error)

	dir := t.TempDir()
	path := filepath.Join(dir, "session.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// a second dump replaces the file
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	disk, err := OpenSqlite(path)
	require.NoError(t, err)
	var s model.Session
	require.NoError(t, disk.First(&s).Error)
	assert.Equal(t, "dumped", s.SessionName)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.db"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c.db"), 0755))

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.db")}, paths)

	_, err = GetBackupDBPaths(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestManager_DumpWithoutPath(t *testing.T) {
	m := NewManager(zerolog.Nop())
	db, err := OpenSqlite("")
	require.NoError(t, err)
	m.DB = db
	require.NoError(t, m.Setup())
	assert.Error(t, m.DumpMemoryToDisk())
	assert.NoError(t, m.Close())
}
