// Package postgres implements the storage.Backend interface on PostgreSQL.
// When Postgres is unreachable it falls back to an in-memory SQLite database
// that is dumped to disk at the end of each session.
package postgres

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gravitysim/gravity/internal/cache"
	"github.com/gravitysim/gravity/internal/database"
	"github.com/gravitysim/gravity/internal/storage/gormstore"
	"github.com/gravitysim/gravity/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	// DB is used as-is when set; otherwise Init connects with a database.Manager.
	DB       *gorm.DB
	IDCache  *cache.IDCache
	Logger   *slog.Logger
	DBLogger zerolog.Logger
	// FallbackDir receives SQLite dumps when Postgres could not be reached.
	FallbackDir   string
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM/PostgreSQL with queue-based batch writes.
type Backend struct {
	*gormstore.Backend
	deps    Dependencies
	manager *database.Manager
	dbReady bool
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init connects if needed, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		b.manager = database.NewManager(b.deps.DBLogger)
		if err := b.manager.Connect(); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := b.manager.Setup(); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
		b.deps.DB = b.manager.DB
	}

	b.Backend = gormstore.New(gormstore.Dependencies{
		DB:            b.deps.DB,
		IDCache:       b.deps.IDCache,
		Logger:        b.deps.Logger,
		FlushInterval: b.deps.FlushInterval,
	})
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.dbReady = true
	return nil
}

// Ready reports whether Init completed.
func (b *Backend) Ready() bool {
	return b.dbReady
}

// IsLocalFallback reports whether records go to the SQLite fallback.
func (b *Backend) IsLocalFallback() bool {
	return b.manager != nil && b.manager.ShouldSaveLocal
}

// StartSession records the session and, on the SQLite fallback, picks the
// file the session will be dumped to.
func (b *Backend) StartSession(s *core.Session) error {
	if !b.dbReady {
		return fmt.Errorf("postgres backend not initialized")
	}
	if err := b.Backend.StartSession(s); err != nil {
		return err
	}
	if b.IsLocalFallback() {
		dir := b.deps.FallbackDir
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create fallback directory: %w", err)
		}
		b.manager.SqliteFilePath = filepath.Join(dir,
			fmt.Sprintf("%s_%d.db", s.StartTime.Format("20060102_150405"), s.ID))
	}
	return nil
}

// EndSession flushes queued records, dumping to disk on the SQLite fallback.
func (b *Backend) EndSession() error {
	if !b.dbReady {
		return nil
	}
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	if b.IsLocalFallback() {
		return b.manager.DumpMemoryToDisk()
	}
	return nil
}

// Close stops the writer and closes a connection opened by Init.
func (b *Backend) Close() error {
	if b.Backend != nil {
		if err := b.Backend.Close(); err != nil {
			return err
		}
	}
	if b.manager != nil {
		return b.manager.Close()
	}
	return nil
}
