// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are creating the
// in-memory DB and dumping it to disk.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gravitysim/gravity/internal/cache"
	"github.com/gravitysim/gravity/internal/database"
	"github.com/gravitysim/gravity/internal/storage/gormstore"
	"github.com/gravitysim/gravity/pkg/core"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	// DumpPath is the VACUUM INTO target. When empty, a file named after the
	// session is created in OutputDir on StartSession.
	DumpPath  string
	OutputDir string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstore.Backend
	db  *gorm.DB
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	dumpPath string
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a new SQLite storage backend.
func New(cfg Config, ids *cache.IDCache, logger *slog.Logger) (*Backend, error) {
	db, err := database.OpenSqlite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	gormBackend := gormstore.New(gormstore.Dependencies{
		DB:      db,
		IDCache: ids,
		Logger:  logger,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logger,
		dumpPath: cfg.DumpPath,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// StartSession records the session and picks the dump file for it.
func (b *Backend) StartSession(s *core.Session) error {
	if err := b.Backend.StartSession(s); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg.DumpPath == "" && b.cfg.OutputDir != "" {
		if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		b.dumpPath = filepath.Join(b.cfg.OutputDir, dumpFileName(s))
	}
	return nil
}

// EndSession flushes pending writes and dumps the database to disk.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.DumpPath() == "" {
		return nil
	}
	return b.Dump()
}

// DumpPath returns the current dump target, empty before a session starts.
func (b *Backend) DumpPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dumpPath
}

// GetExportedFilePath implements storage.Uploadable.
func (b *Backend) GetExportedFilePath() string {
	return b.DumpPath()
}

// Dump writes a point-in-time copy of the database to DumpPath.
func (b *Backend) Dump() error {
	path := b.DumpPath()
	if path == "" {
		return fmt.Errorf("no dump path for sqlite backend")
	}
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, path); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", path, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if b.DumpPath() == "" {
				continue
			}
			b.Flush()
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}

func dumpFileName(s *core.Session) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(s.Name)
	if name == "" {
		name = "session"
	}
	return fmt.Sprintf("%s_%s.db", name, s.StartTime.Format("20060102_150405"))
}
