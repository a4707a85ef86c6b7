// Package gormstore implements the storage.Backend interface on any GORM
// dialect, with internal queues and a background DB writer goroutine.
package gormstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gravitysim/gravity/internal/cache"
	"github.com/gravitysim/gravity/internal/database"
	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/internal/model/convert"
	"github.com/gravitysim/gravity/internal/queue"
	"github.com/gravitysim/gravity/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Defaults for the writer loop.
const (
	DefaultFlushInterval = 2 * time.Second
	DefaultQueueLimit    = 200_000
)

// ErrNoSession is returned when records arrive before StartSession.
var ErrNoSession = errors.New("no session started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	IDCache       *cache.IDCache
	Logger        *slog.Logger
	FlushInterval time.Duration
	QueueLimit    int
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	BodyStates *queue.Queue[model.BodyState]
	Maneuvers  *queue.Queue[model.Maneuver]
}

func newQueues(limit int) *queues {
	return &queues{
		BodyStates: queue.NewBounded[model.BodyState](limit),
		Maneuvers:  queue.NewBounded[model.Maneuver](limit),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	lastWrite atomic.Int64 // nanoseconds
	stopChan  chan struct{}
	wg        sync.WaitGroup
	writeMu   sync.Mutex // one flush at a time
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.IDCache == nil {
		deps.IDCache = cache.NewIDCache()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.QueueLimit <= 0 {
		deps.QueueLimit = DefaultQueueLimit
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(deps.QueueLimit),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gormstore: no database")
	}
	if err := database.Migrate(b.deps.DB, zerolog.Nop()); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			b.wg.Wait()
		}
	})
	return nil
}

// StartSession inserts the session row and stamps its ID on later records.
func (b *Backend) StartSession(s *core.Session) error {
	row := convert.CoreToSession(*s)
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}
	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	b.deps.IDCache.Reset()
	b.deps.Logger.Info("Session started", "sessionId", row.ID, "name", s.Name)
	return nil
}

// SetSessionID sets the current session ID for the DB writer (used by CLI tools).
func (b *Backend) SetSessionID(id uint) {
	b.sessionID.Store(uint64(id))
}

// EndSession flushes everything queued for the session.
func (b *Backend) EndSession() error {
	b.Flush()
	return nil
}

// AddBody inserts a body synchronously (not queued) because bodies are
// low-volume and later records need the assigned ID. Adding a name already
// registered in this session reuses its row.
func (b *Backend) AddBody(body *core.Body) error {
	sessionID := uint(b.sessionID.Load())
	if sessionID == 0 {
		return ErrNoSession
	}
	if id, ok := b.deps.IDCache.Get(body.Name); ok {
		body.ID = id
		body.SessionID = sessionID
		return nil
	}

	row := convert.CoreToBody(*body)
	row.ID = 0
	row.SessionID = sessionID
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert body %s: %w", body.Name, err)
	}
	body.ID = row.ID
	body.SessionID = sessionID
	b.deps.IDCache.Set(body.Name, row.ID)
	return nil
}

// RecordBodyState converts and queues a body state.
func (b *Backend) RecordBodyState(s *core.BodyState) error {
	b.queues.BodyStates.Push(convert.CoreToBodyState(*s))
	return nil
}

// RecordManeuver converts and queues a maneuver.
func (b *Backend) RecordManeuver(m *core.Maneuver) error {
	b.queues.Maneuvers.Push(convert.CoreToManeuver(*m))
	return nil
}

// QueueLengths reports pending writes.
func (b *Backend) QueueLengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{
		BodyStates: clampUint16(b.queues.BodyStates.Len()),
		Maneuvers:  clampUint16(b.queues.Maneuvers.Len()),
	}
}

// LastWriteDuration returns how long the last successful flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

func clampUint16(n int) uint16 {
	if n > 0xFFFF {
		return 0xFFFF
	}
	return uint16(n)
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back to the front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) (int, error) {
	if q.Empty() {
		return 0, nil
	}

	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating "+name, "error", err, "count", len(items))
		tx.Rollback()
		q.Requeue(items)
		return 0, err
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return 0, err
	}
	return len(items), nil
}

// Flush drains the queues into the database.
func (b *Backend) Flush() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	sessionID := uint(b.sessionID.Load())
	if sessionID == 0 {
		return
	}
	pending := b.QueueLengths()
	start := time.Now()

	stampStates := func(items []model.BodyState) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}
	stampManeuvers := func(items []model.Maneuver) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}

	log := b.deps.Logger
	nStates, errStates := writeQueue(b.deps.DB, b.queues.BodyStates, "body states", log, stampStates)
	nManeuvers, errManeuvers := writeQueue(b.deps.DB, b.queues.Maneuvers, "maneuvers", log, stampManeuvers)
	if nStates+nManeuvers == 0 || errStates != nil || errManeuvers != nil {
		return
	}

	elapsed := time.Since(start)
	b.lastWrite.Store(int64(elapsed))
	perf := model.WritePerformance{
		Time:                time.Now(),
		SessionID:           sessionID,
		WriteQueueLengths:   pending,
		LastWriteDurationMs: float32(elapsed.Microseconds()) / 1000,
	}
	if err := b.deps.DB.Create(&perf).Error; err != nil {
		log.Warn("Error recording write performance", "error", err)
	}
}

// writerLoop periodically drains queues into the DB.
func (b *Backend) writerLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.Flush()
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
