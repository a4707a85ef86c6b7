// Package monitor periodically writes the recorder's status to a file and,
// when a database is available, to the write_performances table.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/internal/session"
	"github.com/gravitysim/gravity/internal/simulation"
	"github.com/gravitysim/gravity/internal/worker"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusFileName is the file written in Dependencies.StatusDir.
const StatusFileName = "status.txt"

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = time.Second

// Snapshotter provides the simulation summary included in the status.
type Snapshotter interface {
	Snapshot() simulation.Snapshot
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Stats      worker.WriteStatsProvider
	Simulation Snapshotter
	Session    *session.Context
	Logger     *slog.Logger
	StatusDir  string
	Interval   time.Duration

	// DB and IsDatabaseValid are optional; performance rows are only
	// written when both are set and IsDatabaseValid returns true.
	DB              *gorm.DB
	IsDatabaseValid func() bool

	// Now is replaced in tests
	Now func() time.Time
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func marshalSection(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(b)
}

// GetProgramStatus returns the selected status sections and the
// performance row describing them.
func (s *Service) GetProgramStatus(
	writeQueues bool,
	lastWrite bool,
	snapshot bool,
) (output []string, perf model.WritePerformance) {
	var queues model.WriteQueueLengths
	var lastWriteMs float32
	if s.deps.Stats != nil {
		queues = s.deps.Stats.QueueLengths()
		lastWriteMs = float32(s.deps.Stats.LastWriteDuration().Microseconds()) / 1000
	}

	perf = model.WritePerformance{
		Time:                s.deps.Now(),
		SessionID:           s.deps.Session.GetSession().ID,
		WriteQueueLengths:   queues,
		LastWriteDurationMs: lastWriteMs,
	}

	if writeQueues {
		output = append(output, marshalSection(queues))
	}
	if lastWrite {
		output = append(output, marshalSection(perf.LastWriteDurationMs))
	}
	if snapshot && s.deps.Simulation != nil {
		output = append(output, marshalSection(s.deps.Simulation.Snapshot()))
	}

	return output, perf
}

// writeStatus rewrites f with the current status and stores the
// performance row.
func (s *Service) writeStatus(f *os.File) {
	statusStr, perf := s.GetProgramStatus(true, true, true)

	if f != nil {
		if err := f.Truncate(0); err == nil {
			_, _ = f.Seek(0, 0)
			_, _ = f.WriteString(strings.Join(statusStr, "\n") + "\n")
		}
	}

	if !s.deps.Session.Active() || perf.SessionID == 0 {
		return
	}
	if s.deps.DB != nil && s.deps.IsDatabaseValid != nil && s.deps.IsDatabaseValid() {
		if err := s.deps.DB.Omit(clause.Associations).Create(&perf).Error; err != nil {
			s.deps.Logger.Error("Error writing performance row", "error", err)
		}
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusDir != "" {
		f, err := os.Create(filepath.Join(s.deps.StatusDir, StatusFileName))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to create status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	stop, done := s.stopChan, s.doneChan
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.writeStatus(statusFile)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()
	<-done
}

// ValidateHypertables turns the given tables into TimescaleDB hypertables
// with compression segmented by the listed columns.
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	if s.deps.DB == nil {
		return fmt.Errorf("no database")
	}
	log := s.deps.Logger.With("function", "validateHypertables")

	for table, segmentBy := range tables {
		var existing []map[string]any
		s.deps.DB.Raw(`SELECT hypertable_name FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).
			Scan(&existing)
		if len(existing) > 0 {
			log.Info("Table is already configured", "table", table)
			continue
		}

		err := s.deps.DB.Exec(fmt.Sprintf(
			`SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true)`,
			table)).Error
		if err != nil {
			log.Error("Failed to create hypertable", "table", table, "error", err)
			return err
		}
		log.Info("Created hypertable", "table", table)

		err = s.deps.DB.Exec(fmt.Sprintf(
			`ALTER TABLE %s SET (timescaledb.compress, timescaledb.compress_segmentby = ?)`, table),
			strings.Join(segmentBy, ","),
		).Error
		if err != nil {
			log.Error("Failed to enable compression", "table", table, "error", err)
			return err
		}

		err = s.deps.DB.Exec(fmt.Sprintf(
			`SELECT add_compression_policy('%s', compress_after => interval '14 day')`, table)).Error
		if err != nil {
			log.Error("Failed to set compress_after", "table", table, "error", err)
			return err
		}
		log.Info("Enabled hypertable compression", "table", table)
	}
	return nil
}

// Hypertables are the time-series tables worth converting on TimescaleDB.
var Hypertables = map[string][]string{
	"body_states":        {"body_id"},
	"write_performances": {"session_id"},
}
