// Package memory keeps a session in memory and exports it as JSON when the
// session ends.
package memory

import (
	"sync"

	"github.com/gravitysim/gravity/internal/config"
	"github.com/gravitysim/gravity/pkg/core"
)

// BodyRecord groups a body with all its time-series data
type BodyRecord struct {
	Body      core.Body
	States    []core.BodyState
	Maneuvers []core.Maneuver
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	bodies map[uint]*BodyRecord // keyed by body ID
	order  []uint               // registration order

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		bodies: make(map[uint]*BodyRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(session *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = session
	b.bodies = make(map[uint]*BodyRecord)
	b.order = nil
	b.idCounter = 0
	b.lastExportPath = ""

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	return b.exportJSON()
}

// AddBody registers a new body. A zero ID is replaced with the next free one.
func (b *Backend) AddBody(body *core.Body) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if body.ID == 0 {
		b.idCounter++
		body.ID = b.idCounter
	} else if body.ID > b.idCounter {
		b.idCounter = body.ID
	}
	if b.session != nil {
		body.SessionID = b.session.ID
	}

	if _, ok := b.bodies[body.ID]; !ok {
		b.order = append(b.order, body.ID)
	}
	b.bodies[body.ID] = &BodyRecord{
		Body:   *body,
		States: make([]core.BodyState, 0),
	}
	return nil
}

// GetBodyByName looks up a body by its name
func (b *Backend) GetBodyByName(name string) (*core.Body, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, id := range b.order {
		if record := b.bodies[id]; record.Body.Name == name {
			return &record.Body, true
		}
	}
	return nil, false
}

// RecordBodyState records a body state sample
func (b *Backend) RecordBodyState(s *core.BodyState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.bodies[s.BodyID]; ok {
		record.States = append(record.States, *s)
	}
	return nil // silently ignore if body not found
}

// RecordManeuver records a maneuver
func (b *Backend) RecordManeuver(m *core.Maneuver) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.bodies[m.BodyID]; ok {
		record.Maneuvers = append(record.Maneuvers, *m)
	}
	return nil
}

// GetExportedFilePath returns the path of the last export, or "" before one.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the current session for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	meta := core.UploadMetadata{Bodies: len(b.bodies)}
	if b.session != nil {
		meta.SessionName = b.session.Name
		meta.Tag = b.session.Tag
	}
	first, last, ok := b.simTimeRange()
	if ok {
		meta.Duration = last - first
	}
	return meta
}

// simTimeRange must be called with mu held.
func (b *Backend) simTimeRange() (first, last float64, ok bool) {
	for _, record := range b.bodies {
		for _, s := range record.States {
			if !ok || s.SimTime < first {
				first = s.SimTime
			}
			if !ok || s.SimTime > last {
				last = s.SimTime
			}
			ok = true
		}
	}
	return first, last, ok
}
