// Package storage defines the recording backends' common interface.
package storage

import "github.com/gravitysim/gravity/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.Session) error
	EndSession() error

	// Body registration (assigns ID to the passed pointer)
	AddBody(b *core.Body) error

	// Recording
	RecordBodyState(s *core.BodyState) error
	RecordManeuver(m *core.Maneuver) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to a recording server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
