// Package core holds the recorded simulation records shared by storage
// backends, the streaming protocol and the simulator.
package core

import "time"

// Session represents one recorded run of the simulator.
type Session struct {
	ID        uint
	Name      string
	Tag       string
	StartTime time.Time
	// Speed is simulated milliseconds per real millisecond at session start.
	Speed        float64
	TickInterval time.Duration
	Tolerance    float64
	Seed         uint64
	Version      string
}

// UploadMetadata describes an exported session file for upload.
type UploadMetadata struct {
	SessionName string
	Tag         string
	// Duration is the simulated time covered by the recording.
	Duration float64
	Bodies   int
}
