package memory

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gravitysim/gravity/internal/config"
	"github.com/gravitysim/gravity/internal/storage"
	"github.com/gravitysim/gravity/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Uploadable interface
var _ storage.Uploadable = (*Backend)(nil)

func testSession() *core.Session {
	return &core.Session{
		ID:           1,
		Name:         "Test Session",
		Tag:          "sandbox",
		StartTime:    time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Speed:        0.3,
		TickInterval: 18 * time.Millisecond,
		Version:      "1.0.0",
	}
}

func TestNew(t *testing.T) {
	cfg := config.MemoryConfig{
		OutputDir:      "/tmp/test",
		CompressOutput: true,
	}
	b := New(cfg)

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.OutputDir != "/tmp/test" {
		t.Errorf("expected OutputDir=/tmp/test, got %s", b.cfg.OutputDir)
	}
	if b.bodies == nil {
		t.Error("bodies map not initialized")
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestStartSessionResets(t *testing.T) {
	b := New(config.MemoryConfig{})

	_ = b.AddBody(&core.Body{Name: "old"})

	session := testSession()
	if err := b.StartSession(session); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if b.session != session {
		t.Error("session not set")
	}
	if len(b.bodies) != 0 || len(b.order) != 0 {
		t.Error("bodies not reset")
	}
	if b.idCounter != 0 {
		t.Errorf("idCounter not reset, got %d", b.idCounter)
	}
}

func TestAddBody_AssignsIDs(t *testing.T) {
	b := New(config.MemoryConfig{})
	_ = b.StartSession(testSession())

	target := &core.Body{Name: "target"}
	ship := &core.Body{Name: "ship"}
	if err := b.AddBody(target); err != nil {
		t.Fatalf("AddBody failed: %v", err)
	}
	if err := b.AddBody(ship); err != nil {
		t.Fatalf("AddBody failed: %v", err)
	}

	if target.ID != 1 || ship.ID != 2 {
		t.Errorf("expected IDs 1 and 2, got %d and %d", target.ID, ship.ID)
	}
	if ship.SessionID != 1 {
		t.Errorf("expected SessionID=1, got %d", ship.SessionID)
	}

	found, ok := b.GetBodyByName("ship")
	if !ok {
		t.Fatal("ship not found")
	}
	if found.ID != 2 {
		t.Errorf("expected ship ID=2, got %d", found.ID)
	}
	if _, ok := b.GetBodyByName("missing"); ok {
		t.Error("expected not found for unknown name")
	}
}

func TestAddBody_KeepsCallerID(t *testing.T) {
	b := New(config.MemoryConfig{})

	_ = b.AddBody(&core.Body{ID: 10, Name: "a"})
	next := &core.Body{Name: "b"}
	_ = b.AddBody(next)

	if next.ID != 11 {
		t.Errorf("expected next ID=11, got %d", next.ID)
	}
}

func TestRecordBodyState(t *testing.T) {
	b := New(config.MemoryConfig{})
	body := &core.Body{Name: "ship"}
	_ = b.AddBody(body)

	for i := 0; i < 3; i++ {
		if err := b.RecordBodyState(&core.BodyState{BodyID: body.ID, Tick: uint64(i)}); err != nil {
			t.Fatalf("RecordBodyState failed: %v", err)
		}
	}
	// unknown body is ignored
	if err := b.RecordBodyState(&core.BodyState{BodyID: 99}); err != nil {
		t.Fatalf("RecordBodyState failed: %v", err)
	}

	if got := len(b.bodies[body.ID].States); got != 3 {
		t.Errorf("expected 3 states, got %d", got)
	}
}

func TestRecordManeuver(t *testing.T) {
	b := New(config.MemoryConfig{})
	body := &core.Body{Name: "ship"}
	_ = b.AddBody(body)

	_ = b.RecordManeuver(&core.Maneuver{BodyID: body.ID, Kind: core.ManeuverThrust, DeltaV: 0.01})
	_ = b.RecordManeuver(&core.Maneuver{BodyID: 42, Kind: core.ManeuverTurn})

	ms := b.bodies[body.ID].Maneuvers
	if len(ms) != 1 {
		t.Fatalf("expected 1 maneuver, got %d", len(ms))
	}
	if ms[0].Kind != core.ManeuverThrust {
		t.Errorf("expected thrust, got %s", ms[0].Kind)
	}
}

func TestConcurrentAccess(t *testing.T) {
	b := New(config.MemoryConfig{})
	body := &core.Body{Name: "ship"}
	_ = b.AddBody(body)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = b.RecordBodyState(&core.BodyState{BodyID: body.ID, Tick: uint64(i*100 + j)})
				_, _ = b.GetBodyByName("ship")
			}
		}(i)
	}
	wg.Wait()

	if got := len(b.bodies[body.ID].States); got != 1000 {
		t.Errorf("expected 1000 states, got %d", got)
	}
}

func TestGetExportedFilePath(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir(), CompressOutput: true})

	if path := b.GetExportedFilePath(); path != "" {
		t.Errorf("expected empty path before export, got %s", path)
	}
}

func TestGetExportedFilePath_AfterExport(t *testing.T) {
	tmpDir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: tmpDir, CompressOutput: true})

	_ = b.StartSession(testSession())
	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	path := b.GetExportedFilePath()
	if !strings.HasPrefix(path, tmpDir) {
		t.Errorf("expected path to start with %s, got %s", tmpDir, path)
	}
	if !strings.HasSuffix(path, ".json.gz") {
		t.Errorf("expected path to end with .json.gz, got %s", path)
	}

	// a new session clears the previous export
	_ = b.StartSession(testSession())
	if path := b.GetExportedFilePath(); path != "" {
		t.Errorf("expected empty path after StartSession, got %s", path)
	}
}

func TestGetExportMetadata(t *testing.T) {
	b := New(config.MemoryConfig{})
	_ = b.StartSession(testSession())

	ship := &core.Body{Name: "ship"}
	target := &core.Body{Name: "target"}
	_ = b.AddBody(ship)
	_ = b.AddBody(target)
	_ = b.RecordBodyState(&core.BodyState{BodyID: ship.ID, SimTime: 5})
	_ = b.RecordBodyState(&core.BodyState{BodyID: target.ID, SimTime: 125})

	meta := b.GetExportMetadata()
	if meta.SessionName != "Test Session" {
		t.Errorf("expected SessionName=Test Session, got %s", meta.SessionName)
	}
	if meta.Tag != "sandbox" {
		t.Errorf("expected Tag=sandbox, got %s", meta.Tag)
	}
	if meta.Duration != 120 {
		t.Errorf("expected Duration=120, got %v", meta.Duration)
	}
	if meta.Bodies != 2 {
		t.Errorf("expected Bodies=2, got %d", meta.Bodies)
	}
}

func TestEndSessionWithoutStartSession(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	if err := b.EndSession(); err != nil {
		t.Errorf("EndSession without session should be a no-op, got %v", err)
	}
	if meta := b.GetExportMetadata(); meta.SessionName != "" || meta.Duration != 0 {
		t.Errorf("expected empty metadata, got %+v", meta)
	}
}
