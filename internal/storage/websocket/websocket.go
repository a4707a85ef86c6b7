// Package websocket streams a recording to a remote server over a WebSocket.
// Session start and end wait for the server's ack; everything else is
// fire-and-forget.
package websocket

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gravitysim/gravity/pkg/core"
	"github.com/gravitysim/gravity/pkg/streaming"
)

// DefaultAckTimeout bounds the wait for start_session and end_session acks.
const DefaultAckTimeout = 10 * time.Second

// Config holds WebSocket backend configuration.
type Config struct {
	URL        string
	Secret     string
	AckTimeout time.Duration
}

// Backend streams session data over WebSocket.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn       *connection
	cfg        Config
	nextBodyID atomic.Uint64
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped returns how many messages were discarded because the send queue was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope queues the message without waiting.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartSession sends the session and waits for the server ack. The message
// is kept for replay after a reconnect.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}
	b.conn.setStartMessage(data)
	b.nextBodyID.Store(0)
	return b.conn.sendAndWait(data, streaming.TypeStartSession, b.cfg.AckTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession() error {
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, b.cfg.AckTimeout)

	// cleared even when the ack never came
	b.conn.setStartMessage(nil)
	b.nextBodyID.Store(0)
	return err
}

// AddBody assigns an ID when the body has none and announces it.
func (b *Backend) AddBody(body *core.Body) error {
	if body.ID == 0 {
		body.ID = uint(b.nextBodyID.Add(1))
	}
	return b.sendEnvelope(streaming.TypeAddBody, body)
}

func (b *Backend) RecordBodyState(s *core.BodyState) error {
	return b.sendEnvelope(streaming.TypeBodyState, s)
}

func (b *Backend) RecordManeuver(m *core.Maneuver) error {
	return b.sendEnvelope(streaming.TypeManeuver, m)
}
