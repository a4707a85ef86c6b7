package streaming

import (
	"encoding/json"

	"github.com/gravitysim/gravity/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeAddBody      = "add_body"
	TypeBodyState    = "body_state"
	TypeManeuver     = "maneuver"
	TypeTick         = "tick"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload carries the session being recorded.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// TickPayload is a per-tick summary of every body.
type TickPayload struct {
	Tick    uint64           `json:"tick"`
	SimTime float64          `json:"simTime"`
	Bodies  []core.BodyState `json:"bodies"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
