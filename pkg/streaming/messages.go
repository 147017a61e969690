package streaming

import (
	"encoding/json"

	"github.com/meridianops/voyagesim/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartVoyage       = "start_voyage"
	TypeEndVoyage         = "end_voyage"
	TypePositionUpdate    = "position_update"
	TypePhaseChanged      = "phase_changed"
	TypeLogLine           = "log_line"
	TypeDeviationDetected = "deviation_detected"
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

// StartVoyagePayload carries the voyage metadata.
type StartVoyagePayload struct {
	Voyage *core.VoyageMeta `json:"voyage"`
}

// SteppedPayload attaches the logical step to an event body.
type SteppedPayload[T any] struct {
	Step uint64 `json:"step"`
	Body T      `json:"body"`
}
