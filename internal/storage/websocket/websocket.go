// Package websocket streams voyage data over a WebSocket to a live map
// frontend. It implements storage.Backend but not storage.Exportable.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/meridianops/voyagesim/pkg/core"
	"github.com/meridianops/voyagesim/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams voyage events to the configured server.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		conn: newConnection(log),
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

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// sendEnvelopeAndWait marshals the payload and waits for a server ack.
func (b *Backend) sendEnvelopeAndWait(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, msgType, ackTimeout)
}

// StartVoyage sends the voyage metadata and waits for server ack.
func (b *Backend) StartVoyage(meta core.VoyageMeta) error {
	data, err := marshalEnvelope(streaming.TypeStartVoyage, streaming.StartVoyagePayload{Voyage: &meta})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.setStartMessage(data)

	return b.conn.sendAndWait(data, streaming.TypeStartVoyage, ackTimeout)
}

// EndVoyage sends end_voyage and waits for server ack.
func (b *Backend) EndVoyage() error {
	err := b.sendEnvelopeAndWait(streaming.TypeEndVoyage, nil)

	// Clear cached state regardless of error.
	b.conn.clearStartMessage()

	return err
}

func (b *Backend) RecordPosition(step uint64, p core.PositionUpdate) error {
	return b.sendEnvelope(streaming.TypePositionUpdate, streaming.SteppedPayload[core.PositionUpdate]{Step: step, Body: p})
}

func (b *Backend) RecordPhaseChange(step uint64, c core.PhaseChange) error {
	return b.sendEnvelope(streaming.TypePhaseChanged, streaming.SteppedPayload[core.PhaseChange]{Step: step, Body: c})
}

func (b *Backend) RecordLogLine(step uint64, l core.LogLine) error {
	return b.sendEnvelope(streaming.TypeLogLine, streaming.SteppedPayload[core.LogLine]{Step: step, Body: l})
}

func (b *Backend) RecordDeviation(step uint64, d core.DeviationRecord) error {
	return b.sendEnvelope(streaming.TypeDeviationDetected, streaming.SteppedPayload[core.DeviationRecord]{Step: step, Body: d})
}
