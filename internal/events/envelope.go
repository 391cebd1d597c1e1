package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the unit pushed over live connections and through the
// Redis bridge.
type Envelope struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// BridgeFrame is the Redis wire form of an envelope plus its target.
type BridgeFrame struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Origin     string          `json:"origin"`
	TargetUser uuid.NullUUID   `json:"targetUser,omitempty"`
}

// New builds an envelope, marshalling the payload. Marshal failures are
// impossible for the payload structs used here, so they reduce to an
// empty payload.
func New(eventType string, payload interface{}) Envelope {
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	return Envelope{
		Type:       eventType,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}
}

// Encode renders the envelope for a live connection.
func (e Envelope) Encode() []byte {
	data, _ := json.Marshal(e)
	return data
}
