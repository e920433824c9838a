package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EventType tags the wire envelope. Inbound and outbound envelopes share the
// same shape; EventError only ever travels outbound as a unicast reply.
type EventType string

const (
	EventConfig      EventType = "config"
	EventChatMessage EventType = "chat-message"
	EventConnect     EventType = "connect"
	EventDisconnect  EventType = "disconnect"
	EventTestSound   EventType = "test-sound"
	EventError       EventType = "error"
)

// Envelope is the wire shape every session message uses: {"type": ..., "data": ...}.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into a typed envelope. Marshal errors are
// reported to the caller; the payload types here never fail in practice.
func NewEnvelope(t EventType, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Data: raw}, nil
}

// ConnectRequest is the data shape of an inbound connect event. Exactly one
// of VideoID/ChannelID is meaningful depending on Platform.
type ConnectRequest struct {
	Platform  string `json:"platform"`
	VideoID   string `json:"videoId,omitempty"`
	ChannelID string `json:"channelId,omitempty"`
}

// DisconnectRequest is the data shape of an inbound disconnect event.
// An empty Platform disconnects both platforms.
type DisconnectRequest struct {
	Platform string `json:"platform,omitempty"`
}

// ErrorReply is unicast to a session whose event could not be applied, so a
// misbehaving client can see what it sent wrong instead of guessing.
type ErrorReply struct {
	InResponseTo string `json:"inResponseTo"`
	Reason       string `json:"reason"`
}

// Broadcaster is what the router needs from the connection registry: fan-out
// to every open session plus unicast for snapshots and error replies.
type Broadcaster interface {
	Broadcast(env Envelope)
	SendTo(sessionID uuid.UUID, env Envelope) bool
}

// ConfigListener is notified with the full document after every state
// transition the router applies. The ingest supervisor reconciles against it.
type ConfigListener func(cfg OverlayConfig)
