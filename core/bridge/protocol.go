package bridge

import (
	"encoding/json"
	"errors"

	"asterplayer/model"
)

// MessageType is the envelope "type" field.
type MessageType string

const (
	MsgPlayerReady    MessageType = "PLAYER_READY"
	MsgPing           MessageType = "PING"
	MsgPong           MessageType = "PONG"
	MsgMusicGenerated MessageType = "MUSIC_GENERATED"
	MsgUploadSuccess  MessageType = "MUSIC_UPLOAD_SUCCESS"
	MsgUploadError    MessageType = "MUSIC_UPLOAD_ERROR"
)

// TargetAny delivers regardless of the receiver's origin.
const TargetAny = "*"

// Envelope is one cross-origin message.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	TrackID   string          `json:"trackId,omitempty"`
	Error     string          `json:"error,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// Channel is the path back to one peer. PostMessage behaves like
// window.postMessage: the envelope is delivered only when the peer's origin
// equals targetOrigin (or targetOrigin is TargetAny) and is silently
// dropped otherwise. Delivery is best effort.
type Channel interface {
	PostMessage(env Envelope, targetOrigin string) error
}

// Message is an inbound envelope together with where it came from.
type Message struct {
	Origin   string
	Source   Channel
	Envelope Envelope
}

var (
	// ErrOriginRejected marks a message dropped by the allowlist. It is
	// reported to the transport for diagnostics only; the sender never
	// learns about it.
	ErrOriginRejected = errors.New("bridge: origin not allowed")

	// ErrNotListening is returned for messages that arrive before Start.
	ErrNotListening = errors.New("bridge: not listening")
)

// generatedData is the MUSIC_GENERATED payload written by the alarm app.
type generatedData struct {
	UserName    string          `json:"userName"`
	Name        string          `json:"name"`
	AudioURL    string          `json:"audioUrl"`
	CharmTraits json.RawMessage `json:"charmTraits"`
	Duration    model.Seconds   `json:"duration"`
}
