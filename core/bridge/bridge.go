package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"asterplayer/core/gateway"
	"asterplayer/logger"
	"asterplayer/model"
)

// State is the lifecycle of one bridge instance.
type State int

const (
	StateIdle State = iota
	StateAnnounced
	StateListening
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnnounced:
		return "announced"
	case StateListening:
		return "listening"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Submitter writes a track submission.
type Submitter interface {
	Submit(ctx context.Context, p gateway.Payload) (string, error)
}

// Bridge speaks the player side of the cross-origin protocol. Each peer
// (window, connection) gets its own Bridge.
type Bridge struct {
	allow  *Allowlist
	submit Submitter

	mu    sync.Mutex
	state State
}

// New creates an idle bridge.
func New(allow *Allowlist, submit Submitter) *Bridge {
	return &Bridge{allow: allow, submit: submit}
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Start announces PLAYER_READY to every partner origin through target and
// begins listening. Announcements are fire and forget; a failed post is
// logged and not retried. Calling Start again does nothing.
func (b *Bridge) Start(target Channel) {
	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return
	}
	b.state = StateAnnounced
	b.mu.Unlock()

	for _, origin := range b.allow.Origins() {
		if err := target.PostMessage(Envelope{Type: MsgPlayerReady}, origin); err != nil {
			logger.Debug("PLAYER_READY not delivered",
				logger.String("origin", origin),
				logger.ErrorField(err))
		}
	}

	b.mu.Lock()
	b.state = StateListening
	b.mu.Unlock()
}

// HandleMessage processes one inbound message. Replies go to msg.Source
// targeted at msg.Origin only. The returned error is diagnostic; the
// protocol outcome (including upload failures) travels in the reply.
func (b *Bridge) HandleMessage(ctx context.Context, msg Message) error {
	if b.State() != StateListening {
		return ErrNotListening
	}
	if !b.allow.Allowed(msg.Origin) {
		return fmt.Errorf("%w: %s", ErrOriginRejected, msg.Origin)
	}

	env := msg.Envelope
	switch env.Type {
	case MsgPing:
		return b.reply(msg, Envelope{Type: MsgPong, RequestID: env.RequestID})

	case MsgMusicGenerated:
		return b.handleGenerated(ctx, msg)

	default:
		logger.Debug("ignoring bridge message",
			logger.String("type", string(env.Type)),
			logger.String("origin", msg.Origin))
		return nil
	}
}

func (b *Bridge) handleGenerated(ctx context.Context, msg Message) error {
	payload, err := payloadFrom(msg.Envelope.Data)
	if err != nil {
		return b.reply(msg, Envelope{
			Type:      MsgUploadError,
			Error:     err.Error(),
			RequestID: msg.Envelope.RequestID,
		})
	}

	id, err := b.submit.Submit(gateway.WithOrigin(ctx, msg.Origin), payload)
	if err != nil {
		logger.Warn("bridge upload failed",
			logger.String("origin", msg.Origin),
			logger.ErrorField(err))
		return b.reply(msg, Envelope{
			Type:      MsgUploadError,
			Error:     err.Error(),
			RequestID: msg.Envelope.RequestID,
		})
	}

	logger.Info("bridge upload stored",
		logger.String("origin", msg.Origin),
		logger.String("id", id))
	return b.reply(msg, Envelope{
		Type:      MsgUploadSuccess,
		TrackID:   id,
		RequestID: msg.Envelope.RequestID,
	})
}

func (b *Bridge) reply(msg Message, env Envelope) error {
	if msg.Source == nil {
		return fmt.Errorf("bridge: no reply channel for %s", env.Type)
	}
	return msg.Source.PostMessage(env, msg.Origin)
}

// payloadFrom maps the alarm app's MUSIC_GENERATED data onto a gateway
// payload: userName, then name, then the anonymous label.
func payloadFrom(data json.RawMessage) (gateway.Payload, error) {
	var d generatedData
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &d); err != nil {
			return gateway.Payload{}, fmt.Errorf("invalid MUSIC_GENERATED data: %w", err)
		}
	}

	p := gateway.Payload{
		Name:        firstNonBlank(d.UserName, d.Name, model.AnonymousName),
		AudioURL:    d.AudioURL,
		CharmTraits: []model.CharmTrait{},
		Duration:    d.Duration,
	}

	if traits := bytes.TrimSpace(d.CharmTraits); len(traits) > 0 && !bytes.Equal(traits, []byte("null")) {
		if err := json.Unmarshal(traits, &p.CharmTraits); err != nil {
			return gateway.Payload{}, fmt.Errorf("invalid charmTraits: %w", err)
		}
	}

	if p.Duration <= 0 {
		p.Duration = model.DefaultDuration
	}
	return p, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
