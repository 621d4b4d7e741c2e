package bridge

import (
	"context"
	"sync"
)

// Outbound is one post the player page must make with window.postMessage.
type Outbound struct {
	TargetOrigin string   `json:"targetOrigin"`
	Envelope     Envelope `json:"envelope"`
}

// Mailbox is a Channel that keeps posts instead of delivering them. The
// browser applies the target origin check when the page replays them.
type Mailbox struct {
	mu    sync.Mutex
	posts []Outbound
}

// PostMessage implements Channel.
func (m *Mailbox) PostMessage(env Envelope, targetOrigin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, Outbound{TargetOrigin: targetOrigin, Envelope: env})
	return nil
}

// Drain returns the collected posts and empties the mailbox.
func (m *Mailbox) Drain() []Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	posts := m.posts
	m.posts = nil
	if posts == nil {
		posts = []Outbound{}
	}
	return posts
}

// Relay serves player pages that receive envelopes through a window
// message listener. The page forwards each envelope with the origin the
// browser reported and posts the returned replies back to event.source.
type Relay struct {
	bridge *Bridge
	ready  []Outbound
}

// NewRelay creates a listening relay. Its PLAYER_READY announcements are
// kept for pages to send on load.
func NewRelay(allow *Allowlist, submit Submitter) *Relay {
	b := New(allow, submit)
	box := &Mailbox{}
	b.Start(box)
	return &Relay{bridge: b, ready: box.Drain()}
}

// Announcements returns one PLAYER_READY post per partner origin.
func (r *Relay) Announcements() []Outbound {
	return append([]Outbound(nil), r.ready...)
}

// Partners returns the allowlisted origins.
func (r *Relay) Partners() []string {
	return r.bridge.allow.Origins()
}

// Handle processes one envelope received from origin and returns the
// replies for the sender. A rejected origin yields no replies together
// with ErrOriginRejected.
func (r *Relay) Handle(ctx context.Context, origin string, env Envelope) ([]Outbound, error) {
	box := &Mailbox{}
	err := r.bridge.HandleMessage(ctx, Message{Origin: origin, Source: box, Envelope: env})
	return box.Drain(), err
}
