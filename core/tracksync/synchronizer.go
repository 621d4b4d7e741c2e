package tracksync

import (
	"context"
	"errors"
	"sync"

	"asterplayer/core/charm"
	"asterplayer/logger"
	"asterplayer/model"
	"asterplayer/repository"
)

// UpdateFunc receives the complete track list on every change.
type UpdateFunc func([]model.ViewTrack)

// Unsubscribe detaches a subscription. It is safe to call more than once.
type Unsubscribe func()

// Option configures a subscription.
type Option func(*options)

type options struct {
	fallback func() []model.ViewTrack
}

// WithFallback installs the list delivered when the store is unreachable
// at subscribe time. Pass nil to disable a fallback set on the Synchronizer.
func WithFallback(fn func() []model.ViewTrack) Option {
	return func(o *options) {
		o.fallback = fn
	}
}

// Synchronizer republishes the store's track collection as ordered,
// classified view lists.
type Synchronizer struct {
	store    repository.TrackStore
	catalog  *charm.Catalog
	defaults []Option
}

// New creates a Synchronizer. opts become the defaults of every Subscribe.
func New(store repository.TrackStore, catalog *charm.Catalog, opts ...Option) *Synchronizer {
	return &Synchronizer{store: store, catalog: catalog, defaults: opts}
}

// Subscribe opens one store subscription and calls onUpdate with a fresh
// list for every snapshot, starting with the current one.
//
// If the store is unreachable and a fallback is configured, onUpdate gets
// the fallback list once and the returned error wraps
// repository.ErrStoreUnavailable; the Unsubscribe is then a no-op.
//
// onUpdate calls are serialized. Once Unsubscribe returns no further call
// starts; it must not be called from inside onUpdate.
func (s *Synchronizer) Subscribe(ctx context.Context, onUpdate UpdateFunc, opts ...Option) (Unsubscribe, error) {
	o := &options{}
	for _, opt := range s.defaults {
		opt(o)
	}
	for _, opt := range opts {
		opt(o)
	}

	sub := &subscription{onUpdate: onUpdate}
	cancel, err := s.store.Subscribe(ctx, func(snap repository.Snapshot) {
		sub.deliver(func() []model.ViewTrack { return BuildView(s.catalog, snap) })
	})
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) && o.fallback != nil {
			logger.Warn("track store unreachable, showing placeholder tracks", logger.ErrorField(err))
			onUpdate(o.fallback())
		}
		return func() {}, err
	}

	return sub.closer(cancel), nil
}

// Current reads the collection once and returns its view.
func (s *Synchronizer) Current(ctx context.Context) ([]model.ViewTrack, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return BuildView(s.catalog, snap), nil
}

// Catalog returns the category table the views are classified with.
func (s *Synchronizer) Catalog() *charm.Catalog {
	return s.catalog
}

type subscription struct {
	mu       sync.Mutex
	closed   bool
	onUpdate UpdateFunc
}

func (s *subscription) deliver(build func() []model.ViewTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onUpdate(build())
}

func (s *subscription) closer(cancel func()) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.closed = true
			s.mu.Unlock()
			cancel()
		})
	}
}
