package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"asterplayer/model"
)

// MemoryTrackStore is a process-local TrackStore used by tests and by the
// offline mode of the server. Subscribers are notified synchronously, in
// write order, outside the store lock. Listeners must not write to the
// store from inside the callback.
type MemoryTrackStore struct {
	mu        sync.Mutex
	records   map[string][]byte
	listeners map[int]SnapshotFunc
	nextID    int
	lastStamp int64
	clock     Clock

	// notify serializes deliveries so every listener sees snapshots in
	// write order.
	notify sync.Mutex
}

// NewMemoryTrackStore creates an empty store. A nil clock means time.Now.
func NewMemoryTrackStore(clock Clock) *MemoryTrackStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryTrackStore{
		records:   make(map[string][]byte),
		listeners: make(map[int]SnapshotFunc),
		clock:     clock,
	}
}

// Push implements TrackStore.
func (s *MemoryTrackStore) Push(ctx context.Context, track *model.Track) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &StoreWriteError{Op: "push", Err: err}
	}

	key, err := uuid.NewV7()
	if err != nil {
		return "", &StoreWriteError{Op: "push", Err: fmt.Errorf("generate key: %w", err)}
	}

	s.mu.Lock()
	record := *track
	record.ID = ""
	record.CreatedAt = s.stampLocked()
	body, err := EncodeTrack(&record)
	if err != nil {
		s.mu.Unlock()
		return "", &StoreWriteError{Op: "push", Err: err}
	}
	s.records[key.String()] = body
	s.mu.Unlock()

	s.broadcast()
	return key.String(), nil
}

// stampLocked keeps createdAt strictly increasing within this process.
func (s *MemoryTrackStore) stampLocked() int64 {
	now := s.clock().UnixMilli()
	if now <= s.lastStamp {
		now = s.lastStamp + 1
	}
	s.lastStamp = now
	return now
}

// Put writes a raw record body under key, bypassing validation. It exists
// for seeding and tests that need records other producers might write.
func (s *MemoryTrackStore) Put(key string, body []byte) {
	s.mu.Lock()
	s.records[key] = append([]byte(nil), body...)
	s.mu.Unlock()
	s.broadcast()
}

// Remove implements TrackStore.
func (s *MemoryTrackStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return &StoreWriteError{Op: "remove", Err: err}
	}

	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.records, id)
	s.mu.Unlock()

	s.broadcast()
	return nil
}

// Snapshot implements TrackStore.
func (s *MemoryTrackStore) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreReadError{Op: "snapshot", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

func (s *MemoryTrackStore) snapshotLocked() Snapshot {
	if len(s.records) == 0 {
		return nil
	}
	snap := make(Snapshot, len(s.records))
	for k, v := range s.records {
		snap[k] = append([]byte(nil), v...)
	}
	return snap
}

// Subscribe implements TrackStore.
func (s *MemoryTrackStore) Subscribe(ctx context.Context, fn SnapshotFunc) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreReadError{Op: "subscribe", Err: err}
	}

	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}, nil
}

// Ping implements TrackStore.
func (s *MemoryTrackStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored records.
func (s *MemoryTrackStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryTrackStore) broadcast() {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	listeners := make([]SnapshotFunc, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
