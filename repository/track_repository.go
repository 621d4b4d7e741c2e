package repository

import (
	"context"
	"encoding/json"
	"time"

	"asterplayer/model"
)

// Snapshot is the complete current content of the track collection, keyed
// by store key. Values are the raw record bodies; a nil map means the
// collection is empty or absent.
type Snapshot map[string]json.RawMessage

// SnapshotFunc receives every snapshot of a subscription, in order.
type SnapshotFunc func(Snapshot)

// TrackStore defines the realtime collection the player reads and writes.
// Subscribers always receive the full set, never deltas.
type TrackStore interface {
	// Push appends a record. The store assigns the key and stamps
	// CreatedAt; whatever the caller set in ID or CreatedAt is ignored.
	Push(ctx context.Context, track *model.Track) (string, error)
	// Remove deletes the record stored under id.
	Remove(ctx context.Context, id string) error
	// Snapshot reads the whole collection once.
	Snapshot(ctx context.Context) (Snapshot, error)
	// Subscribe delivers the current snapshot and then one snapshot per
	// change until cancel is called. Callbacks are never concurrent.
	Subscribe(ctx context.Context, fn SnapshotFunc) (cancel func(), err error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

// Clock returns the current time. Stores use it when no server clock is
// available.
type Clock func() time.Time

// EncodeTrack produces the record body written under a key.
func EncodeTrack(track *model.Track) (json.RawMessage, error) {
	if track.CharmTraits == nil {
		track.CharmTraits = []model.CharmTrait{}
	}
	return json.Marshal(track)
}
