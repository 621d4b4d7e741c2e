package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asterplayer/core/charm"
	"asterplayer/model"
	"asterplayer/repository"
)

// countingStore records every call and fails when told to.
type countingStore struct {
	calls   int
	pushed  []*model.Track
	pushErr error
}

func (s *countingStore) Push(ctx context.Context, t *model.Track) (string, error) {
	s.calls++
	if s.pushErr != nil {
		return "", s.pushErr
	}
	cp := *t
	s.pushed = append(s.pushed, &cp)
	return fmt.Sprintf("id-%d", len(s.pushed)), nil
}

func (s *countingStore) Remove(ctx context.Context, id string) error {
	s.calls++
	return nil
}

func (s *countingStore) Snapshot(ctx context.Context) (repository.Snapshot, error) {
	s.calls++
	return nil, nil
}

func (s *countingStore) Subscribe(ctx context.Context, fn repository.SnapshotFunc) (func(), error) {
	s.calls++
	return func() {}, nil
}

func (s *countingStore) Ping(ctx context.Context) error {
	s.calls++
	return nil
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		field   string
	}{
		{"empty name", Payload{Name: "", AudioURL: "x", CharmTraits: []model.CharmTrait{}}, "name"},
		{"blank name", Payload{Name: "   ", AudioURL: "x"}, "name"},
		{"empty audio", Payload{Name: "지민", AudioURL: ""}, "audioUrl"},
		{"blank audio", Payload{Name: "지민", AudioURL: "\t\n"}, "audioUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &countingStore{}
			g := New(store)

			id, err := g.Submit(context.Background(), tt.payload)
			assert.Empty(t, id)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Zero(t, store.calls)
		})
	}
}

func TestSubmitDefaults(t *testing.T) {
	store := &countingStore{}
	g := New(store)

	id, err := g.Submit(context.Background(), Payload{Name: " 지민 ", AudioURL: "https://example.com/a.mp3"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	require.Len(t, store.pushed, 1)
	got := store.pushed[0]
	assert.Equal(t, "지민", got.Name)
	assert.Equal(t, "지민의 매력 음악", got.Title)
	assert.Equal(t, "Aster AI", got.Artist)
	assert.Equal(t, 60, got.Duration)
	assert.Equal(t, model.SourceAlarm, got.Source)
	assert.NotNil(t, got.CharmTraits)
	assert.Empty(t, got.CharmTraits)
}

func TestSubmitDuration(t *testing.T) {
	for _, tt := range []struct {
		in   model.Seconds
		want int
	}{
		{45, 45},
		{44.6, 45},
		{0, 60},
		{-3, 60},
	} {
		store := &countingStore{}
		_, err := New(store).Submit(context.Background(), Payload{Name: "a", AudioURL: "u", Duration: tt.in})
		require.NoError(t, err)
		assert.Equal(t, tt.want, store.pushed[0].Duration, "duration %v", tt.in)
	}
}

func TestPayloadDecodeLoose(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"name":"a","audioUrl":"u","duration":"30"}`), &p))
	assert.Equal(t, model.Seconds(30), p.Duration)
	assert.Nil(t, p.CharmTraits)
}

func TestSubmitSource(t *testing.T) {
	store := &countingStore{}
	_, err := New(store, WithSource(model.SourcePlayer)).Submit(context.Background(), Payload{Name: "a", AudioURL: "u"})
	require.NoError(t, err)
	assert.Equal(t, model.SourcePlayer, store.pushed[0].Source)
}

func TestSubmitStoreErrors(t *testing.T) {
	t.Run("unavailable passes through", func(t *testing.T) {
		store := &countingStore{pushErr: fmt.Errorf("%w: refused", repository.ErrStoreUnavailable)}
		_, err := New(store).Submit(context.Background(), Payload{Name: "a", AudioURL: "u"})
		assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	})

	t.Run("untyped failure becomes write error", func(t *testing.T) {
		store := &countingStore{pushErr: errors.New("boom")}
		_, err := New(store).Submit(context.Background(), Payload{Name: "a", AudioURL: "u"})
		var werr *repository.StoreWriteError
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, "push", werr.Op)
	})
}

func TestSubmitTimeout(t *testing.T) {
	store := repository.NewMemoryTrackStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(store, WithTimeout(time.Second)).Submit(ctx, Payload{Name: "a", AudioURL: "u"})
	var werr *repository.StoreWriteError
	require.ErrorAs(t, err, &werr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Len())
}

type stubOffloader struct {
	url       string
	err       error
	discarded *[]string
}

func (o stubOffloader) Offload(ctx context.Context, audioURL string) (string, error) {
	return o.url, o.err
}

func (o stubOffloader) Discard(ctx context.Context, url string) error {
	if o.discarded != nil {
		*o.discarded = append(*o.discarded, url)
	}
	return nil
}

func TestSubmitOffload(t *testing.T) {
	const inline = "data:audio/mpeg;base64,AAAA"

	store := &countingStore{}
	_, err := New(store, WithOffloader(stubOffloader{url: "/media/audio/x.mp3"})).
		Submit(context.Background(), Payload{Name: "a", AudioURL: inline})
	require.NoError(t, err)
	assert.Equal(t, "/media/audio/x.mp3", store.pushed[0].AudioURL)

	store = &countingStore{}
	_, err = New(store, WithOffloader(stubOffloader{err: errors.New("minio down")})).
		Submit(context.Background(), Payload{Name: "a", AudioURL: inline})
	require.NoError(t, err)
	assert.Equal(t, inline, store.pushed[0].AudioURL)

	store = &countingStore{}
	_, err = New(store, WithOffloader(stubOffloader{url: "never"})).
		Submit(context.Background(), Payload{Name: "a", AudioURL: "https://example.com/a.mp3"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.mp3", store.pushed[0].AudioURL)
}

func TestSubmitDiscardsOffloadOnWriteFailure(t *testing.T) {
	const inline = "data:audio/mpeg;base64,AAAA"

	var discarded []string
	store := &countingStore{pushErr: errors.New("hset failed")}
	_, err := New(store, WithOffloader(stubOffloader{url: "/media/audio/x.mp3", discarded: &discarded})).
		Submit(context.Background(), Payload{Name: "a", AudioURL: inline})
	require.Error(t, err)
	assert.Equal(t, []string{"/media/audio/x.mp3"}, discarded)

	// inline audio kept after a failed offload leaves nothing to clean up
	discarded = nil
	_, err = New(store, WithOffloader(stubOffloader{err: errors.New("minio down"), discarded: &discarded})).
		Submit(context.Background(), Payload{Name: "a", AudioURL: inline})
	require.Error(t, err)
	assert.Empty(t, discarded)

	// a successful write keeps the object
	discarded = nil
	_, err = New(&countingStore{}, WithOffloader(stubOffloader{url: "/media/audio/y.mp3", discarded: &discarded})).
		Submit(context.Background(), Payload{Name: "a", AudioURL: inline})
	require.NoError(t, err)
	assert.Empty(t, discarded)
}

type memLedger struct {
	entries []*model.TrackHistory
	removed []string
	err     error
}

func (l *memLedger) Record(ctx context.Context, e *model.TrackHistory) error {
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, e)
	return nil
}

func (l *memLedger) MarkRemoved(ctx context.Context, id string) error {
	l.removed = append(l.removed, id)
	return l.err
}

func TestSubmitLedger(t *testing.T) {
	ledger := &memLedger{}
	store := &countingStore{}
	g := New(store, WithLedger(ledger, charm.DefaultCatalog()))

	ctx := WithOrigin(context.Background(), "https://aster-alarm.vercel.app")
	id, err := g.Submit(ctx, Payload{
		Name:     "수진",
		AudioURL: "u",
		CharmTraits: []model.CharmTrait{
			{CharmName: "호기심", Stage: 8},
			{CharmName: "유머 감각", Stage: 6},
		},
	})
	require.NoError(t, err)

	require.Len(t, ledger.entries, 1)
	entry := ledger.entries[0]
	assert.Equal(t, id, entry.TrackID)
	assert.Equal(t, string(charm.Curiosity), entry.Category)
	assert.Equal(t, "https://aster-alarm.vercel.app", entry.Origin)

	// ledger failures never fail the write
	ledger.err = errors.New("mysql gone")
	_, err = g.Submit(context.Background(), Payload{Name: "b", AudioURL: "u"})
	assert.NoError(t, err)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTrackStore(nil)
	ledger := &memLedger{}
	g := New(store, WithLedger(ledger, nil))

	id, err := g.Submit(ctx, Payload{Name: "a", AudioURL: "u"})
	require.NoError(t, err)

	require.NoError(t, g.Remove(ctx, id))
	assert.Zero(t, store.Len())
	assert.Equal(t, []string{id}, ledger.removed)

	assert.ErrorIs(t, g.Remove(ctx, id), repository.ErrNotFound)
}
