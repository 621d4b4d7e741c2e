package tracksync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"asterplayer/core/charm"
	"asterplayer/model"
	"asterplayer/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type ranked struct {
	ID      string
	Ordinal int
}

func summarize(views []model.ViewTrack) []ranked {
	out := make([]ranked, 0, len(views))
	for _, v := range views {
		out = append(out, ranked{ID: v.ID, Ordinal: v.Ordinal})
	}
	return out
}

func record(createdAt int64, name string) []byte {
	return []byte(fmt.Sprintf(`{"name":%q,"title":"t","artist":"Aster AI","duration":60,"audioUrl":"u","charmTraits":[{"charm_name":"호기심","stage":3}],"createdAt":%d,"source":"aster-alarm"}`, name, createdAt))
}

func TestBuildViewOrdering(t *testing.T) {
	catalog := charm.DefaultCatalog()
	snap := repository.Snapshot{
		"a": record(100, "a"),
		"b": record(300, "b"),
		"c": record(200, "c"),
	}

	got := summarize(BuildView(catalog, snap))
	want := []ranked{{"b", 3}, {"c", 2}, {"a", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildView() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildViewTiesAndUnranked(t *testing.T) {
	catalog := charm.DefaultCatalog()
	snap := repository.Snapshot{
		"k2":   record(500, "x"),
		"k1":   record(500, "y"),
		"k0":   record(100, "z"),
		"zzz":  []byte(`{"name":"no-time"}`),
		"aaa":  []byte(`{"name":"also-no-time","createdAt":null}`),
		"bad1": []byte(`"just a string"`),
		"bad2": []byte(`{"name":`),
		"bad3": []byte(`null`),
	}

	got := summarize(BuildView(catalog, snap))
	want := []ranked{{"k2", 3}, {"k1", 2}, {"k0", 1}, {"aaa", 0}, {"zzz", 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildView() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildViewNegativeCreatedAtRanks(t *testing.T) {
	catalog := charm.DefaultCatalog()
	snap := repository.Snapshot{
		"a": record(-5, "a"),
		"b": record(10, "b"),
		"c": record(0, "c"),
	}

	got := summarize(BuildView(catalog, snap))
	want := []ranked{{"b", 2}, {"a", 1}, {"c", 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildView() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildViewProjection(t *testing.T) {
	catalog := charm.DefaultCatalog()
	views := BuildView(catalog, repository.Snapshot{
		"k": []byte(`{"name":"수진","title":"수진의 매력 음악","artist":"Aster AI","duration":"90","audioUrl":"data:audio/mpeg;base64,AA==","charmTraits":[{"charm_name":"호기심","stage":8},{"charm_name":"유머 감각","stage":6}],"createdAt":1700000000000,"source":"aster-player"}`),
		"n": []byte(`{"name":"빈","createdAt":5}`),
	})
	require.Len(t, views, 2)

	first := views[0]
	assert.Equal(t, "k", first.ID)
	assert.Equal(t, 90, first.Duration)
	assert.Equal(t, string(charm.Curiosity), first.Category)
	assert.Equal(t, model.SourcePlayer, first.Source)
	assert.Len(t, first.Traits, 2)

	second := views[1]
	assert.NotNil(t, second.Traits)
	assert.Empty(t, second.Traits)
	assert.Equal(t, string(charm.DefaultKey), second.Category)
}

func TestBuildViewEmpty(t *testing.T) {
	catalog := charm.DefaultCatalog()
	assert.Equal(t, []model.ViewTrack{}, BuildView(catalog, nil))
	assert.Equal(t, []model.ViewTrack{}, BuildView(catalog, repository.Snapshot{}))
}

type collector struct {
	mu    sync.Mutex
	calls [][]model.ViewTrack
}

func (c *collector) update(v []model.ViewTrack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, v)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *collector) last() []model.ViewTrack {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[len(c.calls)-1]
}

func TestSubscribeDeliversEveryChange(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTrackStore(nil)
	s := New(store, charm.DefaultCatalog())

	var c collector
	unsubscribe, err := s.Subscribe(ctx, c.update)
	require.NoError(t, err)
	defer unsubscribe()

	require.Equal(t, 1, c.count())
	assert.Empty(t, c.last())

	id, err := store.Push(ctx, &model.Track{Name: "지민", AudioURL: "u"})
	require.NoError(t, err)
	require.Equal(t, 2, c.count())
	require.Len(t, c.last(), 1)
	assert.Equal(t, id, c.last()[0].ID)
	assert.Equal(t, 1, c.last()[0].Ordinal)

	_, err = store.Push(ctx, &model.Track{Name: "승현", AudioURL: "u"})
	require.NoError(t, err)
	require.Len(t, c.last(), 2)
	assert.Equal(t, "승현", c.last()[0].Name)
	assert.Equal(t, 2, c.last()[0].Ordinal)

	require.NoError(t, store.Remove(ctx, id))
	require.Len(t, c.last(), 1)
	assert.Equal(t, 4, c.count())
}

func TestUnsubscribeTwice(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTrackStore(nil)
	s := New(store, charm.DefaultCatalog())

	var c collector
	unsubscribe, err := s.Subscribe(ctx, c.update)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		unsubscribe()
		unsubscribe()
	})

	before := c.count()
	_, err = store.Push(ctx, &model.Track{Name: "late", AudioURL: "u"})
	require.NoError(t, err)
	assert.Equal(t, before, c.count())
}

func TestSubscriptionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTrackStore(nil)
	s := New(store, charm.DefaultCatalog())

	var a, b collector
	unsubA, err := s.Subscribe(ctx, a.update)
	require.NoError(t, err)
	unsubB, err := s.Subscribe(ctx, b.update)
	require.NoError(t, err)
	defer unsubB()

	unsubA()
	_, err = store.Push(ctx, &model.Track{Name: "x", AudioURL: "u"})
	require.NoError(t, err)

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 2, b.count())
}

type downStore struct {
	repository.TrackStore
	calls int
}

func (d *downStore) Subscribe(context.Context, repository.SnapshotFunc) (func(), error) {
	d.calls++
	return nil, fmt.Errorf("%w: dial tcp 127.0.0.1:6379: connection refused", repository.ErrStoreUnavailable)
}

func TestSubscribeFallback(t *testing.T) {
	catalog := charm.DefaultCatalog()
	store := &downStore{}
	s := New(store, catalog, WithFallback(PlaceholderTracks(catalog)))

	var c collector
	unsubscribe, err := s.Subscribe(context.Background(), c.update)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrStoreUnavailable))
	require.NotNil(t, unsubscribe)
	assert.NotPanics(t, func() { unsubscribe(); unsubscribe() })

	require.Equal(t, 1, c.count())
	got := c.last()
	require.Len(t, got, 3)
	assert.Equal(t, "지민의 매력 음악", got[0].Title)
	assert.Equal(t, string(charm.Stability), got[0].Category)
	assert.Equal(t, string(charm.Humor), got[1].Category)
	assert.Equal(t, string(charm.Curiosity), got[2].Category)
	assert.Equal(t, 90, got[2].Duration)
}

func TestSubscribeFallbackDisabled(t *testing.T) {
	catalog := charm.DefaultCatalog()
	s := New(&downStore{}, catalog, WithFallback(PlaceholderTracks(catalog)))

	var c collector
	_, err := s.Subscribe(context.Background(), c.update, WithFallback(nil))
	require.ErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.Zero(t, c.count())
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()
	base := time.UnixMilli(1_000)
	store := repository.NewMemoryTrackStore(func() time.Time { return base })
	s := New(store, charm.DefaultCatalog())

	for _, name := range []string{"a", "b", "c"} {
		_, err := store.Push(ctx, &model.Track{Name: name, AudioURL: "u"})
		require.NoError(t, err)
	}

	views, err := s.Current(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "c", views[0].Name)
	assert.Equal(t, 3, views[0].Ordinal)
	assert.Equal(t, "a", views[2].Name)
	assert.Equal(t, 1, views[2].Ordinal)
}
