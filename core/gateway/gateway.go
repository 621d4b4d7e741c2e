package gateway

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"asterplayer/core/charm"
	"asterplayer/logger"
	"asterplayer/model"
	"asterplayer/repository"
)

// DefaultTimeout bounds a store write when no WithTimeout is given.
const DefaultTimeout = 10 * time.Second

const discardTimeout = 5 * time.Second

// Payload is a track submission as the entry points receive it.
type Payload struct {
	Name        string             `json:"name"`
	AudioURL    string             `json:"audioUrl"`
	CharmTraits []model.CharmTrait `json:"charmTraits"`
	Duration    model.Seconds      `json:"duration,omitempty"`
}

// Offloader moves inline audio somewhere else and returns its new URL.
// Discard deletes what Offload stored when the track write fails.
type Offloader interface {
	Offload(ctx context.Context, audioURL string) (string, error)
	Discard(ctx context.Context, url string) error
}

// Ledger mirrors accepted submissions and removals.
type Ledger interface {
	Record(ctx context.Context, entry *model.TrackHistory) error
	MarkRemoved(ctx context.Context, trackID string) error
}

// Gateway validates submissions and writes them to the track store.
type Gateway struct {
	store     repository.TrackStore
	source    model.Source
	timeout   time.Duration
	offloader Offloader
	ledger    Ledger
	catalog   *charm.Catalog
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSource sets the producer tag written into every record.
func WithSource(source model.Source) Option {
	return func(g *Gateway) { g.source = source }
}

// WithTimeout bounds each store write.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithOffloader moves data-URI audio out of the record before writing.
func WithOffloader(o Offloader) Option {
	return func(g *Gateway) { g.offloader = o }
}

// WithLedger mirrors writes into a history ledger.
func WithLedger(l Ledger, catalog *charm.Catalog) Option {
	return func(g *Gateway) {
		g.ledger = l
		g.catalog = catalog
	}
}

// New creates a Gateway writing to store.
func New(store repository.TrackStore, opts ...Option) *Gateway {
	g := &Gateway{
		store:   store,
		source:  model.SourceAlarm,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type originKey struct{}

// WithOrigin tags ctx with the entry point a submission came through. It
// only shows up in the ledger.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

func originFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}

// Normalize validates p and builds the record that Submit would write.
func (g *Gateway) Normalize(p Payload) (*model.Track, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	audioURL := strings.TrimSpace(p.AudioURL)
	if audioURL == "" {
		return nil, &ValidationError{Field: "audioUrl", Reason: "is required"}
	}

	traits := p.CharmTraits
	if traits == nil {
		traits = []model.CharmTrait{}
	}

	duration := int(math.Round(float64(p.Duration)))
	if duration <= 0 {
		duration = model.DefaultDuration
	}

	return &model.Track{
		Name:        name,
		Title:       name + model.TitleSuffix,
		Artist:      model.DefaultArtist,
		Duration:    duration,
		AudioURL:    audioURL,
		CharmTraits: traits,
		Source:      g.source,
	}, nil
}

// Submit validates p, writes it and returns the store-assigned id.
func (g *Gateway) Submit(ctx context.Context, p Payload) (string, error) {
	track, err := g.Normalize(p)
	if err != nil {
		logger.Debug("submission rejected", logger.ErrorField(err))
		return "", err
	}

	writeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	offloaded := ""
	if g.offloader != nil && strings.HasPrefix(track.AudioURL, "data:") {
		if url, err := g.offloader.Offload(writeCtx, track.AudioURL); err != nil {
			logger.Warn("audio offload failed, keeping inline audio",
				logger.String("name", track.Name),
				logger.ErrorField(err))
		} else {
			track.AudioURL = url
			offloaded = url
		}
	}

	id, err := g.store.Push(writeCtx, track)
	if err != nil {
		err = asStoreError("push", err)
		logger.Error("track write failed",
			logger.String("name", track.Name),
			logger.ErrorField(err))
		if offloaded != "" {
			g.discard(ctx, offloaded)
		}
		return "", err
	}

	logger.Info("track submitted",
		logger.String("id", id),
		logger.String("name", track.Name),
		logger.String("source", string(track.Source)))

	g.record(ctx, id, track)
	return id, nil
}

// discard removes orphaned offloaded audio. It runs on its own deadline
// because the write context may already be spent.
func (g *Gateway) discard(ctx context.Context, url string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := g.offloader.Discard(dctx, url); err != nil {
		logger.Warn("orphaned audio not removed",
			logger.String("url", url),
			logger.ErrorField(err))
	}
}

// Remove deletes a track from the store.
func (g *Gateway) Remove(ctx context.Context, id string) error {
	writeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.store.Remove(writeCtx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return asStoreError("remove", err)
	}
	logger.Info("track removed", logger.String("id", id))

	if g.ledger != nil {
		if err := g.ledger.MarkRemoved(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("history update failed", logger.String("id", id), logger.ErrorField(err))
		}
	}
	return nil
}

func (g *Gateway) record(ctx context.Context, id string, track *model.Track) {
	if g.ledger == nil {
		return
	}
	entry := &model.TrackHistory{
		TrackID:     id,
		Name:        track.Name,
		Title:       track.Title,
		Artist:      track.Artist,
		Duration:    track.Duration,
		AudioURL:    track.AudioURL,
		CharmTraits: model.TraitList(track.CharmTraits),
		Source:      track.Source,
		Origin:      originFrom(ctx),
	}
	if g.catalog != nil {
		entry.Category = string(g.catalog.Dominant(track.CharmTraits).Key)
	}
	if err := g.ledger.Record(ctx, entry); err != nil {
		logger.Warn("history record failed", logger.String("id", id), logger.ErrorField(err))
	}
}

// asStoreError makes sure every store failure surfaces as one of the
// repository error types.
func asStoreError(op string, err error) error {
	var writeErr *repository.StoreWriteError
	if errors.Is(err, repository.ErrStoreUnavailable) || errors.As(err, &writeErr) {
		return err
	}
	return &repository.StoreWriteError{Op: op, Err: err}
}
