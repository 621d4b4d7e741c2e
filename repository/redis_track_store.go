package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"asterplayer/logger"
	"asterplayer/model"
)

const changesSuffix = ":changes"

// RedisTrackStore keeps the collection in one Redis hash (key -> record
// JSON) and announces every change on a pub/sub channel. CreatedAt comes
// from the Redis server clock so that writers on different hosts agree.
type RedisTrackStore struct {
	client     *redis.Client
	collection string
	channel    string
}

// NewRedisTrackStore creates a store over the given hash key.
func NewRedisTrackStore(client *redis.Client, collection string) *RedisTrackStore {
	return &RedisTrackStore{
		client:     client,
		collection: collection,
		channel:    collection + changesSuffix,
	}
}

// Push implements TrackStore.
func (s *RedisTrackStore) Push(ctx context.Context, track *model.Track) (string, error) {
	key, err := uuid.NewV7()
	if err != nil {
		return "", &StoreWriteError{Op: "push", Err: fmt.Errorf("generate key: %w", err)}
	}

	now, err := s.client.Time(ctx).Result()
	if err != nil {
		return "", writeErr("push", err)
	}

	record := *track
	record.ID = ""
	record.CreatedAt = now.UnixMilli()
	body, err := EncodeTrack(&record)
	if err != nil {
		return "", &StoreWriteError{Op: "push", Err: err}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.collection, key.String(), string(body))
		pipe.Publish(ctx, s.channel, key.String())
		return nil
	})
	if err != nil {
		return "", writeErr("push", err)
	}

	logger.Debug("track pushed",
		logger.String("collection", s.collection),
		logger.String("id", key.String()),
		logger.Int64("createdAt", record.CreatedAt))
	return key.String(), nil
}

// Remove implements TrackStore.
func (s *RedisTrackStore) Remove(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.HDel(ctx, s.collection, id)
		pipe.Publish(ctx, s.channel, id)
		return nil
	})
	if err != nil {
		return writeErr("remove", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Snapshot implements TrackStore.
func (s *RedisTrackStore) Snapshot(ctx context.Context) (Snapshot, error) {
	all, err := s.client.HGetAll(ctx, s.collection).Result()
	if err != nil {
		return nil, readErr("snapshot", err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	snap := make(Snapshot, len(all))
	for k, v := range all {
		snap[k] = []byte(v)
	}
	return snap, nil
}

// Subscribe implements TrackStore. The pub/sub subscription is confirmed
// before the first snapshot is read, so no change can slip between them.
func (s *RedisTrackStore) Subscribe(ctx context.Context, fn SnapshotFunc) (func(), error) {
	subCtx, cancel := context.WithCancel(context.Background())
	ps := s.client.Subscribe(subCtx, s.channel)
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, readErr("subscribe", err)
	}

	first, err := s.Snapshot(ctx)
	if err != nil {
		cancel()
		_ = ps.Close()
		return nil, err
	}

	ch := ps.Channel()
	go func() {
		fn(first)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				// each snapshot is complete, so queued notifications collapse
				for drained := false; !drained; {
					select {
					case <-ch:
					default:
						drained = true
					}
				}

				snap, err := s.Snapshot(subCtx)
				if err != nil {
					if subCtx.Err() == nil {
						logger.Warn("track snapshot read failed",
							logger.String("collection", s.collection),
							logger.ErrorField(err))
					}
					continue
				}
				if subCtx.Err() != nil {
					return
				}
				fn(snap)
			}
		}
	}()

	logger.Info("track subscription opened", logger.String("channel", s.channel))

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := ps.Close(); err != nil {
				logger.Debug("pubsub close", logger.ErrorField(err))
			}
		})
	}, nil
}

// Ping implements TrackStore.
func (s *RedisTrackStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// classify tags connectivity failures with ErrStoreUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case errors.As(err, &opErr), errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, redis.ErrClosed):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func writeErr(op string, err error) error {
	err = classify(err)
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return &StoreWriteError{Op: op, Err: err}
}

func readErr(op string, err error) error {
	err = classify(err)
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return &StoreReadError{Op: op, Err: err}
}
