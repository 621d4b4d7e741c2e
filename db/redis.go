package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"asterplayer/config"
)

// RedisClient is the process-wide Redis connection.
var RedisClient *redis.Client

// NewRedisClient creates the client without touching the network.
func NewRedisClient(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	RedisClient = client
	return client
}

// ConnectRedis opens the Redis connection and verifies it with PING. The
// client is returned even when the check fails so callers may keep it and
// retry later; close it otherwise.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	client := NewRedisClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return client, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CloseRedis closes the Redis connection.
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// TestRedis performs a set/get/del round trip plus a pub/sub echo, the two
// primitives the track store relies on.
func TestRedis(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	const key = "asterplayer:healthcheck"
	const want = "Redis connection successful!"

	if err := RedisClient.Set(ctx, key, want, time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set Redis key: %w", err)
	}
	val, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to get Redis key: %w", err)
	}
	if val != want {
		return fmt.Errorf("unexpected value from Redis: got %s", val)
	}
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete Redis key: %w", err)
	}

	ps := RedisClient.Subscribe(ctx, key)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := RedisClient.Publish(ctx, key, want).Err(); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	msg, err := ps.ReceiveMessage(ctx)
	if err != nil {
		return fmt.Errorf("failed to receive published message: %w", err)
	}
	if msg.Payload != want {
		return fmt.Errorf("unexpected pub/sub payload: got %s", msg.Payload)
	}
	return nil
}
