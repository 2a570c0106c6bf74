package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each slot under a prefixed key.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedisClient connects to redis with short timeouts.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

// NewRedis wraps an existing client as a slot store.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "studentdesk"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(slot string) string { return r.prefix + ":" + slot }

// Get returns the slot payload, or nil when absent.
func (r *Redis) Get(ctx context.Context, slot string) ([]byte, error) {
	payload, err := r.client.Get(ctx, r.key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", slot, err)
	}
	return payload, nil
}

// Set replaces the slot payload.
func (r *Redis) Set(ctx context.Context, slot string, payload []byte) error {
	if err := r.client.Set(ctx, r.key(slot), payload, 0).Err(); err != nil {
		return fmt.Errorf("set slot %s: %w", slot, err)
	}
	return nil
}

// Delete removes the slot.
func (r *Redis) Delete(ctx context.Context, slot string) error {
	if err := r.client.Del(ctx, r.key(slot)).Err(); err != nil {
		return fmt.Errorf("del slot %s: %w", slot, err)
	}
	return nil
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

// Close closes the underlying client.
func (r *Redis) Close() error { return r.client.Close() }
