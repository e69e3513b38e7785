// Package idempotency remembers the outcome of requests carrying an idempotency key.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "stockledger:idem:"
	pendingMarker = "\x00pending"
)

// ErrInFlight means another request with the same key has not finished yet.
var ErrInFlight = errors.New("request with this key is in flight")

// RedisStore keeps one entry per key: a pending marker while the request runs,
// then the stored response until the TTL expires.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient creates a Redis client and pings it.
func NewClient(ctx context.Context, addr string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("idempotency: ping: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Reserve claims key. It returns (nil, nil) when the caller now owns the key, the stored
// response when the key already completed, and ErrInFlight when it is still pending.
func (s *RedisStore) Reserve(ctx context.Context, key string) ([]byte, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("idempotency: reserve: %w", err)
	}
	if ok {
		return nil, nil
	}
	stored, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		return s.Reserve(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency: load: %w", err)
	}
	if string(stored) == pendingMarker {
		return nil, ErrInFlight
	}
	return stored, nil
}

// Complete stores the response for key.
func (s *RedisStore) Complete(ctx context.Context, key string, response []byte) error {
	if err := s.client.Set(ctx, keyPrefix+key, response, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: complete: %w", err)
	}
	return nil
}

// Release forgets key so the request may be retried.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency: release: %w", err)
	}
	return nil
}
