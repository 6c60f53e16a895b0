package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Pending is the value of a claimed key whose result is not bound yet.
const Pending = "-"

// Store implements claim-once keys on Redis. A key is claimed with SET NX, may
// later be bound to a result, and is forgotten when the claimed work fails.
type Store struct {
	RDB redis.Cmdable
}

// Claim reports whether this caller took the key.
func (s *Store) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.RDB.SetNX(ctx, key, Pending, ttl).Result()
}

func (s *Store) Bind(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.RDB.Set(ctx, key, value, ttl).Err()
}

// Lookup returns the value stored under key; ok is false when the key is absent.
func (s *Store) Lookup(ctx context.Context, key string) (string, bool, error) {
	v, err := s.RDB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Forget(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, key).Err()
}
