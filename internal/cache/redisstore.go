package cache

import (
	"context"
	"errors"
	"math/rand"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wonny/remitquote/pkg/redis"
)

// RedisStore is the Store implementation used in production, backed
// by pkg/redis.Client. It talks to go-redis directly for raw byte
// values and prefix scans rather than through pkg/redis.Cache, which
// is JSON-typed and doesn't expose SCAN — the quote/corridor/provider
// key schemes need both.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	jitterMaxS int
	randIntn   func(int) int
}

// NewRedisStore builds a RedisStore. prefix namespaces every key
// (e.g. "remitquote") so this process can share a Redis instance with
// others without key collisions.
func NewRedisStore(client *redis.Client, prefix string, jitterMaxSeconds int) *RedisStore {
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		jitterMaxS: jitterMaxSeconds,
		randIntn:   rand.Intn,
	}
}

func (s *RedisStore) fullKey(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !s.client.Enabled() {
		return nil, false, nil
	}
	data, err := s.client.Redis().Get(ctx, s.fullKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !s.client.Enabled() {
		return nil
	}
	actualTTL := ttl
	if s.jitterMaxS > 0 {
		actualTTL = jitteredTTL(ttl, s.jitterMaxS, s.randIntn)
	}
	return s.client.Redis().Set(ctx, s.fullKey(key), value, actualTTL).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if !s.client.Enabled() {
		return nil
	}
	return s.client.Redis().Del(ctx, s.fullKey(key)).Err()
}

// InvalidatePrefix scans and deletes every key under prefix using
// SCAN rather than KEYS, so a large keyspace doesn't block Redis
// while a corridor's cache entries are cleared.
func (s *RedisStore) InvalidatePrefix(ctx context.Context, prefix string) error {
	if !s.client.Enabled() {
		return nil
	}
	pattern := s.fullKey(prefix) + "*"
	iter := s.client.Redis().Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Redis().Del(ctx, keys...).Err()
}
