package cache

import (
	"context"
	"testing"
	"time"

	"github.com/wonny/remitquote/pkg/config"
	"github.com/wonny/remitquote/pkg/redis"
)

func disabledClient(t *testing.T) *redis.Client {
	t.Helper()
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	if err != nil {
		t.Fatalf("redis.New() error = %v", err)
	}
	return client
}

func TestRedisStoreDisabledGetIsMiss(t *testing.T) {
	store := NewRedisStore(disabledClient(t), "remitquote", 0)
	_, found, err := store.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("expected miss when Redis is disabled")
	}
}

func TestRedisStoreDisabledSetIsNoop(t *testing.T) {
	store := NewRedisStore(disabledClient(t), "remitquote", 0)
	if err := store.Set(context.Background(), "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v, want nil when Redis is disabled", err)
	}
}

func TestRedisStoreDisabledInvalidatePrefixIsNoop(t *testing.T) {
	store := NewRedisStore(disabledClient(t), "remitquote", 0)
	if err := store.InvalidatePrefix(context.Background(), "corridor:US:MX"); err != nil {
		t.Fatalf("InvalidatePrefix() error = %v, want nil when Redis is disabled", err)
	}
}
