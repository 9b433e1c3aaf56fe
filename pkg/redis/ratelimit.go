package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements sliding window rate limiting using Redis. It
// is shared across process instances, unlike the in-process
// token-bucket limiter in internal/provider/ratelimit, so it is the
// right choice when several aggregator replicas hit the same
// provider's API.
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters.
type RateLimitConfig struct {
	Key    string        // unique identifier, typically a provider id
	Limit  int           // maximum requests allowed
	Window time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed under the rate limit
// Returns (allowed, remaining, error)
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		// If Redis is disabled, allow all requests
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()

	rdb := r.client.Redis()

	// Use Lua script for atomic operation
	script := redis.NewScript(`
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local window_start = tonumber(ARGV[2])
		local limit = tonumber(ARGV[3])
		local window_ms = tonumber(ARGV[4])

		-- Remove old entries outside the window
		redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

		-- Count current requests in window
		local count = redis.call('ZCARD', key)

		if count < limit then
			-- Add current request
			redis.call('ZADD', key, now, now)
			redis.call('PEXPIRE', key, window_ms)
			return {1, limit - count - 1}
		else
			return {0, 0}
		end
	`)

	result, err := script.Run(ctx, rdb, []string{key},
		now,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	allowed := result[0].(int64) == 1
	remaining := int(result[1].(int64))

	return allowed, remaining, nil
}

// Wait blocks until a request is allowed or context is cancelled
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		// Wait before retrying
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			// Retry
		}
	}
}

// Predefined rate limit configs for the bundled provider adapters.
// Conservative relative to each provider's documented limit.
var (
	MockwireRateLimit = RateLimitConfig{
		Key:    "mockwire",
		Limit:  20,
		Window: time.Second,
	}

	GlobalpayRateLimit = RateLimitConfig{
		Key:    "globalpay",
		Limit:  10,
		Window: time.Second,
	}

	RemitwebRateLimit = RateLimitConfig{
		Key:    "remitweb",
		Limit:  2,
		Window: time.Second,
	}
)

// AsClientLimiter adapts a fixed RateLimitConfig into the
// httputil.RateLimiter interface so a Client can Wait on it without
// knowing about Redis.
func (r *RateLimiter) AsClientLimiter(cfg RateLimitConfig) *BoundRateLimiter {
	return &BoundRateLimiter{limiter: r, cfg: cfg}
}

// BoundRateLimiter pairs a RateLimiter with a fixed RateLimitConfig.
type BoundRateLimiter struct {
	limiter *RateLimiter
	cfg     RateLimitConfig
}

// Wait implements httputil.RateLimiter.
func (b *BoundRateLimiter) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx, b.cfg)
}

// Allow reports whether a request is permitted right now, without
// blocking. The HTTP-facing rate limit (§6, 429 responses) needs
// a non-blocking check: a caller that's over budget gets an immediate
// 429 rather than a delayed response.
func (b *BoundRateLimiter) Allow(ctx context.Context) (bool, error) {
	allowed, _, err := b.limiter.Allow(ctx, b.cfg)
	return allowed, err
}

// APIRateLimit is the client-facing limit on the aggregator's own HTTP
// surface (§6's "RateLimit at the aggregator surface"), distinct
// from the per-provider limits above.
var APIRateLimit = RateLimitConfig{
	Key:    "api",
	Limit:  100,
	Window: time.Second,
}
