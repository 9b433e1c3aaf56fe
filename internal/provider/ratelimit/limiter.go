// Package ratelimit provides the in-process per-adapter backoff spec
// §5 assigns to adapters ("Adapters are responsible for per-provider
// backoff; the aggregator does not coordinate across adapters").
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate.Limiter behind the small
// interface pkg/httputil.Client expects, so an adapter's HTTP client
// can Wait on it without either package depending on the other's
// concrete type.
type Limiter struct {
	inner *rate.Limiter
}

// New creates a Limiter allowing ratePerSecond requests per second,
// with a burst capacity of burst.
func New(ratePerSecond float64, burst int) *Limiter {
	return &Limiter{inner: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.inner.Wait(ctx)
}

// Allow reports whether a request may proceed immediately, consuming
// a token if so. Adapters that want to fail fast rather than block
// use this instead of Wait.
func (l *Limiter) Allow() bool {
	return l.inner.Allow()
}
