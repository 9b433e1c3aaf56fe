// Package provider defines the adapter contract every third-party
// money-transfer integration implements, plus the registry that
// enumerates and constructs them.
package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/catalog"
	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/pkg/config"
	"github.com/wonny/remitquote/pkg/httputil"
	"github.com/wonny/remitquote/pkg/logger"
)

// Corridor is an ordered (source, destination) country pair.
type Corridor struct {
	SourceCountry string
	DestCountry   string
}

// RawResult is what an adapter hands back to the executor: a Quote
// stripped of canonical-only fields (Timestamp is stamped by the
// normalizer) plus enough provider-native information for the
// normalizer to finish the conversion. ExchangeRate and Fee are
// pointers because their absence is meaningful: a nil ExchangeRate
// tells the normalizer to compute one from the amounts; a nil Fee
// means the provider genuinely didn't report a fee, which the
// normalizer treats as Parsing failure rather than silently
// defaulting to zero (see spec's fee-null open question).
type RawResult struct {
	ProviderID string

	Success      bool
	ErrorKind    domain.ErrorKind
	ErrorMessage string

	SendAmount          decimal.Decimal
	SourceCurrency      string
	DestinationAmount   decimal.Decimal
	DestinationCurrency string
	ExchangeRate        *decimal.Decimal
	Fee                 *decimal.Decimal

	PaymentMethod  domain.PaymentMethod
	DeliveryMethod domain.DeliveryMethod

	// Exactly one of these is set when delivery time is known.
	DeliveryTimeMinutes *int
	DeliveryTimeText    string

	Raw []byte
}

// Failure builds a RawResult representing an adapter-side failure,
// the shape every adapter returns instead of propagating a Go error
// past its boundary (contract rule 1).
func Failure(providerID string, kind domain.ErrorKind, message string) *RawResult {
	return &RawResult{
		ProviderID:   providerID,
		Success:      false,
		ErrorKind:    kind,
		ErrorMessage: message,
	}
}

// Context bundles the dependencies an adapter needs at construction
// time. Adapters depend only on this small context, not on the
// registry or the coordinator, breaking the cyclic reference the
// source exhibited between aggregator, factory and adapter.
type Context struct {
	Catalog    *catalog.Catalog
	HTTPClient *httputil.Client
	Logger     *logger.Logger
	Now        func() time.Time

	// CredentialFor, when non-nil, resolves an adapter's own id to its
	// own credential blob. Every adapter is built from the same
	// Context, but each provider's API key/secret/base URL is distinct
	// (config.Config.ProviderCredentials is keyed by provider id), so
	// this is a resolver rather than a single shared field — the same
	// shape as RedisLimiterFor below and for the same reason. Nil in
	// every test in this repo; adapters treat a nil resolver or a
	// missing id as an empty config.ProviderCredential{} and fall back
	// to their own default base URL.
	CredentialFor func(providerID string) config.ProviderCredential

	// RedisLimiterFor, when non-nil, resolves an adapter's own id to a
	// rate limiter backed by the shared Redis sliding window instead of
	// an in-process token bucket, so limits hold across replicas. Every
	// adapter is built from the same Context, but each has its own
	// provider-specific limit, so this is a resolver rather than a
	// single shared limiter — mockwire calling it must not consume
	// globalpay's budget. Nil in single-process deployments and in
	// every test in this repo; adapters fall back to
	// internal/provider/ratelimit when it's unset or returns nil.
	RedisLimiterFor func(providerID string) httputil.RateLimiter
}

// Adapter is the uniform contract every provider integration
// implements (§4.B).
type Adapter interface {
	ID() string
	DisplayName() string

	// SupportedCorridors returns nil when the adapter cannot enumerate
	// its corridors ahead of time and instead detects unsupported
	// corridors inline, returning UnsupportedCorridor from Quote.
	SupportedCorridors() []Corridor

	// Quote performs the lookup, synchronously from the executor's
	// point of view. It must never panic or return past deadline; the
	// executor treats a late return as abandoned.
	Quote(ctx context.Context, req domain.QuoteRequest, deadline time.Time) *RawResult
}

// CredentialOrZero resolves ctx's per-provider credential for id,
// returning a zero-value config.ProviderCredential when the resolver is
// unset. Adapters call this instead of reading CredentialFor directly.
func (c Context) CredentialOrZero(id string) config.ProviderCredential {
	if c.CredentialFor == nil {
		return config.ProviderCredential{}
	}
	return c.CredentialFor(id)
}

// SupportsCorridor is a small helper adapters use to implement
// SupportedCorridors-based rejection consistently.
func SupportsCorridor(corridors []Corridor, source, dest string) bool {
	for _, c := range corridors {
		if c.SourceCountry == source && c.DestCountry == dest {
			return true
		}
	}
	return false
}
