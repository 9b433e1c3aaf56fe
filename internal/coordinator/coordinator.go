// Package coordinator implements the end-to-end aggregate call
// (§4.H): validate, probe cache, fan out to adapters, normalize,
// filter/sort, write cache, respond.
package coordinator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/cache"
	"github.com/wonny/remitquote/internal/catalog"
	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/fanout"
	"github.com/wonny/remitquote/internal/filter"
	"github.com/wonny/remitquote/internal/metrics"
	"github.com/wonny/remitquote/internal/normalize"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/pkg/logger"
)

// Clock lets tests stamp deterministic timestamps.
type Clock func() time.Time

// Coordinator wires together every stage of the aggregate call. It
// holds no adapter-specific knowledge; adapters are supplied entirely
// through the Registry.
type Coordinator struct {
	catalog      *catalog.Catalog
	registry     *provider.Registry
	adapterCtx   provider.Context
	executor     *fanout.Executor
	normalizer   *normalize.Normalizer
	store        cache.Store
	singleFlight *cache.SingleFlight
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          Clock

	quoteTTL           time.Duration
	corridorTTL        time.Duration
	jitterMaxSeconds   int
	defaultPerProvider time.Duration
	maxAmount          decimal.Decimal
}

// Options configures a Coordinator at construction time.
type Options struct {
	Catalog      *catalog.Catalog
	Registry     *provider.Registry
	AdapterCtx   provider.Context
	Store        cache.Store
	SingleFlight *cache.SingleFlight
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
	Clock        Clock

	QuoteTTL           time.Duration
	CorridorTTL        time.Duration
	DefaultPerProvider time.Duration

	// MaxWorkers caps the fan-out pool regardless of what a caller
	// requests via QuoteOptions.MaxWorkers (AGGREGATOR_MAX_WORKERS).
	// Zero uses fanout's package default.
	MaxWorkers int

	// MaxAmount is the configurable cap on QuoteRequest.Amount (§3),
	// a decimal string from AGGREGATOR_MAX_AMOUNT. Empty or
	// unparseable disables the cap check.
	MaxAmount string
}

// New builds a Coordinator from its dependencies. All dependencies
// are explicit constructor arguments rather than package-level
// singletons, per §9's design note against global mutable state; a
// composition root at process start assembles them once.
func New(opts Options) *Coordinator {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	quoteTTL := opts.QuoteTTL
	if quoteTTL <= 0 {
		quoteTTL = cache.DefaultQuoteTTL
	}
	corridorTTL := opts.CorridorTTL
	if corridorTTL <= 0 {
		corridorTTL = cache.DefaultCorridorTTL
	}
	perProvider := opts.DefaultPerProvider
	if perProvider <= 0 {
		perProvider = fanout.DefaultPerProviderTimeout
	}
	maxAmount, err := decimal.NewFromString(opts.MaxAmount)
	if err != nil {
		// A missing or malformed cap disables the check rather than
		// failing construction; decimal.Zero is Validate's sentinel
		// for "no cap".
		maxAmount = decimal.Zero
	}
	metricsHandle := opts.Metrics
	if metricsHandle == nil {
		// A caller that skips Metrics (tests, ad hoc scripts) still gets
		// a working handle, just one registered against its own private
		// registry rather than the process-wide default.
		metricsHandle = metrics.New(prometheus.NewRegistry())
	}

	return &Coordinator{
		catalog:            opts.Catalog,
		registry:           opts.Registry,
		adapterCtx:         opts.AdapterCtx,
		executor:           fanout.NewWithCap(opts.Logger, opts.MaxWorkers),
		normalizer:         normalize.New(func() time.Time { return now() }),
		store:              opts.Store,
		singleFlight:       opts.SingleFlight,
		metrics:            metricsHandle,
		logger:             opts.Logger.WithField("module", "coordinator"),
		now:                now,
		quoteTTL:           quoteTTL,
		corridorTTL:        corridorTTL,
		jitterMaxSeconds:   cache.DefaultJitterMaxSec,
		defaultPerProvider: perProvider,
		maxAmount:          maxAmount,
	}
}

// cachedAggregate is the payload persisted per quote key. Only the
// corridor-and-amount-scoped data is cached; per-call options like
// sort_by and max_fee are re-applied on every call regardless of
// cache hit, since they aren't part of the key.
type cachedAggregate struct {
	AllProviders []domain.Quote                    `json:"all_providers"`
	Errors       map[string]domain.ProviderFailure `json:"errors"`
}

// GetAllQuotes implements the coordinator's public operation.
func (c *Coordinator) GetAllQuotes(ctx context.Context, req domain.QuoteRequest) domain.AggregateResult {
	start := c.now()
	requestID := uuid.NewString()

	// dest_currency may be omitted and is then derivable from
	// dest_country via the catalog (§3, §4.B rule 6). Resolving it
	// here — before validation and before the cache key is built —
	// means every adapter always receives an already-resolved
	// currency; an adapter's own DefaultCurrency fallback only exists
	// to cover a caller that reaches it directly, bypassing the
	// coordinator.
	if req.DestCurrency == "" && c.catalog.IsValidISOCountry(req.DestCountry) {
		if derived, err := c.catalog.DefaultCurrency(req.DestCountry); err == nil {
			req.DestCurrency = derived
		}
	}

	if err := c.catalog.Validate(req.SourceCountry, req.DestCountry, req.SourceCurrency, req.DestCurrency, req.Amount, c.maxAmount); err != nil {
		result := c.invalidParameterResult(requestID, req, start, err)
		c.metrics.RecordAggregateCall(false, false, c.now().Sub(start).Seconds())
		return result
	}

	key := cache.QuoteKey(req.SourceCountry, req.DestCountry, req.SourceCurrency, req.DestCurrency, req.Amount)

	cacheHit := false
	var aggregate cachedAggregate

	if !req.Options.ForceRefresh {
		if data, found, err := c.store.Get(ctx, key); err == nil && found {
			if err := json.Unmarshal(data, &aggregate); err == nil {
				cacheHit = true
			}
		}
	}

	if !cacheHit {
		data, err := c.singleFlight.Do(ctx, key, func() ([]byte, error) {
			return c.fanOutAndCache(ctx, req, key)
		})
		if err != nil {
			result := c.invalidParameterResult(requestID, req, start, domain.NewAdapterError(
				domain.ErrorKindInternal, "fan-out failed", err))
			c.metrics.RecordAggregateCall(false, false, c.now().Sub(start).Seconds())
			return result
		}
		if err := json.Unmarshal(data, &aggregate); err != nil {
			result := c.invalidParameterResult(requestID, req, start, domain.NewAdapterError(
				domain.ErrorKindInternal, "failed to decode fan-out result", err))
			c.metrics.RecordAggregateCall(false, false, c.now().Sub(start).Seconds())
			return result
		}
	}

	quotes := filter.Apply(aggregate.AllProviders, req.Options)
	c.metrics.RecordAggregateCall(true, cacheHit, c.now().Sub(start).Seconds())

	return domain.AggregateResult{
		RequestID:      requestID,
		Request:        req,
		Success:        true,
		ElapsedMS:      elapsedMS(start, c.now()),
		CacheHit:       cacheHit,
		Timestamp:      c.now().UTC(),
		FiltersApplied: filtersApplied(req.Options),
		AllProviders:   aggregate.AllProviders,
		Quotes:         quotes,
		Errors:         aggregate.Errors,
	}
}

// fanOutAndCache runs steps 3-7 of §4.H under the single-flight lock:
// compute active adapters, dispatch, normalize, and — unless the
// caller cancelled first — write the cache entry.
func (c *Coordinator) fanOutAndCache(ctx context.Context, req domain.QuoteRequest, key string) ([]byte, error) {
	activeIDs := c.registry.ActiveIDs(req.Options.IncludeProviders, req.Options.ExcludeProviders)

	adapters := make([]provider.Adapter, 0, len(activeIDs))
	for _, id := range activeIDs {
		adapter, err := c.registry.Build(id, c.adapterCtx)
		if err != nil {
			c.logger.WithError(err).WithField("provider_id", id).Warn("failed to build adapter, skipping")
			continue
		}
		adapters = append(adapters, adapter)
	}
	c.metrics.SetActiveProviders(len(adapters))

	perProviderTimeout := c.defaultPerProvider
	if req.Options.PerProviderTimeoutMS != nil {
		perProviderTimeout = time.Duration(*req.Options.PerProviderTimeoutMS) * time.Millisecond
	}
	maxWorkers := 0
	if req.Options.MaxWorkers != nil {
		maxWorkers = *req.Options.MaxWorkers
	}

	results := c.executor.Run(ctx, req, adapters, fanout.Options{
		PerProviderTimeout: perProviderTimeout,
		MaxWorkers:         maxWorkers,
	})

	allProviders := make([]domain.Quote, len(results))
	errorsMap := make(map[string]domain.ProviderFailure)
	hasDefiniteResult := false

	for i, result := range results {
		quote := c.normalizer.Normalize(result.Raw, req)
		allProviders[i] = quote
		c.metrics.RecordProviderCall(quote.ProviderID, quote.Success, result.DurationSeconds, string(quote.ErrorKind))
		if !quote.Success {
			errorsMap[quote.ProviderID] = domain.ProviderFailure{
				ErrorKind:    quote.ErrorKind,
				ErrorMessage: quote.ErrorMessage,
			}
			if quote.ErrorKind == domain.ErrorKindUnsupportedCorridor {
				hasDefiniteResult = true
			}
		} else {
			hasDefiniteResult = true
		}
	}

	aggregate := cachedAggregate{AllProviders: allProviders, Errors: errorsMap}
	data, err := json.Marshal(aggregate)
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		c.logger.Warn("call cancelled before fan-out completed, skipping cache write")
		return data, nil
	}
	if hasDefiniteResult {
		if err := c.store.Set(ctx, key, data, c.quoteTTL); err != nil {
			c.logger.WithError(err).Warn("failed to write quote cache entry")
		}
		c.recordBookkeeping(ctx, req, allProviders)
	}
	return data, nil
}

// ProviderHealthRecord is the payload stored per provider under
// cache.ProviderKey: a running record of the last time a call to that
// provider actually succeeded, refreshed on every aggregate call that
// reaches a definite (non-cancelled) result.
type ProviderHealthRecord struct {
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastSeenAt    time.Time  `json:"last_seen_at"`
}

// recordBookkeeping writes the two secondary cache namespaces of §4.G
// that GetAllQuotes doesn't itself read back from: which providers this
// call found unsupported for the corridor, and each provider's most
// recent success timestamp. Failures here are logged, not propagated —
// this is observability, not part of the aggregate result.
func (c *Coordinator) recordBookkeeping(ctx context.Context, req domain.QuoteRequest, quotes []domain.Quote) {
	var unsupported []string
	now := c.now()

	for _, quote := range quotes {
		health := ProviderHealthRecord{LastSeenAt: now}
		if quote.Success {
			successAt := now
			health.LastSuccessAt = &successAt
		} else {
			if prev, found, err := c.ProviderHealth(ctx, quote.ProviderID); err == nil && found {
				health.LastSuccessAt = prev.LastSuccessAt
			}
			if quote.ErrorKind == domain.ErrorKindUnsupportedCorridor {
				unsupported = append(unsupported, quote.ProviderID)
			}
		}
		if data, err := json.Marshal(health); err == nil {
			if err := c.store.Set(ctx, cache.ProviderKey(quote.ProviderID), data, cache.DefaultProviderTTL); err != nil {
				c.logger.WithError(err).WithField("provider_id", quote.ProviderID).Warn("failed to write provider health cache entry")
			}
		}
	}

	if len(unsupported) > 0 {
		data, err := json.Marshal(unsupported)
		if err != nil {
			return
		}
		key := cache.CorridorKey(req.SourceCountry, req.DestCountry)
		if err := c.store.Set(ctx, key, data, c.corridorTTL); err != nil {
			c.logger.WithError(err).Warn("failed to write corridor support cache entry")
		}
	}
}

// ProviderHealth returns the last recorded call outcome for a provider,
// found=false if nothing has been recorded yet (a fresh cache, or a
// provider that has never been dispatched to).
func (c *Coordinator) ProviderHealth(ctx context.Context, providerID string) (health ProviderHealthRecord, found bool, err error) {
	data, ok, err := c.store.Get(ctx, cache.ProviderKey(providerID))
	if err != nil || !ok {
		return ProviderHealthRecord{}, false, err
	}
	if err := json.Unmarshal(data, &health); err != nil {
		return ProviderHealthRecord{}, false, err
	}
	return health, true, nil
}

// UnsupportedProviders returns the provider IDs that most recently
// reported UnsupportedCorridor for this corridor, found=false if no
// such call has completed yet or every provider supported it.
func (c *Coordinator) UnsupportedProviders(ctx context.Context, sourceCountry, destCountry string) (ids []string, found bool, err error) {
	data, ok, err := c.store.Get(ctx, cache.CorridorKey(sourceCountry, destCountry))
	if err != nil || !ok {
		return nil, false, err
	}
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

// InvalidateCorridorSupport clears the cached corridor-unsupported
// bookkeeping, used by the cache CLI's invalidate-corridor command so
// a provider that starts supporting a corridor is re-tried rather than
// staying marked unsupported until quoteTTL happens to expire the last
// quote cache entry that touched it.
func (c *Coordinator) InvalidateCorridorSupport(ctx context.Context, sourceCountry, destCountry string) error {
	return c.store.Delete(ctx, cache.CorridorKey(sourceCountry, destCountry))
}

func (c *Coordinator) invalidParameterResult(requestID string, req domain.QuoteRequest, start time.Time, err error) domain.AggregateResult {
	adapterErr, ok := err.(*domain.AdapterError)
	kind := domain.ErrorKindInvalidParameter
	message := err.Error()
	if ok {
		kind = adapterErr.Kind
		message = adapterErr.Message
	}
	return domain.AggregateResult{
		RequestID: requestID,
		Request:   req,
		Success:   false,
		ElapsedMS: elapsedMS(start, c.now()),
		Timestamp: c.now().UTC(),
		Errors: map[string]domain.ProviderFailure{
			"request": {ErrorKind: kind, ErrorMessage: message},
		},
	}
}

func filtersApplied(opts domain.QuoteOptions) domain.FiltersApplied {
	return domain.FiltersApplied{
		SortBy:                 opts.SortBy,
		MaxFee:                 opts.MaxFee,
		MaxDeliveryTimeMinutes: opts.MaxDeliveryTimeMinutes,
		HadCustomPredicate:     opts.CustomPredicate != nil,
		IncludeProviders:       opts.IncludeProviders,
		ExcludeProviders:       opts.ExcludeProviders,
	}
}

func elapsedMS(start, end time.Time) int64 {
	return end.Sub(start).Milliseconds()
}
