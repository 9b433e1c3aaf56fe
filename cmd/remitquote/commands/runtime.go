package commands

import (
	"fmt"
	"time"

	"github.com/wonny/remitquote/internal/audit"
	"github.com/wonny/remitquote/internal/cache"
	"github.com/wonny/remitquote/internal/catalog"
	"github.com/wonny/remitquote/internal/coordinator"
	"github.com/wonny/remitquote/internal/metrics"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/internal/provider/adapters/globalpay"
	"github.com/wonny/remitquote/internal/provider/adapters/mockwire"
	"github.com/wonny/remitquote/internal/provider/adapters/remitweb"
	"github.com/wonny/remitquote/pkg/config"
	"github.com/wonny/remitquote/pkg/database"
	"github.com/wonny/remitquote/pkg/httputil"
	"github.com/wonny/remitquote/pkg/logger"
	pkgredis "github.com/wonny/remitquote/pkg/redis"

	"github.com/prometheus/client_golang/prometheus"
)

// runtime bundles every collaborator the composition root assembles
// once at process start, so serve/quote/providers/cache subcommands
// share exactly one wiring path instead of drifting out of sync.
type runtime struct {
	cfg          *config.Config
	logger       *logger.Logger
	catalog      *catalog.Catalog
	registry     *provider.Registry
	adapterCtx   provider.Context
	store        cache.Store
	singleFlight *cache.SingleFlight
	coordinator  *coordinator.Coordinator
	auditRepo    *audit.Repository

	db        *database.DB
	redisConn *pkgredis.Client
}

// providerRateLimits maps a registered adapter id to its predefined
// Redis sliding-window config (pkg/redis.MockwireRateLimit and peers).
var providerRateLimits = map[string]pkgredis.RateLimitConfig{
	mockwire.ID:  pkgredis.MockwireRateLimit,
	globalpay.ID: pkgredis.GlobalpayRateLimit,
	remitweb.ID:  pkgredis.RemitwebRateLimit,
}

// buildRuntime wires config, logging, storage, the provider registry
// and the coordinator: load config, build logger, connect optional
// backing stores, build the domain graph, return the assembled
// runtime plus a close func.
func buildRuntime() (*runtime, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	rt := &runtime{cfg: cfg, logger: log}

	closers := make([]func(), 0, 2)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Database.Enabled {
		if cfg.Database.URL == "" {
			cfg.Database.URL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
				cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		}
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		rt.db = db
		rt.auditRepo = audit.NewRepository(db.Pool)
		closers = append(closers, func() { db.Close() })
		log.Info("connected to database")
	}

	var redisRateLimiter *pkgredis.RateLimiter
	if cfg.Redis.Enabled {
		redisConn, err := pkgredis.New(cfg)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		rt.redisConn = redisConn
		redisRateLimiter = pkgredis.NewRateLimiter(redisConn, "remitquote")
		rt.store = cache.NewRedisStore(redisConn, "remitquote", cfg.Cache.JitterMaxSeconds)
		closers = append(closers, func() { redisConn.Close() })
		log.Info("connected to redis")
	} else {
		rt.store = cache.NewMemory(cfg.Cache.JitterMaxSeconds)
	}

	rt.singleFlight = cache.NewSingleFlight(time.Duration(cfg.Aggregator.PerProviderTimeoutMS) * time.Millisecond)
	rt.catalog = catalog.New()
	rt.registry = provider.NewRegistry()
	rt.registry.Register(mockwire.ID, mockwire.New, true)
	rt.registry.Register(globalpay.ID, globalpay.New, true)
	rt.registry.Register(remitweb.ID, remitweb.New, false)

	if rt.auditRepo != nil {
		restoreProviderStates(rt)
	}

	httpClient := httputil.New(cfg, log)
	rt.adapterCtx = provider.Context{
		Catalog:    rt.catalog,
		HTTPClient: httpClient,
		Logger:     log,
		Now:        time.Now,
		CredentialFor: func(id string) config.ProviderCredential {
			return cfg.ProviderCredentials[id]
		},
	}
	if redisRateLimiter != nil {
		rt.adapterCtx.RedisLimiterFor = func(id string) httputil.RateLimiter {
			limitCfg, ok := providerRateLimits[id]
			if !ok {
				return nil
			}
			return redisRateLimiter.AsClientLimiter(limitCfg)
		}
	}

	rt.coordinator = coordinator.New(coordinator.Options{
		Catalog:            rt.catalog,
		Registry:           rt.registry,
		AdapterCtx:         rt.adapterCtx,
		Store:              rt.store,
		SingleFlight:       rt.singleFlight,
		Metrics:            metrics.New(prometheus.DefaultRegisterer),
		Logger:             log,
		QuoteTTL:           time.Duration(cfg.Cache.QuoteTTLSeconds) * time.Second,
		CorridorTTL:        time.Duration(cfg.Cache.CorridorTTLSeconds) * time.Second,
		DefaultPerProvider: time.Duration(cfg.Aggregator.PerProviderTimeoutMS) * time.Millisecond,
		MaxWorkers:         cfg.Aggregator.MaxWorkers,
		MaxAmount:          cfg.Aggregator.MaxAmount,
	})

	return rt, closeAll, nil
}

// restoreProviderStates applies any persisted enable/disable flags
// over each adapter's compiled-in default, so a restart doesn't
// silently re-enable a provider whose stored provider_state row
// disables it.
func restoreProviderStates(rt *runtime) {
	ctx, cancel := timeoutContext()
	defer cancel()

	states, err := rt.auditRepo.LoadProviderStates(ctx)
	if err != nil {
		rt.logger.WithError(err).Warn("failed to load persisted provider states, keeping compiled-in defaults")
		return
	}
	for id, enabled := range states {
		rt.registry.SetEnabled(id, enabled)
	}
}
