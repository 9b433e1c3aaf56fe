package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wonny/remitquote/internal/api/handlers"
	"github.com/wonny/remitquote/internal/cache"
	"github.com/wonny/remitquote/internal/catalog"
	"github.com/wonny/remitquote/internal/coordinator"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/pkg/config"
	"github.com/wonny/remitquote/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error"})
}

func buildTestRouter(limiter RateLimiter) http.Handler {
	registry := provider.NewRegistry()
	cat := catalog.New()
	c := coordinator.New(coordinator.Options{
		Catalog:      cat,
		Registry:     registry,
		Store:        cache.NewMemory(0),
		SingleFlight: cache.NewSingleFlight(0),
		Logger:       testLogger(),
	})
	quoteHandler := handlers.NewQuoteHandler(c, cat, testLogger())
	providerHandler := handlers.NewProviderHandler(registry, provider.Context{}, testLogger())
	return NewRouter(quoteHandler, providerHandler, limiter, testLogger())
}

func TestRouterHealthCheck(t *testing.T) {
	router := buildTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

type failingHealthChecker struct{}

func (failingHealthChecker) HealthCheck(ctx context.Context) (interface{}, error) {
	return map[string]string{"error": "connection refused"}, errUnhealthy
}

var errUnhealthy = fmt.Errorf("unhealthy")

func TestRouterHealthCheckReportsDegradedStore(t *testing.T) {
	registry := provider.NewRegistry()
	cat := catalog.New()
	c := coordinator.New(coordinator.Options{
		Catalog:      cat,
		Registry:     registry,
		Store:        cache.NewMemory(0),
		SingleFlight: cache.NewSingleFlight(0),
		Logger:       testLogger(),
	})
	quoteHandler := handlers.NewQuoteHandler(c, cat, testLogger())
	providerHandler := handlers.NewProviderHandler(registry, provider.Context{}, testLogger())
	router := NewRouter(quoteHandler, providerHandler, nil, testLogger(), failingHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

type alwaysDeny struct{}

func (alwaysDeny) Allow(ctx context.Context) (bool, error) { return false, nil }

func TestRouterRateLimitRejectsOverBudgetRequests(t *testing.T) {
	router := buildTestRouter(alwaysDeny{})
	req := httptest.NewRequest(http.MethodGet, "/api/providers/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
}

type alwaysAllow struct{}

func (alwaysAllow) Allow(ctx context.Context) (bool, error) { return true, nil }

func TestRouterAllowsRequestsUnderBudget(t *testing.T) {
	router := buildTestRouter(alwaysAllow{})
	req := httptest.NewRequest(http.MethodGet, "/api/providers/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
