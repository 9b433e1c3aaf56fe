package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/remitquote/internal/api/handlers"
	"github.com/wonny/remitquote/pkg/logger"
)

// RateLimiter is the client-facing limiter checked against the /api
// subrouter (§6, 429 responses). Non-blocking by design: a
// caller over budget gets an immediate rejection rather than a
// delayed response.
type RateLimiter interface {
	Allow(ctx context.Context) (bool, error)
}

// HealthChecker probes a backing store's reachability. pkg/database.DB's
// HealthCheck returns a concrete *HealthStatus, so the serve command
// wraps it in a small adapter to satisfy this; /health degrades to a
// bare liveness response when none is supplied, which is the case for
// every deployment that runs without Postgres.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (interface{}, error)
}

// NewRouter creates and configures the HTTP router. healthChecker is
// optional (variadic so existing call sites without one still
// compile); when present, /health reports its result instead of a
// bare "ok".
func NewRouter(quoteHandler *handlers.QuoteHandler, providerHandler *handlers.ProviderHandler, limiter RateLimiter, log *logger.Logger, healthChecker ...HealthChecker) http.Handler {
	r := mux.NewRouter()

	var checker HealthChecker
	if len(healthChecker) > 0 {
		checker = healthChecker[0]
	}
	r.HandleFunc("/health", healthCheckHandler(checker)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/quotes/", quoteHandler.GetQuotes).Methods("GET")
	api.HandleFunc("/providers/", providerHandler.ListProviders).Methods("GET")
	api.HandleFunc("/providers/{id}/", providerHandler.GetProvider).Methods("GET")
	api.Use(rateLimitMiddleware(limiter, log))

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := map[string]interface{}{
			"status":  "ok",
			"service": "remitquote-api",
		}
		if checker != nil {
			status, err := checker.HealthCheck(r.Context())
			if err != nil {
				body["status"] = "degraded"
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			body["database"] = status
		}
		json.NewEncoder(w).Encode(body)
	}
}

func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware enforces §6's aggregator-surface rate
// limit. A nil limiter (e.g. Redis disabled) means unlimited.
func rateLimitMiddleware(limiter RateLimiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil {
				allowed, err := limiter.Allow(r.Context())
				if err != nil {
					log.WithError(err).Warn("rate limiter check failed, allowing request")
				} else if !allowed {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusTooManyRequests)
					json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
