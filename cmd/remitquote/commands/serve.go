package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/remitquote/internal/api"
	"github.com/wonny/remitquote/internal/api/handlers"
	"github.com/wonny/remitquote/internal/scheduler"
	"github.com/wonny/remitquote/internal/scheduler/jobs"
	"github.com/wonny/remitquote/pkg/database"
	pkgredis "github.com/wonny/remitquote/pkg/redis"
)

// dbHealthChecker adapts *database.DB's concretely-typed HealthCheck
// to api.HealthChecker, which returns interface{} so internal/api
// doesn't need to import pkg/database just to describe a health probe.
type dbHealthChecker struct {
	db *database.DB
}

func (h dbHealthChecker) HealthCheck(ctx context.Context) (interface{}, error) {
	return h.db.HealthCheck(ctx)
}

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the aggregator's HTTP API (§6):

  GET  /health
  GET  /metrics
  GET  /api/quotes/
  GET  /api/providers/
  GET  /api/providers/{id}/

Example:
  remitquote serve
  remitquote serve --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "override PORT from configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, closeRuntime, err := buildRuntime()
	if err != nil {
		return err
	}
	defer closeRuntime()

	if servePort != "" {
		rt.cfg.Port = servePort
	}
	log := rt.logger

	quoteHandler := handlers.NewQuoteHandler(rt.coordinator, rt.catalog, log)
	if rt.auditRepo != nil {
		quoteHandler.SetAuditRecorder(rt.auditRepo)
	}
	providerHandler := handlers.NewProviderHandler(rt.registry, rt.adapterCtx, log)

	var apiLimiter api.RateLimiter
	if rt.redisConn != nil {
		apiLimiter = pkgredis.NewRateLimiter(rt.redisConn, "remitquote").AsClientLimiter(pkgredis.APIRateLimit)
	}

	var router http.Handler
	if rt.db != nil {
		router = api.NewRouter(quoteHandler, providerHandler, apiLimiter, log, dbHealthChecker{rt.db})
	} else {
		router = api.NewRouter(quoteHandler, providerHandler, apiLimiter, log)
	}
	server := api.New(rt.cfg, log, router)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewCacheSweepJob(rt.store, log, "0 */5 * * * *")); err != nil {
		return fmt.Errorf("register cache sweep job: %w", err)
	}
	if err := sched.AddJob(jobs.NewCorridorRefreshJob(rt.store, log, "0 0 * * * *")); err != nil {
		return fmt.Errorf("register corridor refresh job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	log.WithFields(map[string]interface{}{"port": rt.cfg.Port, "env": rt.cfg.Env}).Info("remitquote API server started")
	fmt.Printf("remitquote listening on http://localhost:%s (Ctrl+C to stop)\n", rt.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
