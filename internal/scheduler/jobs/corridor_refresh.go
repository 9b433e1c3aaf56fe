package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/remitquote/internal/cache"
	"github.com/wonny/remitquote/pkg/logger"
)

// corridorSupportPrefix matches every key cache.CorridorKey produces.
const corridorSupportPrefix = "corridor:"

// CorridorRefreshJob periodically clears the corridor-unsupported
// bookkeeping internal/coordinator writes (see
// Coordinator.UnsupportedProviders), so a provider that starts
// supporting a corridor gets re-probed instead of staying marked
// unsupported until an unrelated quote cache entry happens to expire.
type CorridorRefreshJob struct {
	store    cache.Store
	logger   *logger.Logger
	schedule string
}

// NewCorridorRefreshJob builds the job against the same Store the
// coordinator uses.
func NewCorridorRefreshJob(store cache.Store, log *logger.Logger, schedule string) *CorridorRefreshJob {
	return &CorridorRefreshJob{store: store, logger: log, schedule: schedule}
}

func (j *CorridorRefreshJob) Name() string     { return "corridor_refresh" }
func (j *CorridorRefreshJob) Schedule() string { return j.schedule }

// Run clears every cached corridor-support entry.
func (j *CorridorRefreshJob) Run(ctx context.Context) error {
	if err := j.store.InvalidatePrefix(ctx, corridorSupportPrefix); err != nil {
		return fmt.Errorf("corridor refresh: %w", err)
	}
	j.logger.Info("corridor support cache cleared")
	return nil
}
