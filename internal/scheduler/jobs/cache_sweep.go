package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/remitquote/pkg/logger"
)

// sweeper is satisfied by internal/cache.Memory. The Redis-backed store
// needs no equivalent since Redis expires keys natively.
type sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// CacheSweepJob proactively evicts expired entries from an in-process
// cache.Memory store. A no-op (Run returns nil immediately) when the
// configured store isn't a sweeper, i.e. when Redis backs the cache.
type CacheSweepJob struct {
	store    sweeper
	logger   *logger.Logger
	schedule string
}

// NewCacheSweepJob builds the job. store may be nil or a non-sweeping
// implementation; Run degrades to a no-op in that case rather than
// failing, since a Redis-backed deployment has nothing for it to do.
func NewCacheSweepJob(store interface{}, log *logger.Logger, schedule string) *CacheSweepJob {
	s, _ := store.(sweeper)
	return &CacheSweepJob{store: s, logger: log, schedule: schedule}
}

func (j *CacheSweepJob) Name() string     { return "cache_sweep" }
func (j *CacheSweepJob) Schedule() string { return j.schedule }

// Run evicts expired entries and logs how many were removed.
func (j *CacheSweepJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	evicted, err := j.store.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("cache sweep: %w", err)
	}
	j.logger.WithField("evicted", evicted).Info("cache sweep completed")
	return nil
}
