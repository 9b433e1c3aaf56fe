// Package fanout implements the bounded worker-pool that dispatches
// one QuoteRequest to many provider adapters in parallel (§4.E).
package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/pkg/logger"
)

const (
	// DefaultPerProviderTimeout is the deadline given to each adapter
	// when the caller doesn't override it.
	DefaultPerProviderTimeout = 30 * time.Second

	// MaxWorkers bounds the worker pool regardless of adapter count.
	MaxWorkers = 32

	// DrainTimeout is how long the executor waits for in-flight
	// workers to acknowledge cancellation before abandoning them.
	DrainTimeout = 2 * time.Second
)

// Job is one adapter to invoke for the current request.
type Job struct {
	Adapter provider.Adapter
}

// Result pairs an adapter id with its outcome.
type Result struct {
	ProviderID      string
	Raw             *provider.RawResult
	DurationSeconds float64
}

// Executor runs a bounded worker pool over a set of adapters.
type Executor struct {
	logger    *logger.Logger
	workerCap int
}

// New builds an Executor with the package default worker cap.
func New(log *logger.Logger) *Executor {
	return &Executor{logger: log.WithField("module", "fanout"), workerCap: MaxWorkers}
}

// NewWithCap builds an Executor whose pool never exceeds cap
// regardless of a per-call MaxWorkers, honoring AGGREGATOR_MAX_WORKERS
// when it's configured tighter than the package default. cap <= 0
// falls back to the package default.
func NewWithCap(log *logger.Logger, cap int) *Executor {
	if cap <= 0 {
		cap = MaxWorkers
	}
	return &Executor{logger: log.WithField("module", "fanout"), workerCap: cap}
}

// Options configures a single Run call.
type Options struct {
	PerProviderTimeout time.Duration
	MaxWorkers         int
}

// Run dispatches req to every adapter, in the order given, and
// returns one Result per adapter, in that same order — the caller
// (the coordinator) relies on this order matching registry order for
// AllProviders in the response (§3).
//
// Run itself never blocks past ctx's cancellation plus DrainTimeout:
// once the drain timeout elapses, any workers still running are
// abandoned and their slots recorded as Connection failures,
// and Run returns.
func (e *Executor) Run(ctx context.Context, req domain.QuoteRequest, adapters []provider.Adapter, opts Options) []Result {
	timeout := opts.PerProviderTimeout
	if timeout <= 0 {
		timeout = DefaultPerProviderTimeout
	}
	cap := e.workerCap
	if cap <= 0 {
		cap = MaxWorkers
	}
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = len(adapters)
	}
	if workers > cap {
		workers = cap
	}
	if workers == 0 {
		return nil
	}

	results := make([]Result, len(adapters))
	jobs := make(chan int, len(adapters))
	done := make(chan struct{})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go e.worker(ctx, req, adapters, timeout, jobs, results, &wg)
	}

	for i := range adapters {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(DrainTimeout):
			e.logger.Warn("drain timeout exceeded, abandoning in-flight adapters")
		}
	}

	for i, adapter := range adapters {
		if results[i].Raw == nil {
			results[i] = Result{
				ProviderID: adapter.ID(),
				Raw:        provider.Failure(adapter.ID(), domain.ErrorKindConnection, "abandoned: executor cancelled before result arrived"),
			}
		}
	}
	return results
}

func (e *Executor) worker(
	ctx context.Context,
	req domain.QuoteRequest,
	adapters []provider.Adapter,
	timeout time.Duration,
	jobs <-chan int,
	results []Result,
	wg *sync.WaitGroup,
) {
	defer wg.Done()
	for i := range jobs {
		adapter := adapters[i]
		callStart := time.Now()
		raw := e.invoke(ctx, adapter, req, timeout)
		results[i] = Result{
			ProviderID:      adapter.ID(),
			Raw:             raw,
			DurationSeconds: time.Since(callStart).Seconds(),
		}
	}
}

// invoke calls a single adapter with panic isolation and deadline
// enforcement. A panicking adapter, or one that returns after its
// deadline, is recorded as a failure rather than crashing the whole
// aggregate.
func (e *Executor) invoke(ctx context.Context, adapter provider.Adapter, req domain.QuoteRequest, timeout time.Duration) (raw *provider.RawResult) {
	deadline := time.Now().Add(timeout)
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	resultCh := make(chan *provider.RawResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.WithField("provider_id", adapter.ID()).WithField("panic", r).Error("adapter panicked")
				resultCh <- provider.Failure(adapter.ID(), domain.ErrorKindInternal, "adapter panicked")
				return
			}
		}()
		resultCh <- adapter.Quote(callCtx, req, deadline)
	}()

	select {
	case result := <-resultCh:
		if result == nil {
			return provider.Failure(adapter.ID(), domain.ErrorKindInternal, "adapter returned a nil result")
		}
		return result
	case <-callCtx.Done():
		return provider.Failure(adapter.ID(), domain.ErrorKindTimeout, "adapter exceeded its per-provider deadline")
	}
}
