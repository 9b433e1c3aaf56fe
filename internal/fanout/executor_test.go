package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/pkg/config"
	"github.com/wonny/remitquote/pkg/logger"
)

type fakeAdapter struct {
	id    string
	delay time.Duration
	panicOnCall bool
	quote func(ctx context.Context, req domain.QuoteRequest, deadline time.Time) *provider.RawResult
}

func (f *fakeAdapter) ID() string                            { return f.id }
func (f *fakeAdapter) DisplayName() string                   { return f.id }
func (f *fakeAdapter) SupportedCorridors() []provider.Corridor { return nil }
func (f *fakeAdapter) Quote(ctx context.Context, req domain.QuoteRequest, deadline time.Time) *provider.RawResult {
	if f.panicOnCall {
		panic("boom")
	}
	if f.quote != nil {
		return f.quote(ctx, req, deadline)
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return provider.Failure(f.id, domain.ErrorKindTimeout, "cancelled")
	}
	fee := decimal.NewFromFloat(1.0)
	return &provider.RawResult{
		ProviderID:          f.id,
		Success:             true,
		SendAmount:          req.Amount,
		SourceCurrency:      req.SourceCurrency,
		DestinationAmount:   req.Amount,
		DestinationCurrency: req.DestCurrency,
		Fee:                 &fee,
	}
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error"})
}

func testRequest() domain.QuoteRequest {
	return domain.QuoteRequest{
		SourceCountry:  "US",
		DestCountry:    "MX",
		SourceCurrency: "USD",
		DestCurrency:   "MXN",
		Amount:         decimal.NewFromInt(100),
	}
}

func TestExecutorRunReturnsAllResultsInOrder(t *testing.T) {
	e := New(testLogger())
	adapters := []provider.Adapter{
		&fakeAdapter{id: "p1"},
		&fakeAdapter{id: "p2"},
		&fakeAdapter{id: "p3"},
	}

	results := e.Run(context.Background(), testRequest(), adapters, Options{})

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if results[i].ProviderID != want {
			t.Errorf("results[%d].ProviderID = %s, want %s", i, results[i].ProviderID, want)
		}
		if !results[i].Raw.Success {
			t.Errorf("results[%d] expected success", i)
		}
	}
}

func TestExecutorPerProviderTimeout(t *testing.T) {
	e := New(testLogger())
	adapters := []provider.Adapter{
		&fakeAdapter{id: "slow", delay: 500 * time.Millisecond},
		&fakeAdapter{id: "fast", delay: 0},
	}

	results := e.Run(context.Background(), testRequest(), adapters, Options{
		PerProviderTimeout: 50 * time.Millisecond,
	})

	var slow, fast Result
	for _, r := range results {
		if r.ProviderID == "slow" {
			slow = r
		}
		if r.ProviderID == "fast" {
			fast = r
		}
	}
	if slow.Raw.Success {
		t.Error("expected slow adapter to time out")
	}
	if slow.Raw.ErrorKind != domain.ErrorKindTimeout {
		t.Errorf("slow.Raw.ErrorKind = %s, want %s", slow.Raw.ErrorKind, domain.ErrorKindTimeout)
	}
	if !fast.Raw.Success {
		t.Error("expected fast adapter to succeed")
	}
}

func TestExecutorPanicIsolation(t *testing.T) {
	e := New(testLogger())
	adapters := []provider.Adapter{
		&fakeAdapter{id: "panicky", panicOnCall: true},
		&fakeAdapter{id: "healthy"},
	}

	results := e.Run(context.Background(), testRequest(), adapters, Options{})

	var panicky, healthy Result
	for _, r := range results {
		if r.ProviderID == "panicky" {
			panicky = r
		}
		if r.ProviderID == "healthy" {
			healthy = r
		}
	}
	if panicky.Raw.Success {
		t.Error("expected panicking adapter to be recorded as a failure")
	}
	if panicky.Raw.ErrorKind != domain.ErrorKindInternal {
		t.Errorf("panicky.Raw.ErrorKind = %s, want %s", panicky.Raw.ErrorKind, domain.ErrorKindInternal)
	}
	if !healthy.Raw.Success {
		t.Error("expected the other adapter to be unaffected by the panic")
	}
}

func TestExecutorHonorsCancellation(t *testing.T) {
	e := New(testLogger())
	adapters := []provider.Adapter{
		&fakeAdapter{id: "p1", delay: time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := e.Run(ctx, testRequest(), adapters, Options{})
	elapsed := time.Since(start)

	if elapsed > DrainTimeout+500*time.Millisecond {
		t.Errorf("Run took %v, expected to return within drain timeout of cancellation", elapsed)
	}
	if len(results) != 1 || results[0].Raw.Success {
		t.Error("expected the cancelled adapter's slot to be recorded as a failure")
	}
}

func TestExecutorBoundsWorkerCount(t *testing.T) {
	e := New(testLogger())
	adapters := make([]provider.Adapter, 0, 5)
	for i := 0; i < 5; i++ {
		adapters = append(adapters, &fakeAdapter{id: "p", delay: 10 * time.Millisecond})
	}

	results := e.Run(context.Background(), testRequest(), adapters, Options{MaxWorkers: 2})
	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(results))
	}
}
