// Package audit persists a durable record of aggregate calls and
// provider enable/disable state to Postgres. It supplements the
// in-memory Provider Registry (§4.C), which remains the runtime
// source of truth; this package is the mirror that survives a
// restart.
package audit

import (
	"time"
)

// CallRecord is one row of the aggregate_calls table: a summary of a
// single Coordinator.GetAllQuotes invocation.
type CallRecord struct {
	RequestID      string
	SourceCountry  string
	DestCountry    string
	SourceCurrency string
	DestCurrency   string
	Success        bool
	CacheHit       bool
	ElapsedMS      int64
	ProviderCount  int
	SuccessCount   int
	FailureCount   int
	CreatedAt      time.Time
}

// ProviderState is one row of the provider_state table: the durable
// mirror of Registry.SetEnabled for a single provider id.
type ProviderState struct {
	ProviderID string
	Enabled    bool
	UpdatedAt  time.Time
}
