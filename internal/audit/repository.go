package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists CallRecord and ProviderState rows to Postgres.
// It assumes the audit.aggregate_calls and audit.provider_state tables
// already exist in the target schema; this package does not run
// migrations, it only reads and writes rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository backed by an existing pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordCall inserts one summary row per Coordinator.GetAllQuotes call.
func (r *Repository) RecordCall(ctx context.Context, rec CallRecord) error {
	query := `
		INSERT INTO audit.aggregate_calls (
			request_id, source_country, dest_country, source_currency, dest_currency,
			success, cache_hit, elapsed_ms, provider_count, success_count, failure_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.RequestID, rec.SourceCountry, rec.DestCountry, rec.SourceCurrency, rec.DestCurrency,
		rec.Success, rec.CacheHit, rec.ElapsedMS, rec.ProviderCount, rec.SuccessCount, rec.FailureCount, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// SetProviderState upserts the enable/disable flag for one provider id,
// mirroring Registry.SetEnabled so it survives a restart.
func (r *Repository) SetProviderState(ctx context.Context, providerID string, enabled bool) error {
	query := `
		INSERT INTO audit.provider_state (provider_id, enabled, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (provider_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, providerID, enabled)
	if err != nil {
		return fmt.Errorf("set provider state for %s: %w", providerID, err)
	}
	return nil
}

// LoadProviderStates returns every stored provider_id -> enabled flag,
// used at startup to restore the Registry's enable/disable state before
// the first request is served. An empty map (not an error) means no
// state has been persisted yet, so callers should keep each adapter's
// compiled-in default.
func (r *Repository) LoadProviderStates(ctx context.Context) (map[string]bool, error) {
	query := `SELECT provider_id, enabled FROM audit.provider_state`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load provider states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]bool)
	for rows.Next() {
		var id string
		var enabled bool
		if err := rows.Scan(&id, &enabled); err != nil {
			return nil, fmt.Errorf("scan provider state: %w", err)
		}
		states[id] = enabled
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider states: %w", err)
	}
	return states, nil
}

// RecentCalls returns the most recent aggregate_calls rows, newest
// first, capped at limit.
func (r *Repository) RecentCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	query := `
		SELECT request_id, source_country, dest_country, source_currency, dest_currency,
			success, cache_hit, elapsed_ms, provider_count, success_count, failure_count, created_at
		FROM audit.aggregate_calls
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent calls: %w", err)
	}
	defer rows.Close()

	records := make([]CallRecord, 0, limit)
	for rows.Next() {
		var rec CallRecord
		if err := rows.Scan(
			&rec.RequestID, &rec.SourceCountry, &rec.DestCountry, &rec.SourceCurrency, &rec.DestCurrency,
			&rec.Success, &rec.CacheHit, &rec.ElapsedMS, &rec.ProviderCount, &rec.SuccessCount, &rec.FailureCount, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call records: %w", err)
	}
	return records, nil
}

// ProviderState looks up the persisted state of a single provider,
// returning pgx.ErrNoRows unwrapped so callers can distinguish "never
// recorded" from a real error.
func (r *Repository) ProviderState(ctx context.Context, providerID string) (bool, error) {
	query := `SELECT enabled FROM audit.provider_state WHERE provider_id = $1`

	var enabled bool
	err := r.pool.QueryRow(ctx, query, providerID).Scan(&enabled)
	if err == pgx.ErrNoRows {
		return false, pgx.ErrNoRows
	}
	if err != nil {
		return false, fmt.Errorf("get provider state for %s: %w", providerID, err)
	}
	return enabled, nil
}
