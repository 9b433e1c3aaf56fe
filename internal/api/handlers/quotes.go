package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/audit"
	"github.com/wonny/remitquote/internal/catalog"
	"github.com/wonny/remitquote/internal/coordinator"
	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/pkg/logger"
)

// CallRecorder persists a durable summary of one GetAllQuotes call.
// internal/audit.Repository satisfies this; it's an interface here so
// handlers doesn't require Postgres in tests or in deployments that
// run without a database.
type CallRecorder interface {
	RecordCall(ctx context.Context, rec audit.CallRecord) error
}

// QuoteHandler serves the aggregate quote endpoint.
type QuoteHandler struct {
	coordinator *coordinator.Coordinator
	catalog     *catalog.Catalog
	logger      *logger.Logger
	recorder    CallRecorder
}

// NewQuoteHandler builds a QuoteHandler. Audit recording is opt-in via
// SetAuditRecorder; without it the handler works exactly as before.
func NewQuoteHandler(c *coordinator.Coordinator, cat *catalog.Catalog, log *logger.Logger) *QuoteHandler {
	return &QuoteHandler{coordinator: c, catalog: cat, logger: log.WithField("handler", "quotes")}
}

// SetAuditRecorder attaches a CallRecorder. Every GetAllQuotes call
// past request parsing is then mirrored to it, best-effort, on its own
// goroutine so a slow or unreachable database never adds latency to
// the HTTP response.
func (h *QuoteHandler) SetAuditRecorder(recorder CallRecorder) {
	h.recorder = recorder
}

// GetQuotes serves GET /api/quotes/ (§6).
func (h *QuoteHandler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuoteRequest(r)
	if err != nil {
		adapterErr, _ := err.(*domain.AdapterError)
		message := err.Error()
		if adapterErr != nil {
			message = adapterErr.Message
		}
		respondError(w, http.StatusBadRequest, domain.ErrorKindInvalidParameter, message)
		return
	}

	result := h.coordinator.GetAllQuotes(r.Context(), req)
	h.recordAudit(result)

	if !result.Success {
		if failure, ok := result.Errors["request"]; ok {
			respondError(w, statusForErrorKind(failure.ErrorKind), failure.ErrorKind, failure.ErrorMessage)
			return
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// recordAudit mirrors result to h.recorder on its own goroutine. It
// only fires for calls that reached the coordinator (never for
// request-parsing failures, which never touched a provider).
func (h *QuoteHandler) recordAudit(result domain.AggregateResult) {
	if h.recorder == nil {
		return
	}

	successCount, failureCount := 0, 0
	for _, q := range result.AllProviders {
		if q.Success {
			successCount++
		} else {
			failureCount++
		}
	}

	rec := audit.CallRecord{
		RequestID:      result.RequestID,
		SourceCountry:  result.Request.SourceCountry,
		DestCountry:    result.Request.DestCountry,
		SourceCurrency: result.Request.SourceCurrency,
		DestCurrency:   result.Request.DestCurrency,
		Success:        result.Success,
		CacheHit:       result.CacheHit,
		ElapsedMS:      result.ElapsedMS,
		ProviderCount:  len(result.AllProviders),
		SuccessCount:   successCount,
		FailureCount:   failureCount,
		CreatedAt:      result.Timestamp,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.recorder.RecordCall(ctx, rec); err != nil {
			h.logger.WithError(err).Warn("failed to record audit call")
		}
	}()
}

func parseQuoteRequest(r *http.Request) (domain.QuoteRequest, error) {
	q := r.URL.Query()

	req := domain.QuoteRequest{
		SourceCountry:  strings.ToUpper(q.Get("source_country")),
		DestCountry:    strings.ToUpper(q.Get("dest_country")),
		SourceCurrency: strings.ToUpper(q.Get("source_currency")),
		DestCurrency:   strings.ToUpper(q.Get("dest_currency")),
	}

	if req.SourceCountry == "" || req.DestCountry == "" || req.SourceCurrency == "" || req.DestCurrency == "" {
		return domain.QuoteRequest{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter,
			"source_country, dest_country, source_currency and dest_currency are required", nil)
	}

	amountStr := q.Get("amount")
	if amountStr == "" {
		return domain.QuoteRequest{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter, "amount is required", nil)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return domain.QuoteRequest{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter, "amount is not a valid decimal", err)
	}
	req.Amount = amount

	if pm := domain.PaymentMethod(q.Get("payment_method")); pm != "" {
		if !pm.Valid() {
			return domain.QuoteRequest{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter, "unrecognized payment_method: "+string(pm), nil)
		}
		req.PaymentMethod = pm
	}
	if dm := domain.DeliveryMethod(q.Get("delivery_method")); dm != "" {
		if !dm.Valid() {
			return domain.QuoteRequest{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter, "unrecognized delivery_method: "+string(dm), nil)
		}
		req.DeliveryMethod = dm
	}

	opts, err := parseQuoteOptions(q)
	if err != nil {
		return domain.QuoteRequest{}, err
	}
	req.Options = opts
	return req, nil
}

func parseQuoteOptions(q map[string][]string) (domain.QuoteOptions, error) {
	get := func(key string) string {
		values := q[key]
		if len(values) == 0 {
			return ""
		}
		return values[0]
	}

	opts := domain.QuoteOptions{
		ForceRefresh: get("force_refresh") == "true",
		IncludeRaw:   get("include_raw") == "true",
	}

	if sortBy := domain.SortBy(get("sort_by")); sortBy != "" {
		if !sortBy.Valid() {
			return domain.QuoteOptions{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter, "unrecognized sort_by: "+string(sortBy), nil)
		}
		opts.SortBy = sortBy
	} else {
		opts.SortBy = domain.SortBestRate
	}

	if raw := get("max_fee"); raw != "" {
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.QuoteOptions{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter, "max_fee is not a valid decimal", err)
		}
		opts.MaxFee = &fee
	}

	if raw := get("max_delivery_time_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return domain.QuoteOptions{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter, "max_delivery_time_minutes is not an integer", err)
		}
		opts.MaxDeliveryTimeMinutes = &minutes
	}

	if raw := get("per_provider_timeout_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return domain.QuoteOptions{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter, "per_provider_timeout_ms is not an integer", err)
		}
		opts.PerProviderTimeoutMS = &ms
	}

	if raw := get("max_workers"); raw != "" {
		workers, err := strconv.Atoi(raw)
		if err != nil {
			return domain.QuoteOptions{}, domain.NewAdapterError(domain.ErrorKindInvalidParameter, "max_workers is not an integer", err)
		}
		opts.MaxWorkers = &workers
	}

	if raw := get("include_providers"); raw != "" {
		opts.IncludeProviders = splitCSV(raw)
	}
	if raw := get("exclude_providers"); raw != "" {
		opts.ExcludeProviders = splitCSV(raw)
	}

	return opts, nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
