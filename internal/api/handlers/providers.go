package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/pkg/logger"
)

// ProviderHandler serves the provider enumeration endpoints.
type ProviderHandler struct {
	registry   *provider.Registry
	adapterCtx provider.Context
	logger     *logger.Logger
}

// NewProviderHandler builds a ProviderHandler.
func NewProviderHandler(registry *provider.Registry, adapterCtx provider.Context, log *logger.Logger) *ProviderHandler {
	return &ProviderHandler{registry: registry, adapterCtx: adapterCtx, logger: log.WithField("handler", "providers")}
}

type providerSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Enabled     bool   `json:"enabled"`
}

type providerDetail struct {
	providerSummary
	SupportedCorridors []corridorView `json:"supported_corridors"`
}

type corridorView struct {
	SourceCountry string `json:"source_country"`
	DestCountry   string `json:"dest_country"`
}

// ListProviders serves GET /api/providers/.
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	ids := h.registry.ListIDs()
	summaries := make([]providerSummary, 0, len(ids))
	for _, id := range ids {
		adapter, err := h.registry.Build(id, h.adapterCtx)
		if err != nil {
			h.logger.WithError(err).WithField("provider_id", id).Warn("failed to build adapter for listing")
			continue
		}
		summaries = append(summaries, providerSummary{
			ID:          adapter.ID(),
			DisplayName: adapter.DisplayName(),
			Enabled:     h.registry.IsEnabled(id),
		})
	}
	respondJSON(w, http.StatusOK, summaries)
}

// GetProvider serves GET /api/providers/{id}/.
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	adapter, err := h.registry.Build(id, h.adapterCtx)
	if err != nil {
		respondError(w, http.StatusNotFound, domain.ErrorKindInvalidParameter, "unknown provider: "+id)
		return
	}

	corridors := adapter.SupportedCorridors()
	views := make([]corridorView, len(corridors))
	for i, c := range corridors {
		views[i] = corridorView{SourceCountry: c.SourceCountry, DestCountry: c.DestCountry}
	}

	respondJSON(w, http.StatusOK, providerDetail{
		providerSummary: providerSummary{
			ID:          adapter.ID(),
			DisplayName: adapter.DisplayName(),
			Enabled:     h.registry.IsEnabled(id),
		},
		SupportedCorridors: views,
	})
}
