package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/provider"
)

type fakeAdapter struct {
	id         string
	corridors  []provider.Corridor
}

func (a fakeAdapter) ID() string          { return a.id }
func (a fakeAdapter) DisplayName() string { return "Fake " + a.id }
func (a fakeAdapter) SupportedCorridors() []provider.Corridor { return a.corridors }
func (a fakeAdapter) Quote(ctx context.Context, req domain.QuoteRequest, deadline time.Time) *provider.RawResult {
	return provider.Failure(a.id, domain.ErrorKindInternal, "unused in this test")
}

func buildTestRegistry() *provider.Registry {
	r := provider.NewRegistry()
	r.Register("mockwire", func(ctx provider.Context) provider.Adapter {
		return fakeAdapter{id: "mockwire", corridors: []provider.Corridor{{SourceCountry: "US", DestCountry: "MX"}}}
	}, true)
	r.Register("remitweb", func(ctx provider.Context) provider.Adapter {
		return fakeAdapter{id: "remitweb"}
	}, false)
	return r
}

func TestListProvidersReturnsEveryRegisteredID(t *testing.T) {
	registry := buildTestRegistry()
	handler := NewProviderHandler(registry, provider.Context{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/providers/", nil)
	rr := httptest.NewRecorder()
	handler.ListProviders(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var summaries []providerSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	if summaries[0].ID != "mockwire" || !summaries[0].Enabled {
		t.Errorf("summaries[0] = %+v, want enabled mockwire", summaries[0])
	}
	if summaries[1].ID != "remitweb" || summaries[1].Enabled {
		t.Errorf("summaries[1] = %+v, want disabled remitweb", summaries[1])
	}
}

func TestGetProviderReturnsCorridors(t *testing.T) {
	registry := buildTestRegistry()
	handler := NewProviderHandler(registry, provider.Context{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/providers/mockwire/", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "mockwire"})
	rr := httptest.NewRecorder()
	handler.GetProvider(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var detail providerDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(detail.SupportedCorridors) != 1 || detail.SupportedCorridors[0].SourceCountry != "US" {
		t.Errorf("unexpected corridors: %+v", detail.SupportedCorridors)
	}
}

func TestGetProviderUnknownIDReturns404(t *testing.T) {
	registry := buildTestRegistry()
	handler := NewProviderHandler(registry, provider.Context{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/providers/nope/", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "nope"})
	rr := httptest.NewRecorder()
	handler.GetProvider(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}
