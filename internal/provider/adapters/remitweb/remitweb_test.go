package remitweb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/catalog"
	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/pkg/config"
	"github.com/wonny/remitquote/pkg/httputil"
	"github.com/wonny/remitquote/pkg/logger"
)

func testAdapterContext(baseURL string) provider.Context {
	cfg := &config.Config{Env: "test", LogLevel: "error"}
	log := logger.New(cfg)
	return provider.Context{
		Catalog:    catalog.New(),
		HTTPClient: httputil.New(cfg, log).DisableRetry(),
		Logger:     log,
		Now:        time.Now,
		CredentialFor: func(string) config.ProviderCredential {
			return config.ProviderCredential{BaseURL: baseURL}
		},
	}
}

func baseRequest() domain.QuoteRequest {
	return domain.QuoteRequest{
		SourceCountry:  "US",
		DestCountry:    "IN",
		SourceCurrency: "USD",
		DestCurrency:   "INR",
		Amount:         decimal.NewFromInt(1000),
	}
}

const ratesPageWithDefault = `
<html><body>
<table class="rates">
<tbody>
<tr class="row default"><td>bank_account</td><td>bank_deposit</td><td>83.10</td><td>2.99</td><td>1 business day</td></tr>
<tr class="row"><td>debit_card</td><td>cash_pickup</td><td>82.50</td><td>0.99</td><td>instant</td></tr>
</tbody>
</table>
</body></html>`

const ratesPageNoDefault = `
<html><body>
<table class="rates">
<tbody>
<tr><td>credit_card</td><td>bank_deposit</td><td>82.90</td><td>4.50</td><td>2 business days</td></tr>
<tr><td>bank_account</td><td>cash_pickup</td><td>83.00</td><td>1,000</td><td>instant</td></tr>
</tbody>
</table>
</body></html>`

const emptyRatesPage = `<html><body><p>No rates available for this corridor.</p></body></html>`

func TestQuotePicksMarkedDefaultRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ratesPageWithDefault))
	}))
	defer server.Close()

	adapter := New(testAdapterContext(server.URL))
	raw := adapter.Quote(context.Background(), baseRequest(), time.Now().Add(2*time.Second))

	if !raw.Success {
		t.Fatalf("expected success, got %s: %s", raw.ErrorKind, raw.ErrorMessage)
	}
	if !raw.ExchangeRate.Equal(decimal.RequireFromString("83.10")) {
		t.Errorf("ExchangeRate = %s, want 83.10 (marked default row)", raw.ExchangeRate.String())
	}
	if raw.PaymentMethod != domain.PaymentBankAccount {
		t.Errorf("PaymentMethod = %s, want bank_account", raw.PaymentMethod)
	}
	if raw.DeliveryTimeMinutes == nil || *raw.DeliveryTimeMinutes != 1440 {
		t.Errorf("DeliveryTimeMinutes = %v, want 1440", raw.DeliveryTimeMinutes)
	}
}

func TestQuoteFallsBackToLowestFeeWithoutDefaultRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ratesPageNoDefault))
	}))
	defer server.Close()

	adapter := New(testAdapterContext(server.URL))
	raw := adapter.Quote(context.Background(), baseRequest(), time.Now().Add(2*time.Second))

	if !raw.Success {
		t.Fatalf("expected success, got %s: %s", raw.ErrorKind, raw.ErrorMessage)
	}
	if !raw.ExchangeRate.Equal(decimal.RequireFromString("82.90")) {
		t.Errorf("ExchangeRate = %s, want 82.90 (lowest fee, commas stripped from the other row's fee)", raw.ExchangeRate.String())
	}
}

func TestQuoteEmptyTableIsUnsupportedCorridor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyRatesPage))
	}))
	defer server.Close()

	adapter := New(testAdapterContext(server.URL))
	raw := adapter.Quote(context.Background(), baseRequest(), time.Now().Add(2*time.Second))

	if raw.Success || raw.ErrorKind != domain.ErrorKindUnsupportedCorridor {
		t.Errorf("expected UnsupportedCorridor, got success=%v kind=%s", raw.Success, raw.ErrorKind)
	}
}

func TestQuoteNotFoundIsUnsupportedCorridor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := New(testAdapterContext(server.URL))
	raw := adapter.Quote(context.Background(), baseRequest(), time.Now().Add(2*time.Second))

	if raw.Success || raw.ErrorKind != domain.ErrorKindUnsupportedCorridor {
		t.Errorf("expected UnsupportedCorridor for 404, got success=%v kind=%s", raw.Success, raw.ErrorKind)
	}
}

func TestSelectRowTiesBreakByLexicographicOrder(t *testing.T) {
	rows := []scrapedRow{
		{paymentMethod: "debit_card", deliveryMethod: "cash_pickup", rate: decimal.NewFromInt(80), fee: decimal.NewFromInt(1), deliveryText: "instant"},
		{paymentMethod: "bank_account", deliveryMethod: "cash_pickup", rate: decimal.NewFromInt(80), fee: decimal.NewFromInt(1), deliveryText: "instant"},
	}
	chosen := selectRow(rows)
	if chosen.paymentMethod != "bank_account" {
		t.Errorf("selectRow() picked %q, want bank_account (lexicographically least)", chosen.paymentMethod)
	}
}
