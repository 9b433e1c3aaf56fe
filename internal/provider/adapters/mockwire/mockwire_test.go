package mockwire

import (
	"context"
	"encoding/json"
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

func testAdapterContext(t *testing.T, baseURL string) provider.Context {
	t.Helper()
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
		DestCountry:    "MX",
		SourceCurrency: "USD",
		DestCurrency:   "MXN",
		Amount:         decimal.NewFromInt(500),
	}
}

func TestQuoteSelectsTierContainingAmountAndDefaultCombo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{
			Supported: true,
			Tiers: []wireTier{
				{Min: "0", Max: "499", Rate: "55.5"},
				{Min: "500", Max: "10,000", Rate: "56.22"},
			},
			Combinations: []wireCombo{
				{PaymentMethod: "bank_account", DeliveryMethod: "bank_deposit", Fee: "8.42", DeliveryMinutes: intPtr(1440), IsDefault: true},
				{PaymentMethod: "debit_card", DeliveryMethod: "cash_pickup", Fee: "1.00", DeliveryMinutes: intPtr(10)},
			},
		})
	}))
	defer server.Close()

	adapter := New(testAdapterContext(t, server.URL))
	raw := adapter.Quote(context.Background(), baseRequest(), time.Now().Add(time.Second))

	if !raw.Success {
		t.Fatalf("expected success, got %s: %s", raw.ErrorKind, raw.ErrorMessage)
	}
	if !raw.ExchangeRate.Equal(decimal.RequireFromString("56.22")) {
		t.Errorf("ExchangeRate = %s, want 56.22 (tier containing amount=500)", raw.ExchangeRate.String())
	}
	if !raw.Fee.Equal(decimal.RequireFromString("8.42")) {
		t.Errorf("Fee = %s, want 8.42 (default combination)", raw.Fee.String())
	}
	if raw.PaymentMethod != domain.PaymentBankAccount {
		t.Errorf("PaymentMethod = %s, want bank_account", raw.PaymentMethod)
	}
}

func TestQuoteSelectsLowestFeeWhenNoDefaultMarked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{
			Supported: true,
			Tiers:     []wireTier{{Min: "0", Max: "999999", Rate: "17.94"}},
			Combinations: []wireCombo{
				{PaymentMethod: "credit_card", DeliveryMethod: "bank_deposit", Fee: "5.00", DeliveryMinutes: intPtr(1440)},
				{PaymentMethod: "bank_account", DeliveryMethod: "cash_pickup", Fee: "2.00", DeliveryMinutes: intPtr(2880)},
			},
		})
	}))
	defer server.Close()

	adapter := New(testAdapterContext(t, server.URL))
	raw := adapter.Quote(context.Background(), baseRequest(), time.Now().Add(time.Second))

	if !raw.Success {
		t.Fatalf("expected success, got %s: %s", raw.ErrorKind, raw.ErrorMessage)
	}
	if !raw.Fee.Equal(decimal.RequireFromString("2.00")) {
		t.Errorf("Fee = %s, want 2.00 (lowest fee)", raw.Fee.String())
	}
}

func TestQuoteUnsupportedCorridor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{Supported: false})
	}))
	defer server.Close()

	adapter := New(testAdapterContext(t, server.URL))
	raw := adapter.Quote(context.Background(), baseRequest(), time.Now().Add(time.Second))

	if raw.Success {
		t.Fatal("expected failure for unsupported corridor")
	}
	if raw.ErrorKind != domain.ErrorKindUnsupportedCorridor {
		t.Errorf("ErrorKind = %s, want UnsupportedCorridor", raw.ErrorKind)
	}
}

func TestQuoteMalformedResponseIsParsingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	adapter := New(testAdapterContext(t, server.URL))
	raw := adapter.Quote(context.Background(), baseRequest(), time.Now().Add(time.Second))

	if raw.Success || raw.ErrorKind != domain.ErrorKindParsing {
		t.Errorf("expected Parsing failure, got success=%v kind=%s", raw.Success, raw.ErrorKind)
	}
}

func TestQuoteReturnsTimeoutWhenDeadlineAlreadyPassed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		json.NewEncoder(w).Encode(wireResponse{Supported: true})
	}))
	defer server.Close()

	adapter := New(testAdapterContext(t, server.URL))
	raw := adapter.Quote(context.Background(), baseRequest(), time.Now().Add(-time.Second))

	if raw.Success || raw.ErrorKind != domain.ErrorKindTimeout {
		t.Errorf("expected Timeout failure, got success=%v kind=%s", raw.Success, raw.ErrorKind)
	}
}

func TestSelectTierTiesPreferLowerMin(t *testing.T) {
	tiers := []wireTier{
		{Min: "0", Max: "1000", Rate: "10"},
		{Min: "500", Max: "1000", Rate: "20"},
	}
	tier, err := selectTier(tiers, decimal.NewFromInt(700))
	if err != nil {
		t.Fatalf("selectTier error: %v", err)
	}
	if tier.Rate != "10" {
		t.Errorf("selectTier() = %+v, want the min=0 band on overlap", tier)
	}
}

func TestSelectTierNoBandContainsAmount(t *testing.T) {
	tiers := []wireTier{{Min: "0", Max: "100", Rate: "10"}}
	if _, err := selectTier(tiers, decimal.NewFromInt(500)); err == nil {
		t.Error("expected error when no tier band contains the amount")
	}
}

func intPtr(v int) *int { return &v }
