package catalog

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/domain"
)

func TestIsValidISOCountry(t *testing.T) {
	c := New()

	if !c.IsValidISOCountry("US") {
		t.Error("expected US to be valid")
	}
	if !c.IsValidISOCountry("mx") {
		t.Error("expected lowercase mx to be valid")
	}
	if c.IsValidISOCountry("ZZ") {
		t.Error("expected ZZ to be invalid")
	}
}

func TestIsValidISOCurrency(t *testing.T) {
	c := New()

	if !c.IsValidISOCurrency("USD") {
		t.Error("expected USD to be valid")
	}
	if c.IsValidISOCurrency("XXX") {
		t.Error("expected XXX to be invalid")
	}
}

func TestDefaultCurrency(t *testing.T) {
	c := New()

	ccy, err := c.DefaultCurrency("MX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ccy != "MXN" {
		t.Errorf("DefaultCurrency(MX) = %s, want MXN", ccy)
	}

	if _, err := c.DefaultCurrency("ZZ"); err == nil {
		t.Error("expected error for unknown country")
	}
}

func TestCountryForCurrency(t *testing.T) {
	c := New()

	countries := c.CountryForCurrency("EUR")
	if len(countries) != 2 {
		t.Fatalf("expected 2 countries for EUR, got %d: %v", len(countries), countries)
	}

	if len(c.CountryForCurrency("ZZZ")) != 0 {
		t.Error("expected no countries for unknown currency")
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	c := New()
	err := c.Validate("US", "MX", "USD", "MXN", decimal.NewFromInt(1000), decimal.Zero)
	if err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidateRejectsNegativeAmount(t *testing.T) {
	c := New()
	err := c.Validate("US", "MX", "USD", "MXN", decimal.NewFromInt(-1), decimal.Zero)
	if err == nil {
		t.Fatal("expected error for negative amount")
	}
	adapterErr, ok := err.(*domain.AdapterError)
	if !ok || adapterErr.Kind != domain.ErrorKindInvalidParameter {
		t.Errorf("expected InvalidParameter, got %v", err)
	}
}

func TestValidateRejectsUnknownCountry(t *testing.T) {
	c := New()
	if err := c.Validate("ZZ", "MX", "USD", "MXN", decimal.NewFromInt(100), decimal.Zero); err == nil {
		t.Error("expected error for unknown source country")
	}
}

func TestValidateRejectsUnknownCurrency(t *testing.T) {
	c := New()
	if err := c.Validate("US", "MX", "XXX", "MXN", decimal.NewFromInt(100), decimal.Zero); err == nil {
		t.Error("expected error for unknown source currency")
	}
}

func TestValidateAcceptsAmountEqualToCap(t *testing.T) {
	c := New()
	amountCap := decimal.NewFromInt(1000)
	if err := c.Validate("US", "MX", "USD", "MXN", amountCap, amountCap); err != nil {
		t.Errorf("Validate() error = %v, want nil for amount == cap", err)
	}
}

func TestValidateRejectsAmountOverCap(t *testing.T) {
	c := New()
	err := c.Validate("US", "MX", "USD", "MXN", decimal.NewFromInt(1001), decimal.NewFromInt(1000))
	if err == nil {
		t.Fatal("expected error for amount over cap")
	}
	adapterErr, ok := err.(*domain.AdapterError)
	if !ok || adapterErr.Kind != domain.ErrorKindInvalidParameter {
		t.Errorf("expected InvalidParameter, got %v", err)
	}
}

func TestValidateZeroCapDisablesCheck(t *testing.T) {
	c := New()
	if err := c.Validate("US", "MX", "USD", "MXN", decimal.NewFromInt(1_000_000_000), decimal.Zero); err != nil {
		t.Errorf("Validate() error = %v, want nil when cap is disabled", err)
	}
}
