package cache

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuoteKeyScaleIndependence(t *testing.T) {
	a := QuoteKey("US", "MX", "USD", "MXN", decimal.RequireFromString("1000"))
	b := QuoteKey("US", "MX", "USD", "MXN", decimal.RequireFromString("1000.00"))
	c := QuoteKey("US", "MX", "USD", "MXN", decimal.RequireFromString("1000.000000"))

	if a != b || b != c {
		t.Errorf("expected equivalent amount representations to hash identically: %s, %s, %s", a, b, c)
	}
}

func TestQuoteKeyDistinguishesAmount(t *testing.T) {
	a := QuoteKey("US", "MX", "USD", "MXN", decimal.RequireFromString("1000"))
	b := QuoteKey("US", "MX", "USD", "MXN", decimal.RequireFromString("500"))

	if a == b {
		t.Error("expected different amounts to produce different keys")
	}
}

func TestCorridorKey(t *testing.T) {
	got := CorridorKey("US", "MX")
	want := "corridor:US:MX"
	if got != want {
		t.Errorf("CorridorKey() = %s, want %s", got, want)
	}
}

func TestProviderKey(t *testing.T) {
	got := ProviderKey("mockwire")
	want := "provider:mockwire"
	if got != want {
		t.Errorf("ProviderKey() = %s, want %s", got, want)
	}
}
