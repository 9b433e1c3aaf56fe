package cache

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/domain"
)

// QuoteKey builds the cache key for one aggregate call (§4.G). It
// uses amount_scaled — the request amount's integer micro-units — so
// that "1000" and "1000.00" address the same cache entry.
func QuoteKey(sourceCountry, destCountry, sourceCurrency, destCurrency string, amount decimal.Decimal) string {
	scaled := domain.ScaleAmountMicros(amount)
	return fmt.Sprintf("v1:fee:%s:%s:%s:%s:%d", sourceCountry, destCountry, sourceCurrency, destCurrency, scaled)
}

// CorridorKey builds the cache key tracking which adapters support a
// given corridor.
func CorridorKey(sourceCountry, destCountry string) string {
	return fmt.Sprintf("corridor:%s:%s", sourceCountry, destCountry)
}

// ProviderKey builds the cache key for per-provider metadata (health,
// last successful call, and similar bookkeeping).
func ProviderKey(providerID string) string {
	return fmt.Sprintf("provider:%s", providerID)
}
