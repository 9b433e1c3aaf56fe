// Package filter implements the filter and sort pipeline (§4.F)
// that turns a coordinator's raw provider results into the ranked
// quote list returned to callers.
package filter

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/domain"
)

// Apply runs the five-stage pipeline over allProviders and returns
// the surviving quotes sorted by opts.SortBy. allProviders itself is
// never mutated or reordered; a new slice is returned.
func Apply(allProviders []domain.Quote, opts domain.QuoteOptions) []domain.Quote {
	quotes := filterSuccessful(allProviders)
	quotes = filterMaxFee(quotes, opts.MaxFee)
	quotes = filterMaxDeliveryTime(quotes, opts.MaxDeliveryTimeMinutes)
	quotes = filterCustomPredicate(quotes, opts.CustomPredicate)

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = domain.SortBestRate
	}
	sortQuotes(quotes, sortBy)
	return quotes
}

func filterSuccessful(quotes []domain.Quote) []domain.Quote {
	kept := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Success {
			kept = append(kept, q)
		}
	}
	return kept
}

func filterMaxFee(quotes []domain.Quote, maxFee *decimal.Decimal) []domain.Quote {
	if maxFee == nil {
		return quotes
	}
	kept := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Fee.LessThanOrEqual(*maxFee) {
			kept = append(kept, q)
		}
	}
	return kept
}

func filterMaxDeliveryTime(quotes []domain.Quote, maxMinutes *int) []domain.Quote {
	if maxMinutes == nil {
		return quotes
	}
	kept := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.DeliveryTimeMinutes == nil {
			continue
		}
		if *q.DeliveryTimeMinutes <= *maxMinutes {
			kept = append(kept, q)
		}
	}
	return kept
}

func filterCustomPredicate(quotes []domain.Quote, predicate func(domain.Quote) bool) []domain.Quote {
	if predicate == nil {
		return quotes
	}
	kept := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if predicate(q) {
			kept = append(kept, q)
		}
	}
	return kept
}

func sortQuotes(quotes []domain.Quote, sortBy domain.SortBy) {
	var less func(a, b domain.Quote) bool
	switch sortBy {
	case domain.SortLowestFee:
		less = lessLowestFee
	case domain.SortFastestTime:
		less = lessFastestTime
	case domain.SortBestValue:
		less = lessBestValue
	default:
		less = lessBestRate
	}
	sort.SliceStable(quotes, func(i, j int) bool {
		return less(quotes[i], quotes[j])
	})
}

func lessBestRate(a, b domain.Quote) bool {
	if !a.ExchangeRate.Equal(b.ExchangeRate) {
		return a.ExchangeRate.GreaterThan(b.ExchangeRate)
	}
	if !a.Fee.Equal(b.Fee) {
		return a.Fee.LessThan(b.Fee)
	}
	if cmp, ok := lessDeliveryTime(a, b); ok {
		return cmp
	}
	return a.ProviderID < b.ProviderID
}

func lessLowestFee(a, b domain.Quote) bool {
	if !a.Fee.Equal(b.Fee) {
		return a.Fee.LessThan(b.Fee)
	}
	if !a.ExchangeRate.Equal(b.ExchangeRate) {
		return a.ExchangeRate.GreaterThan(b.ExchangeRate)
	}
	if cmp, ok := lessDeliveryTime(a, b); ok {
		return cmp
	}
	return a.ProviderID < b.ProviderID
}

func lessFastestTime(a, b domain.Quote) bool {
	if cmp, ok := lessDeliveryTime(a, b); ok {
		return cmp
	}
	return lessLowestFee(a, b)
}

// lessBestValue ranks by effective receive: destination_amount minus
// the fee converted to destination currency via the quote's own
// exchange rate (§4.F rule 5).
func lessBestValue(a, b domain.Quote) bool {
	return effectiveReceive(a).GreaterThan(effectiveReceive(b))
}

func effectiveReceive(q domain.Quote) decimal.Decimal {
	return q.DestinationAmount.Sub(q.Fee.Mul(q.ExchangeRate))
}

// lessDeliveryTime compares two quotes' delivery times, treating nil
// as slower than any known value ("nulls last"). ok is false when
// both are nil, since a tie provides no ordering information.
func lessDeliveryTime(a, b domain.Quote) (less bool, ok bool) {
	switch {
	case a.DeliveryTimeMinutes == nil && b.DeliveryTimeMinutes == nil:
		return false, false
	case a.DeliveryTimeMinutes == nil:
		return false, true
	case b.DeliveryTimeMinutes == nil:
		return true, true
	case *a.DeliveryTimeMinutes == *b.DeliveryTimeMinutes:
		return false, false
	default:
		return *a.DeliveryTimeMinutes < *b.DeliveryTimeMinutes, true
	}
}
