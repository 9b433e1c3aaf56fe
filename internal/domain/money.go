package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies never carry fractional units in this system's
// corridors. Amounts in these currencies are rounded to zero decimal
// places instead of the usual two.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
	"IDR": true,
}

// IsZeroDecimalCurrency reports whether ccy is conventionally quoted
// without fractional units.
func IsZeroDecimalCurrency(ccy string) bool {
	return zeroDecimalCurrencies[strings.ToUpper(ccy)]
}

// AmountScale returns the number of decimal places an amount in ccy
// should be rounded to.
func AmountScale(ccy string) int32 {
	if IsZeroDecimalCurrency(ccy) {
		return 0
	}
	return 2
}

// RoundAmount rounds a monetary amount to the currency's conventional
// scale (§4.D).
func RoundAmount(amount decimal.Decimal, ccy string) decimal.Decimal {
	return amount.Round(AmountScale(ccy))
}

// RoundRate rounds an exchange rate to six decimal places (§4.D).
func RoundRate(rate decimal.Decimal) decimal.Decimal {
	return rate.Round(6)
}

// RoundFee rounds a fee to two decimal places regardless of currency;
// spec.md §4.D only carves out amount rounding for zero-decimal
// currencies, fees stay at two.
func RoundFee(fee decimal.Decimal) decimal.Decimal {
	return fee.Round(2)
}

// microUnitsScale is the fixed-point scale used for cache keys (§4.G):
// amount_scaled is the integer number of millionths of the request
// amount, so that "1000" and "1000.00" hash to the same key.
var microUnitsScale = decimal.New(1, 6)

// ScaleAmountMicros converts a decimal amount into its integer
// micro-unit representation for use in cache keys.
func ScaleAmountMicros(amount decimal.Decimal) int64 {
	return amount.Mul(microUnitsScale).Round(0).IntPart()
}

// ParseLocaleNeutralDecimal parses a provider-supplied numeric string,
// stripping thousand-separator commas per §4.B rule 4. The decimal
// point is always '.', never locale-dependent.
func ParseLocaleNeutralDecimal(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	return decimal.NewFromString(cleaned)
}

// RatesAgree reports whether two exchange rates agree within the 0.5%
// tolerance the normalizer enforces (§4.D) before accepting an
// adapter-supplied rate over its own recomputation.
func RatesAgree(a, b decimal.Decimal) bool {
	if a.IsZero() && b.IsZero() {
		return true
	}
	if a.IsZero() || b.IsZero() {
		return false
	}
	diff := a.Sub(b).Abs()
	tolerance := a.Abs().Mul(decimal.NewFromFloat(0.005))
	return diff.LessThanOrEqual(tolerance)
}
