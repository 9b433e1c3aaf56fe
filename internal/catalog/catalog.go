// Package catalog holds the canonical ISO country/currency tables the
// rest of the aggregator validates requests against. Tables are
// loaded once at process start and never mutated afterward.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/domain"
)

// Country is an ISO-3166-1 country entry with its conventional
// settlement currency.
type Country struct {
	ISO2            string
	ISO3            string
	DefaultCurrency string
}

// Currency is an ISO-4217 currency entry.
type Currency struct {
	ISO4217 string
}

// countries and currencies cover the corridors the bundled adapters
// support. A production deployment would load these from a vetted
// reference dataset; the set here is deliberately the corridors this
// repository's tests and adapters actually exercise.
var countries = []Country{
	{ISO2: "US", ISO3: "USA", DefaultCurrency: "USD"},
	{ISO2: "MX", ISO3: "MEX", DefaultCurrency: "MXN"},
	{ISO2: "GB", ISO3: "GBR", DefaultCurrency: "GBP"},
	{ISO2: "IN", ISO3: "IND", DefaultCurrency: "INR"},
	{ISO2: "PH", ISO3: "PHL", DefaultCurrency: "PHP"},
	{ISO2: "NG", ISO3: "NGA", DefaultCurrency: "NGN"},
	{ISO2: "KE", ISO3: "KEN", DefaultCurrency: "KES"},
	{ISO2: "VN", ISO3: "VNM", DefaultCurrency: "VND"},
	{ISO2: "ID", ISO3: "IDN", DefaultCurrency: "IDR"},
	{ISO2: "JP", ISO3: "JPN", DefaultCurrency: "JPY"},
	{ISO2: "KR", ISO3: "KOR", DefaultCurrency: "KRW"},
	{ISO2: "CA", ISO3: "CAN", DefaultCurrency: "CAD"},
	{ISO2: "AU", ISO3: "AUS", DefaultCurrency: "AUD"},
	{ISO2: "DE", ISO3: "DEU", DefaultCurrency: "EUR"},
	{ISO2: "FR", ISO3: "FRA", DefaultCurrency: "EUR"},
}

var currencies = []Currency{
	{ISO4217: "USD"}, {ISO4217: "MXN"}, {ISO4217: "GBP"}, {ISO4217: "INR"},
	{ISO4217: "PHP"}, {ISO4217: "NGN"}, {ISO4217: "KES"}, {ISO4217: "VND"},
	{ISO4217: "IDR"}, {ISO4217: "JPY"}, {ISO4217: "KRW"}, {ISO4217: "CAD"},
	{ISO4217: "AUD"}, {ISO4217: "EUR"},
}

// Catalog is an immutable, process-lifetime lookup table. Build it
// with New: the zero value has empty indexes, so every lookup on it
// reports the code as unknown.
type Catalog struct {
	countriesByISO2   map[string]Country
	currenciesBySet   map[string]bool
	countriesByCcy    map[string][]string
}

// New builds the catalog's lookup indexes once.
func New() *Catalog {
	c := &Catalog{
		countriesByISO2: make(map[string]Country, len(countries)),
		currenciesBySet: make(map[string]bool, len(currencies)),
		countriesByCcy:  make(map[string][]string),
	}
	for _, country := range countries {
		c.countriesByISO2[country.ISO2] = country
		c.countriesByCcy[country.DefaultCurrency] = append(c.countriesByCcy[country.DefaultCurrency], country.ISO2)
	}
	for _, ccy := range currencies {
		c.currenciesBySet[ccy.ISO4217] = true
	}
	return c
}

// IsValidISOCountry reports whether code is a known ISO-3166-1 alpha-2
// country code.
func (c *Catalog) IsValidISOCountry(code string) bool {
	_, ok := c.countriesByISO2[strings.ToUpper(code)]
	return ok
}

// IsValidISOCurrency reports whether code is a known ISO-4217 currency
// code.
func (c *Catalog) IsValidISOCurrency(code string) bool {
	return c.currenciesBySet[strings.ToUpper(code)]
}

// DefaultCurrency returns the conventional settlement currency for a
// country, or an InvalidParameter error if the country is unknown.
func (c *Catalog) DefaultCurrency(country string) (string, error) {
	entry, ok := c.countriesByISO2[strings.ToUpper(country)]
	if !ok {
		return "", domain.NewAdapterError(domain.ErrorKindInvalidParameter,
			"unknown country code: "+country, nil)
	}
	return entry.DefaultCurrency, nil
}

// CountryForCurrency returns every country whose default currency
// matches ccy.
func (c *Catalog) CountryForCurrency(ccy string) []string {
	out := c.countriesByCcy[strings.ToUpper(ccy)]
	result := make([]string, len(out))
	copy(result, out)
	return result
}

// Validate checks a request's country/currency/amount fields
// against the catalog, implementing coordinator step 1 (§4.H). It
// returns the first violation found; callers that need every
// violation should call the individual Is* methods themselves.
// maxAmount is the configurable cap (§3); a zero or negative maxAmount
// disables the cap check.
func (c *Catalog) Validate(sourceCountry, destCountry, sourceCurrency, destCurrency string, amount, maxAmount decimal.Decimal) error {
	switch {
	case !c.IsValidISOCountry(sourceCountry):
		return domain.NewAdapterError(domain.ErrorKindInvalidParameter, "unknown source country: "+sourceCountry, nil)
	case !c.IsValidISOCountry(destCountry):
		return domain.NewAdapterError(domain.ErrorKindInvalidParameter, "unknown dest country: "+destCountry, nil)
	case !c.IsValidISOCurrency(sourceCurrency):
		return domain.NewAdapterError(domain.ErrorKindInvalidParameter, "unknown source currency: "+sourceCurrency, nil)
	case !c.IsValidISOCurrency(destCurrency):
		return domain.NewAdapterError(domain.ErrorKindInvalidParameter, "unknown dest currency: "+destCurrency, nil)
	case !amount.IsPositive():
		return domain.NewAdapterError(domain.ErrorKindInvalidParameter, "amount must be positive, got "+amount.String(), nil)
	case maxAmount.IsPositive() && amount.GreaterThan(maxAmount):
		return domain.NewAdapterError(domain.ErrorKindInvalidParameter, "amount "+amount.String()+" exceeds cap "+maxAmount.String(), nil)
	}
	return nil
}
