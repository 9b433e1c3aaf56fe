// Package domain holds the types shared across every component of the
// aggregator: the request/response shapes, the closed enums from
// §6, and the money-handling rules from §4.D.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of source-side funding methods.
type PaymentMethod string

const (
	PaymentBankAccount  PaymentMethod = "bank_account"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentBalance      PaymentMethod = "balance"
	PaymentOpenBanking  PaymentMethod = "open_banking"
	PaymentCard         PaymentMethod = "card"
	PaymentCash         PaymentMethod = "cash"
	PaymentMobileWallet PaymentMethod = "mobile_wallet"
	PaymentUnknown      PaymentMethod = "unknown"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentBankAccount, PaymentDebitCard, PaymentCreditCard, PaymentBalance,
		PaymentOpenBanking, PaymentCard, PaymentCash, PaymentMobileWallet, PaymentUnknown:
		return true
	default:
		return false
	}
}

// DeliveryMethod is the closed set of destination-side payout methods.
type DeliveryMethod string

const (
	DeliveryBankDeposit       DeliveryMethod = "bank_deposit"
	DeliveryCashPickup        DeliveryMethod = "cash_pickup"
	DeliveryMobileWallet      DeliveryMethod = "mobile_wallet"
	DeliveryDebitCardDeposit  DeliveryMethod = "debit_card_deposit"
	DeliveryHomeDelivery      DeliveryMethod = "home_delivery"
	DeliveryUnknown           DeliveryMethod = "unknown"
)

func (d DeliveryMethod) Valid() bool {
	switch d {
	case DeliveryBankDeposit, DeliveryCashPickup, DeliveryMobileWallet,
		DeliveryDebitCardDeposit, DeliveryHomeDelivery, DeliveryUnknown:
		return true
	default:
		return false
	}
}

// SortBy selects the ranking criterion applied by the filter/sort
// pipeline (§4.F).
type SortBy string

const (
	SortBestRate    SortBy = "best_rate"
	SortLowestFee   SortBy = "lowest_fee"
	SortFastestTime SortBy = "fastest_time"
	SortBestValue   SortBy = "best_value"
)

func (s SortBy) Valid() bool {
	switch s {
	case SortBestRate, SortLowestFee, SortFastestTime, SortBestValue:
		return true
	default:
		return false
	}
}

// QuoteOptions holds the recognized entries of QuoteRequest.options
// (§3).
type QuoteOptions struct {
	ForceRefresh           bool             `json:"force_refresh,omitempty"`
	SortBy                 SortBy           `json:"sort_by,omitempty"`
	MaxFee                 *decimal.Decimal `json:"max_fee,omitempty"`
	MaxDeliveryTimeMinutes *int             `json:"max_delivery_time_minutes,omitempty"`
	IncludeProviders       []string         `json:"include_providers,omitempty"`
	ExcludeProviders       []string         `json:"exclude_providers,omitempty"`
	CustomPredicate        func(Quote) bool `json:"-"`
	PerProviderTimeoutMS   *int             `json:"per_provider_timeout_ms,omitempty"`
	MaxWorkers             *int             `json:"max_workers,omitempty"`
	IncludeRaw             bool             `json:"include_raw,omitempty"`
}

// QuoteRequest is the aggregator's public input (§3).
type QuoteRequest struct {
	SourceCountry  string         `json:"source_country"`
	DestCountry    string         `json:"dest_country"`
	SourceCurrency string         `json:"source_currency"`
	DestCurrency   string         `json:"dest_currency"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  PaymentMethod  `json:"payment_method,omitempty"`
	DeliveryMethod DeliveryMethod `json:"delivery_method,omitempty"`
	Options        QuoteOptions   `json:"options,omitempty"`
}

// Quote is the canonical per-provider result (§3).
type Quote struct {
	ProviderID          string          `json:"provider_id"`
	Success             bool            `json:"success"`
	ErrorKind           ErrorKind       `json:"error_kind,omitempty"` // empty when Success
	ErrorMessage        string          `json:"error_message,omitempty"`
	SendAmount          decimal.Decimal `json:"send_amount"`
	SourceCurrency      string          `json:"source_currency"`
	DestinationAmount   decimal.Decimal `json:"destination_amount"`
	DestinationCurrency string          `json:"destination_currency"`
	ExchangeRate        decimal.Decimal `json:"exchange_rate"` // zero value when !Success
	Fee                 decimal.Decimal `json:"fee"`
	PaymentMethod       PaymentMethod   `json:"payment_method"`
	DeliveryMethod      DeliveryMethod  `json:"delivery_method"`
	DeliveryTimeMinutes *int            `json:"delivery_time_minutes"` // nil means "unknown but supported"
	Timestamp           time.Time       `json:"timestamp"`
	Raw                 []byte          `json:"raw,omitempty"` // present only when Options.IncludeRaw
}

// HasExchangeRate reports whether ExchangeRate carries a meaningful
// value; a failed quote's ExchangeRate is always the zero value.
func (q Quote) HasExchangeRate() bool {
	return q.Success && !q.ExchangeRate.IsZero()
}

// ProviderFailure is one entry of AggregateResult.Errors.
type ProviderFailure struct {
	ErrorKind    ErrorKind `json:"error_kind"`
	ErrorMessage string    `json:"error_message"`
}

// FiltersApplied echoes back which filter/sort options were in effect
// for the call that produced an AggregateResult.
type FiltersApplied struct {
	SortBy                 SortBy           `json:"sort_by,omitempty"`
	MaxFee                 *decimal.Decimal `json:"max_fee,omitempty"`
	MaxDeliveryTimeMinutes *int             `json:"max_delivery_time_minutes,omitempty"`
	HadCustomPredicate     bool             `json:"had_custom_predicate,omitempty"`
	IncludeProviders       []string         `json:"include_providers,omitempty"`
	ExcludeProviders       []string         `json:"exclude_providers,omitempty"`
}

// AggregateResult is the coordinator's public response (§3).
type AggregateResult struct {
	RequestID      string                     `json:"request_id"`
	Request        QuoteRequest               `json:"request"`
	Success        bool                       `json:"success"`
	ElapsedMS      int64                      `json:"elapsed_ms"`
	CacheHit       bool                       `json:"cache_hit"`
	Timestamp      time.Time                  `json:"timestamp"`
	FiltersApplied FiltersApplied             `json:"filters_applied"`
	AllProviders   []Quote                    `json:"all_providers"`
	Quotes         []Quote                    `json:"quotes"`
	Errors         map[string]ProviderFailure `json:"errors"`
}
