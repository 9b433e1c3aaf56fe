// Package normalize converts a provider adapter's RawResult into the
// canonical Quote record (§4.D).
package normalize

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/provider"
)

// Clock lets tests stamp deterministic timestamps; New falls back to
// time.Now when given a nil Clock.
type Clock func() time.Time

// Normalizer converts RawResults into canonical Quotes.
type Normalizer struct {
	now Clock
}

// New builds a Normalizer. If clock is nil, time.Now is used.
func New(clock Clock) *Normalizer {
	if clock == nil {
		clock = time.Now
	}
	return &Normalizer{now: clock}
}

// Normalize converts a single RawResult into a Quote. A RawResult
// that already carries a failure is passed through with only
// bookkeeping fields (Timestamp, SendAmount, SourceCurrency) filled
// in, matching invariant 1: success=false implies exchange_rate=null
// and destination_amount=0.
func (n *Normalizer) Normalize(raw *provider.RawResult, req domain.QuoteRequest) domain.Quote {
	timestamp := n.now().UTC()

	if !raw.Success {
		return domain.Quote{
			ProviderID:     raw.ProviderID,
			Success:        false,
			ErrorKind:      raw.ErrorKind,
			ErrorMessage:   raw.ErrorMessage,
			SendAmount:     req.Amount,
			SourceCurrency: req.SourceCurrency,
			Timestamp:      timestamp,
		}
	}

	exchangeRate, kind, msg := n.resolveExchangeRate(raw)
	if kind != "" {
		return domain.Quote{
			ProviderID:     raw.ProviderID,
			Success:        false,
			ErrorKind:      kind,
			ErrorMessage:   msg,
			SendAmount:     req.Amount,
			SourceCurrency: req.SourceCurrency,
			Timestamp:      timestamp,
		}
	}

	if raw.Fee == nil {
		return domain.Quote{
			ProviderID:     raw.ProviderID,
			Success:        false,
			ErrorKind:      domain.ErrorKindParsing,
			ErrorMessage:   "provider did not report a fee",
			SendAmount:     req.Amount,
			SourceCurrency: req.SourceCurrency,
			Timestamp:      timestamp,
		}
	}

	deliveryMinutes := n.resolveDeliveryMinutes(raw)

	quote := domain.Quote{
		ProviderID:          raw.ProviderID,
		Success:             true,
		SendAmount:          raw.SendAmount,
		SourceCurrency:      raw.SourceCurrency,
		DestinationAmount:   domain.RoundAmount(raw.DestinationAmount, raw.DestinationCurrency),
		DestinationCurrency: raw.DestinationCurrency,
		ExchangeRate:        domain.RoundRate(exchangeRate),
		Fee:                 domain.RoundFee(*raw.Fee),
		PaymentMethod:       raw.PaymentMethod,
		DeliveryMethod:      raw.DeliveryMethod,
		DeliveryTimeMinutes: deliveryMinutes,
		Timestamp:           timestamp,
	}
	if req.Options.IncludeRaw {
		quote.Raw = raw.Raw
	}
	if !quote.PaymentMethod.Valid() {
		quote.PaymentMethod = domain.PaymentUnknown
	}
	if !quote.DeliveryMethod.Valid() {
		quote.DeliveryMethod = domain.DeliveryUnknown
	}
	return quote
}

// resolveExchangeRate implements §4.D's recompute-or-verify rule: if
// the adapter omitted a rate, recompute it from the amounts; if it
// supplied one, it must agree with the recomputed rate within 0.5% or
// the quote is downgraded to InconsistentResponse.
func (n *Normalizer) resolveExchangeRate(raw *provider.RawResult) (decimal.Decimal, domain.ErrorKind, string) {
	if raw.SendAmount.IsZero() {
		return decimal.Zero, domain.ErrorKindParsing, "send amount is zero, cannot derive exchange rate"
	}
	recomputed := raw.DestinationAmount.Div(raw.SendAmount)

	if raw.ExchangeRate == nil {
		return recomputed, "", ""
	}
	if !domain.RatesAgree(*raw.ExchangeRate, recomputed) {
		return decimal.Zero, domain.ErrorKindInconsistentResult,
			"provider-reported exchange rate disagrees with destination_amount/send_amount by more than 0.5%"
	}
	return *raw.ExchangeRate, "", ""
}

// resolveDeliveryMinutes clamps a numeric delivery time to
// non-negative, or resolves free text via the closed table. Neither
// source present leaves DeliveryTimeMinutes nil, meaning "unknown but
// supported" per §3.
func (n *Normalizer) resolveDeliveryMinutes(raw *provider.RawResult) *int {
	if raw.DeliveryTimeMinutes != nil {
		minutes := *raw.DeliveryTimeMinutes
		if minutes < 0 {
			minutes = 0
		}
		return &minutes
	}
	if raw.DeliveryTimeText != "" {
		if minutes, ok := DeliveryMinutesFromText(raw.DeliveryTimeText); ok {
			return &minutes
		}
	}
	return nil
}
