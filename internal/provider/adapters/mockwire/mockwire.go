// Package mockwire implements the JSON-REST adapter contract (spec
// §4.B) against a hypothetical wire-transfer provider that quotes
// tiered rates by amount band and offers several payment×delivery
// combinations per quote.
package mockwire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/internal/provider/ratelimit"
	"github.com/wonny/remitquote/pkg/httputil"
)

// ID is the stable identifier this adapter registers under.
const ID = "mockwire"

const defaultBaseURL = "https://api.mockwire.example/v1"

// Adapter queries mockwire's rates endpoint and selects a tier and a
// payment×delivery combination per §4.B rule 5.
type Adapter struct {
	ctx     provider.Context
	baseURL string
	limiter httputil.RateLimiter
}

// New builds a mockwire adapter from the shared provider context.
// Registered as a provider.Factory so the registry constructs one
// instance per call to Registry.Build.
func New(ctx provider.Context) provider.Adapter {
	baseURL := ctx.CredentialOrZero(ID).BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	var limiter httputil.RateLimiter
	if ctx.RedisLimiterFor != nil {
		limiter = ctx.RedisLimiterFor(ID)
	}
	if limiter == nil {
		limiter = ratelimit.New(10, 5)
	}
	return &Adapter{
		ctx:     ctx,
		baseURL: baseURL,
		limiter: limiter,
	}
}

func (a *Adapter) ID() string          { return ID }
func (a *Adapter) DisplayName() string { return "MockWire" }

// SupportedCorridors returns nil: mockwire reports corridor support
// inline via the rates response's supported flag rather than
// publishing a static list.
func (a *Adapter) SupportedCorridors() []provider.Corridor { return nil }

// wireResponse is the shape returned by GET /rates.
type wireResponse struct {
	Supported    bool          `json:"supported"`
	Tiers        []wireTier    `json:"tiers"`
	Combinations []wireCombo   `json:"combinations"`
}

// wireTier is one amount-banded rate. Rate is a string because
// mockwire, like most of the corpus's scraped providers, renders
// numeric fields as locale-formatted text (thousand-separator
// commas).
type wireTier struct {
	Min  string `json:"min"`
	Max  string `json:"max"`
	Rate string `json:"rate"`
}

type wireCombo struct {
	PaymentMethod    string `json:"payment_method"`
	DeliveryMethod   string `json:"delivery_method"`
	Fee              string `json:"fee"`
	DeliveryMinutes  *int   `json:"delivery_minutes,omitempty"`
	DeliveryText     string `json:"delivery_text,omitempty"`
	IsDefault        bool   `json:"is_default"`
}

// Quote implements provider.Adapter.
func (a *Adapter) Quote(ctx context.Context, req domain.QuoteRequest, deadline time.Time) *provider.RawResult {
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	destCurrency := req.DestCurrency
	if destCurrency == "" {
		resolved, err := a.ctx.Catalog.DefaultCurrency(req.DestCountry)
		if err != nil {
			return provider.Failure(ID, domain.ErrorKindInvalidParameter, "no dest_currency and no catalog default: "+err.Error())
		}
		destCurrency = resolved
	}

	body, err := a.fetch(callCtx, req, destCurrency)
	if err != nil {
		if callCtx.Err() != nil {
			return provider.Failure(ID, domain.ErrorKindTimeout, "deadline exceeded before mockwire responded")
		}
		var adapterErr *domain.AdapterError
		if errors.As(err, &adapterErr) {
			return provider.Failure(ID, adapterErr.Kind, adapterErr.Message)
		}
		return provider.Failure(ID, domain.ErrorKindConnection, err.Error())
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return provider.Failure(ID, domain.ErrorKindParsing, "malformed mockwire response: "+err.Error())
	}
	if !wire.Supported {
		return provider.Failure(ID, domain.ErrorKindUnsupportedCorridor, fmt.Sprintf("mockwire does not support %s->%s", req.SourceCountry, req.DestCountry))
	}
	if len(wire.Tiers) == 0 {
		return provider.Failure(ID, domain.ErrorKindParsing, "mockwire response carries no rate tiers")
	}
	if len(wire.Combinations) == 0 {
		return provider.Failure(ID, domain.ErrorKindParsing, "mockwire response carries no payment/delivery combinations")
	}

	tier, err := selectTier(wire.Tiers, req.Amount)
	if err != nil {
		return provider.Failure(ID, domain.ErrorKindParsing, err.Error())
	}
	rate, err := domain.ParseLocaleNeutralDecimal(tier.Rate)
	if err != nil {
		return provider.Failure(ID, domain.ErrorKindParsing, "unparseable tier rate: "+err.Error())
	}

	combo, err := selectCombination(wire.Combinations)
	if err != nil {
		return provider.Failure(ID, domain.ErrorKindParsing, err.Error())
	}
	fee, err := domain.ParseLocaleNeutralDecimal(combo.Fee)
	if err != nil {
		return provider.Failure(ID, domain.ErrorKindParsing, "unparseable combination fee: "+err.Error())
	}

	raw := &provider.RawResult{
		ProviderID:          ID,
		Success:             true,
		SendAmount:          req.Amount,
		SourceCurrency:      req.SourceCurrency,
		DestinationAmount:   req.Amount.Mul(rate),
		DestinationCurrency: destCurrency,
		ExchangeRate:        &rate,
		Fee:                 &fee,
		PaymentMethod:       domain.PaymentMethod(combo.PaymentMethod),
		DeliveryMethod:      domain.DeliveryMethod(combo.DeliveryMethod),
		DeliveryTimeMinutes: combo.DeliveryMinutes,
		DeliveryTimeText:    combo.DeliveryText,
		Raw:                 body,
	}
	return raw
}

// selectTier implements §4.B rule 5's first half: the band whose
// [min, max] contains amount, ties broken by the lower min.
func selectTier(tiers []wireTier, amount decimal.Decimal) (wireTier, error) {
	type parsed struct {
		tier     wireTier
		min, max decimal.Decimal
	}
	candidates := make([]parsed, 0, len(tiers))
	for _, t := range tiers {
		min, err := domain.ParseLocaleNeutralDecimal(t.Min)
		if err != nil {
			return wireTier{}, fmt.Errorf("unparseable tier min %q: %w", t.Min, err)
		}
		max, err := domain.ParseLocaleNeutralDecimal(t.Max)
		if err != nil {
			return wireTier{}, fmt.Errorf("unparseable tier max %q: %w", t.Max, err)
		}
		if amount.GreaterThanOrEqual(min) && amount.LessThanOrEqual(max) {
			candidates = append(candidates, parsed{tier: t, min: min, max: max})
		}
	}
	if len(candidates) == 0 {
		return wireTier{}, fmt.Errorf("amount %s falls outside every mockwire rate tier", amount.String())
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.min.LessThan(best.min) {
			best = c
		}
	}
	return best.tier, nil
}

// selectCombination implements §4.B rule 5's second half: the
// provider-marked default if present, else lowest fee, tie-break
// fastest delivery, then lexicographically least
// (payment_method, delivery_method).
func selectCombination(combos []wireCombo) (wireCombo, error) {
	for _, c := range combos {
		if c.IsDefault {
			return c, nil
		}
	}

	type parsed struct {
		combo wireCombo
		fee   decimal.Decimal
	}
	parsedCombos := make([]parsed, 0, len(combos))
	for _, c := range combos {
		fee, err := domain.ParseLocaleNeutralDecimal(c.Fee)
		if err != nil {
			return wireCombo{}, fmt.Errorf("unparseable combination fee %q: %w", c.Fee, err)
		}
		parsedCombos = append(parsedCombos, parsed{combo: c, fee: fee})
	}

	sort.SliceStable(parsedCombos, func(i, j int) bool {
		a, b := parsedCombos[i], parsedCombos[j]
		if !a.fee.Equal(b.fee) {
			return a.fee.LessThan(b.fee)
		}
		aMinutes, aKnown := combinationMinutes(a.combo)
		bMinutes, bKnown := combinationMinutes(b.combo)
		if aKnown != bKnown {
			return aKnown
		}
		if aKnown && aMinutes != bMinutes {
			return aMinutes < bMinutes
		}
		if a.combo.PaymentMethod != b.combo.PaymentMethod {
			return a.combo.PaymentMethod < b.combo.PaymentMethod
		}
		return a.combo.DeliveryMethod < b.combo.DeliveryMethod
	})
	return parsedCombos[0].combo, nil
}

func combinationMinutes(c wireCombo) (int, bool) {
	if c.DeliveryMinutes != nil {
		return *c.DeliveryMinutes, true
	}
	return 0, false
}

// fetch performs the rate-lookup HTTP call and returns the response
// body, waiting on the adapter's own rate limiter first so a single
// mockwire outage doesn't starve other adapters sharing the fan-out
// worker pool.
func (a *Adapter) fetch(ctx context.Context, req domain.QuoteRequest, destCurrency string) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/rates?source_country=%s&dest_country=%s&source_currency=%s&dest_currency=%s&amount=%s",
		a.baseURL, req.SourceCountry, req.DestCountry, req.SourceCurrency, destCurrency, req.Amount.String())

	resp, err := a.ctx.HTTPClient.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &domain.AdapterError{Kind: domain.ErrorKindRateLimit, Message: "mockwire rate limit"}
	}
	if resp.StatusCode >= 500 {
		return nil, &domain.AdapterError{Kind: domain.ErrorKindConnection, Message: fmt.Sprintf("mockwire returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.AdapterError{Kind: domain.ErrorKindProviderAPI, Message: fmt.Sprintf("mockwire returned %d", resp.StatusCode)}
	}

	return io.ReadAll(resp.Body)
}
