// Package remitweb implements the §4.B adapter contract against a
// provider that publishes its rate table as an HTML page rather than
// a JSON API. It is the browser-session/page-scraping adapter shape
// spec.md §9's Open Questions calls out; the composition root
// registers it disabled by default (see DESIGN.md).
package remitweb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/internal/provider/ratelimit"
	"github.com/wonny/remitquote/pkg/httputil"
)

// ID is the stable identifier this adapter registers under.
const ID = "remitweb"

const defaultBaseURL = "https://www.remitweb.example"

var deliveryDigitsRe = regexp.MustCompile(`\d+`)

// Adapter scrapes remitweb's published rate table for a corridor.
type Adapter struct {
	ctx     provider.Context
	baseURL string
	limiter httputil.RateLimiter
}

// New builds a remitweb adapter from the shared provider context.
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
		limiter = ratelimit.New(2, 2) // page scraping is heavier on the origin, stay conservative
	}
	return &Adapter{ctx: ctx, baseURL: baseURL, limiter: limiter}
}

func (a *Adapter) ID() string          { return ID }
func (a *Adapter) DisplayName() string { return "RemitWeb" }

// SupportedCorridors returns nil: an absent or empty rate table on
// the scraped page is how remitweb signals an unsupported corridor.
func (a *Adapter) SupportedCorridors() []provider.Corridor { return nil }

type scrapedRow struct {
	paymentMethod  string
	deliveryMethod string
	rate           decimal.Decimal
	fee            decimal.Decimal
	deliveryText   string
	isDefault      bool
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

	html, err := a.fetchPage(callCtx, req)
	if err != nil {
		if callCtx.Err() != nil {
			return provider.Failure(ID, domain.ErrorKindTimeout, "deadline exceeded before remitweb responded")
		}
		var adapterErr *domain.AdapterError
		if ae, ok := err.(*domain.AdapterError); ok {
			adapterErr = ae
			return provider.Failure(ID, adapterErr.Kind, adapterErr.Message)
		}
		return provider.Failure(ID, domain.ErrorKindConnection, err.Error())
	}

	rows, err := parseRateTable(html)
	if err != nil {
		return provider.Failure(ID, domain.ErrorKindParsing, err.Error())
	}
	if len(rows) == 0 {
		return provider.Failure(ID, domain.ErrorKindUnsupportedCorridor, fmt.Sprintf("remitweb published no rate table for %s->%s", req.SourceCountry, req.DestCountry))
	}

	chosen := selectRow(rows)
	deliveryMinutes, deliveryText := resolveDelivery(chosen.deliveryText)

	return &provider.RawResult{
		ProviderID:          ID,
		Success:             true,
		SendAmount:          req.Amount,
		SourceCurrency:      req.SourceCurrency,
		DestinationAmount:   req.Amount.Mul(chosen.rate),
		DestinationCurrency: destCurrency,
		ExchangeRate:        &chosen.rate,
		Fee:                 &chosen.fee,
		PaymentMethod:       domain.PaymentMethod(chosen.paymentMethod),
		DeliveryMethod:      domain.DeliveryMethod(chosen.deliveryMethod),
		DeliveryTimeMinutes: deliveryMinutes,
		DeliveryTimeText:    deliveryText,
		Raw:                 []byte(html),
	}
}

// selectRow implements §4.B rule 5's combination-selection half: the
// row marked default if present, else lowest fee, tie-break fastest
// known delivery time, then lexicographically least
// (payment_method, delivery_method).
func selectRow(rows []scrapedRow) scrapedRow {
	for _, r := range rows {
		if r.isDefault {
			return r
		}
	}

	sorted := make([]scrapedRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.fee.Equal(b.fee) {
			return a.fee.LessThan(b.fee)
		}
		aMinutes, aKnown := parseDeliveryMinutes(a.deliveryText)
		bMinutes, bKnown := parseDeliveryMinutes(b.deliveryText)
		if aKnown != bKnown {
			return aKnown
		}
		if aKnown && aMinutes != bMinutes {
			return aMinutes < bMinutes
		}
		if a.paymentMethod != b.paymentMethod {
			return a.paymentMethod < b.paymentMethod
		}
		return a.deliveryMethod < b.deliveryMethod
	})
	return sorted[0]
}

func parseDeliveryMinutes(text string) (int, bool) {
	minutes, ok := resolveDeliveryLookup(text)
	return minutes, ok
}

// parseRateTable extracts one scrapedRow per <tr> of the page's
// "table.rates" body, columns: payment method, delivery method, rate,
// fee, delivery estimate. A row carrying the "default" CSS class marks
// the provider's preferred combination.
func parseRateTable(html string) ([]scrapedRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse remitweb HTML: %w", err)
	}

	var rows []scrapedRow
	var parseErr error
	doc.Find("table.rates tbody tr").Each(func(i int, row *goquery.Selection) {
		if parseErr != nil {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		rateText := strings.TrimSpace(cells.Eq(2).Text())
		feeText := strings.TrimSpace(cells.Eq(3).Text())

		rate, err := domain.ParseLocaleNeutralDecimal(rateText)
		if err != nil {
			parseErr = fmt.Errorf("row %d: unparseable rate %q: %w", i, rateText, err)
			return
		}
		fee, err := domain.ParseLocaleNeutralDecimal(feeText)
		if err != nil {
			parseErr = fmt.Errorf("row %d: unparseable fee %q: %w", i, feeText, err)
			return
		}

		class, _ := row.Attr("class")
		rows = append(rows, scrapedRow{
			paymentMethod:  strings.TrimSpace(cells.Eq(0).Text()),
			deliveryMethod: strings.TrimSpace(cells.Eq(1).Text()),
			rate:           rate,
			fee:            fee,
			deliveryText:   strings.TrimSpace(cells.Eq(4).Text()),
			isDefault:      strings.Contains(class, "default"),
		})
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return rows, nil
}

// resolveDelivery converts a scraped free-text delivery estimate into
// minutes via the closed table, falling back, when the text mentions
// hours, to its first digit run (read as hours) before giving up as
// unknown.
func resolveDelivery(text string) (*int, string) {
	if minutes, ok := resolveDeliveryLookup(text); ok {
		return &minutes, ""
	}
	return nil, text
}

func resolveDeliveryLookup(text string) (int, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch normalized {
	case "instant", "minutes":
		return 10, true
	case "within 24 hours", "1 business day":
		return 1440, true
	case "2 business days":
		return 2880, true
	case "3 business days":
		return 4320, true
	case "5 business days":
		return 7200, true
	}
	if strings.Contains(normalized, "hour") {
		if match := deliveryDigitsRe.FindString(normalized); match != "" {
			if hours, err := decimal.NewFromString(match); err == nil {
				return int(hours.IntPart()) * 60, true
			}
		}
	}
	return 0, false
}

// fetchPage retrieves the corridor's rate-table HTML page.
func (a *Adapter) fetchPage(ctx context.Context, req domain.QuoteRequest) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/rates/%s-%s?amount=%s", a.baseURL, req.SourceCountry, req.DestCountry, req.Amount.String())

	resp, err := a.ctx.HTTPClient.Get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", &domain.AdapterError{Kind: domain.ErrorKindUnsupportedCorridor, Message: "remitweb has no page for this corridor"}
	}
	if resp.StatusCode >= 500 {
		return "", &domain.AdapterError{Kind: domain.ErrorKindConnection, Message: fmt.Sprintf("remitweb returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &domain.AdapterError{Kind: domain.ErrorKindProviderAPI, Message: fmt.Sprintf("remitweb returned %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
