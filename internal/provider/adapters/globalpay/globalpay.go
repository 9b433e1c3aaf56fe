// Package globalpay implements the JSON-REST adapter contract (spec
// §4.B) against a hypothetical bearer-token provider. The OAuth
// bootstrap mirrors a client-credentials bearer flow: an access token
// is fetched once and cached until shortly before it expires, then
// transparently refreshed.
package globalpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/wonny/remitquote/internal/domain"
	"github.com/wonny/remitquote/internal/provider"
	"github.com/wonny/remitquote/internal/provider/ratelimit"
	"github.com/wonny/remitquote/pkg/httputil"
)

// ID is the stable identifier this adapter registers under.
const ID = "globalpay"

const defaultBaseURL = "https://api.globalpay.example"

// Adapter authenticates against globalpay's OAuth token endpoint and
// requests a single quote per corridor. Unlike mockwire, globalpay
// never returns tiers; the differentiator this adapter exercises is
// the retry-once policy of §7.
type Adapter struct {
	ctx     provider.Context
	baseURL string
	appKey  string
	secret  string

	httpClient *http.Client
	limiter    httputil.RateLimiter

	tokenMu     sync.RWMutex
	accessToken string
	tokenExpiry time.Time
}

// New builds a globalpay adapter from the shared provider context.
func New(ctx provider.Context) provider.Adapter {
	cred := ctx.CredentialOrZero(ID)
	baseURL := cred.BaseURL
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
		ctx:        ctx,
		baseURL:    baseURL,
		appKey:     cred.APIKey,
		secret:     cred.APISecret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
	}
}

func (a *Adapter) ID() string          { return ID }
func (a *Adapter) DisplayName() string { return "GlobalPay" }

// SupportedCorridors returns nil: globalpay reports corridor support
// inline via the quote response's supported flag.
func (a *Adapter) SupportedCorridors() []provider.Corridor { return nil }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// getToken returns a cached bearer token, refreshing it if it is
// missing or within 60 seconds of expiry. Double-checked locking
// avoids a thundering herd of token requests when many goroutines
// call Quote concurrently against an expired token.
func (a *Adapter) getToken(ctx context.Context) (string, error) {
	a.tokenMu.RLock()
	if a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		token := a.accessToken
		a.tokenMu.RUnlock()
		return token, nil
	}
	a.tokenMu.RUnlock()

	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		return a.accessToken, nil
	}

	return a.refreshTokenLocked(ctx)
}

// forceRefreshToken discards the cached token unconditionally,
// used by Quote's re-auth retry after a 401.
func (a *Adapter) forceRefreshToken(ctx context.Context) (string, error) {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()
	return a.refreshTokenLocked(ctx)
}

func (a *Adapter) refreshTokenLocked(ctx context.Context) (string, error) {
	url := a.baseURL + "/oauth2/token"
	payload, _ := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"app_key":    a.appKey,
		"app_secret": a.secret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	safety := tok.ExpiresIn - 60
	if safety < 0 {
		safety = 0
	}
	a.accessToken = tok.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(safety) * time.Second)

	a.ctx.Logger.WithFields(map[string]interface{}{
		"provider":   ID,
		"expires_in": tok.ExpiresIn,
	}).Info("globalpay access token refreshed")

	return a.accessToken, nil
}

type quoteRequestBody struct {
	SourceCountry  string `json:"source_country"`
	DestCountry    string `json:"dest_country"`
	SourceCurrency string `json:"source_currency"`
	DestCurrency   string `json:"dest_currency"`
	Amount         string `json:"amount"`
	PaymentMethod  string `json:"payment_method,omitempty"`
	DeliveryMethod string `json:"delivery_method,omitempty"`
}

type quoteResponseBody struct {
	Supported           bool   `json:"supported"`
	ExchangeRate        string `json:"exchange_rate"`
	Fee                 string `json:"fee"`
	PaymentMethod       string `json:"payment_method"`
	DeliveryMethod      string `json:"delivery_method"`
	DeliveryTimeMinutes *int   `json:"delivery_time_minutes,omitempty"`
	DeliveryTimeText    string `json:"delivery_time_text,omitempty"`
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

	body := quoteRequestBody{
		SourceCountry:  req.SourceCountry,
		DestCountry:    req.DestCountry,
		SourceCurrency: req.SourceCurrency,
		DestCurrency:   destCurrency,
		Amount:         req.Amount.String(),
		PaymentMethod:  string(req.PaymentMethod),
		DeliveryMethod: string(req.DeliveryMethod),
	}

	resp, err := a.quoteWithRetry(callCtx, body)
	if err != nil {
		var adapterErr *domain.AdapterError
		if callCtx.Err() != nil {
			return provider.Failure(ID, domain.ErrorKindTimeout, "deadline exceeded before globalpay responded")
		}
		if asAdapterError(err, &adapterErr) {
			return provider.Failure(ID, adapterErr.Kind, adapterErr.Message)
		}
		return provider.Failure(ID, domain.ErrorKindConnection, err.Error())
	}

	if !resp.Supported {
		return provider.Failure(ID, domain.ErrorKindUnsupportedCorridor, fmt.Sprintf("globalpay does not support %s->%s", req.SourceCountry, req.DestCountry))
	}

	rate, err := domain.ParseLocaleNeutralDecimal(resp.ExchangeRate)
	if err != nil {
		return provider.Failure(ID, domain.ErrorKindParsing, "unparseable exchange_rate: "+err.Error())
	}
	fee, err := domain.ParseLocaleNeutralDecimal(resp.Fee)
	if err != nil {
		return provider.Failure(ID, domain.ErrorKindParsing, "unparseable fee: "+err.Error())
	}

	paymentMethod := domain.PaymentMethod(resp.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = req.PaymentMethod
	}
	deliveryMethod := domain.DeliveryMethod(resp.DeliveryMethod)
	if deliveryMethod == "" {
		deliveryMethod = req.DeliveryMethod
	}

	return &provider.RawResult{
		ProviderID:          ID,
		Success:             true,
		SendAmount:          req.Amount,
		SourceCurrency:      req.SourceCurrency,
		DestinationAmount:   req.Amount.Mul(rate),
		DestinationCurrency: destCurrency,
		ExchangeRate:        &rate,
		Fee:                 &fee,
		PaymentMethod:       paymentMethod,
		DeliveryMethod:      deliveryMethod,
		DeliveryTimeMinutes: resp.DeliveryTimeMinutes,
		DeliveryTimeText:    resp.DeliveryTimeText,
	}
}

// quoteWithRetry implements the retry-once policy of §7:
// Authentication gets one re-auth retry, Connection one ≤250ms-backoff
// retry, RateLimit one jittered 250-1000ms-backoff retry. Every other
// kind (Timeout, ProviderApi, Parsing) is returned immediately.
func (a *Adapter) quoteWithRetry(ctx context.Context, body quoteRequestBody) (*quoteResponseBody, error) {
	resp, err := a.doQuote(ctx, body)
	if err == nil {
		return resp, nil
	}

	var adapterErr *domain.AdapterError
	if !asAdapterError(err, &adapterErr) || !adapterErr.Kind.Retryable() && adapterErr.Kind != domain.ErrorKindAuthentication {
		return nil, err
	}

	switch adapterErr.Kind {
	case domain.ErrorKindAuthentication:
		if _, refreshErr := a.forceRefreshToken(ctx); refreshErr != nil {
			return nil, err
		}
	case domain.ErrorKindConnection:
		if waitErr := sleepOrDone(ctx, 250*time.Millisecond); waitErr != nil {
			return nil, err
		}
	case domain.ErrorKindRateLimit:
		jitter := 250*time.Millisecond + time.Duration(rand.Int63n(int64(750*time.Millisecond)))
		if waitErr := sleepOrDone(ctx, jitter); waitErr != nil {
			return nil, err
		}
	}

	return a.doQuote(ctx, body)
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Adapter) doQuote(ctx context.Context, body quoteRequestBody) (*quoteResponseBody, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := a.getToken(ctx)
	if err != nil {
		return nil, domain.NewAdapterError(domain.ErrorKindAuthentication, "failed to obtain access token", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewAdapterError(domain.ErrorKindInternal, "marshal quote request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/quotes", bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewAdapterError(domain.ErrorKindInternal, "build quote request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewAdapterError(domain.ErrorKindConnection, "quote request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.NewAdapterError(domain.ErrorKindAuthentication, "globalpay rejected the access token", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.NewAdapterError(domain.ErrorKindRateLimit, "globalpay rate limit exceeded", nil)
	case resp.StatusCode >= 500:
		return nil, domain.NewAdapterError(domain.ErrorKindConnection, fmt.Sprintf("globalpay returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, domain.NewAdapterError(domain.ErrorKindProviderAPI, fmt.Sprintf("globalpay returned %d", resp.StatusCode), nil)
	}

	var parsed quoteResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.NewAdapterError(domain.ErrorKindParsing, "malformed globalpay response", err)
	}
	return &parsed, nil
}

func asAdapterError(err error, target **domain.AdapterError) bool {
	ae, ok := err.(*domain.AdapterError)
	if !ok {
		return false
	}
	*target = ae
	return true
}
