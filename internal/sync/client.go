// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marketlens/internal/config"
	"github.com/tomtom215/marketlens/internal/logging"
	"github.com/tomtom215/marketlens/internal/metrics"
)

const (
	// maxErrorBodySize limits how much of a non-2xx body is kept for error messages.
	maxErrorBodySize = 64 * 1024

	// maxResponseBodySize bounds a single decoded page.
	maxResponseBodySize = 512 << 20

	// malformedSnippetSize is how much of an undecodable body is echoed in errors.
	malformedSnippetSize = 120
)

// CredentialForm selects how the credential is placed in the Authorization header.
// The upstream accepts both a bearer-prefixed and a raw token.
type CredentialForm int

const (
	// FormBearer sends "Authorization: Bearer <token>".
	FormBearer CredentialForm = iota
	// FormRaw sends "Authorization: <token>".
	FormRaw
)

func (f CredentialForm) String() string {
	if f == FormRaw {
		return "raw"
	}
	return "bearer"
}

// Other returns the alternate credential form.
func (f CredentialForm) Other() CredentialForm {
	if f == FormRaw {
		return FormBearer
	}
	return FormRaw
}

// header renders the Authorization header value for token.
func (f CredentialForm) header(token string) string {
	if f == FormRaw {
		return token
	}
	return "Bearer " + token
}

// BareToken strips an optional "Bearer " prefix from a caller credential.
func BareToken(credential string) string {
	credential = strings.TrimSpace(credential)
	if len(credential) > 7 && strings.EqualFold(credential[:7], "bearer ") {
		return strings.TrimSpace(credential[7:])
	}
	return credential
}

// BackoffPolicy is the exponential backoff profile for one credential form.
type BackoffPolicy struct {
	Base time.Duration
	Cap  time.Duration
}

// ClientConfig configures the backoff HTTP client.
type ClientConfig struct {
	// MaxRetries is the total number of attempts per request.
	MaxRetries int

	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration

	Bearer BackoffPolicy
	Raw    BackoffPolicy

	// NetworkCap is the backoff ceiling for connection errors and timeouts.
	NetworkCap time.Duration

	// RetryHintHeader is the vendor retry hint; it wins over Retry-After.
	RetryHintHeader string

	// MaxRetryHint clamps upstream hints.
	MaxRetryHint time.Duration

	// CircuitBreaker enables the gobreaker guard.
	CircuitBreaker bool
}

// ClientConfigFrom maps the upstream configuration section onto ClientConfig.
func ClientConfigFrom(cfg *config.UpstreamConfig) ClientConfig {
	return ClientConfig{
		MaxRetries:      cfg.MaxRetries,
		Timeout:         cfg.Timeout,
		Bearer:          BackoffPolicy{Base: cfg.BearerBaseDelay, Cap: cfg.BearerMaxDelay},
		Raw:             BackoffPolicy{Base: cfg.RawBaseDelay, Cap: cfg.RawMaxDelay},
		NetworkCap:      cfg.NetworkMaxDelay,
		RetryHintHeader: cfg.RetryHintHeader,
		MaxRetryHint:    cfg.MaxRetryHint,
		CircuitBreaker:  cfg.CircuitBreakerEnabled,
	}
}

// Request describes one logical upstream call. Retries reuse it unchanged.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte

	// Credential is the bare token; Form decides how it is sent.
	Credential string
	Form       CredentialForm

	// Timeout and MaxRetries override the client defaults when positive.
	Timeout    time.Duration
	MaxRetries int

	// Endpoint labels metrics; defaults to the URL path.
	Endpoint string
}

// Client issues upstream requests with bounded retries, honoring rate-limit
// signaling, behind the shared process-wide throttle.
type Client struct {
	http     *http.Client
	cfg      ClientConfig
	throttle Throttle
	breaker  *circuitBreaker
	sleep    func(ctx context.Context, d time.Duration) error
	jitter   func(base time.Duration) time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithSleeper replaces the backoff sleep. Tests use it to record delays.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = sleep }
}

// WithJitter replaces the jitter source.
func WithJitter(jitter func(base time.Duration) time.Duration) ClientOption {
	return func(c *Client) { c.jitter = jitter }
}

// NewClient creates a backoff client. throttle is the process-wide limiter
// shared by every caller; pass NoopThrottle{} in tests.
func NewClient(cfg ClientConfig, throttle Throttle, opts ...ClientOption) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if throttle == nil {
		throttle = NoopThrottle{}
	}

	c := &Client{
		http:     &http.Client{},
		cfg:      cfg,
		throttle: throttle,
		sleep:    sleepContext,
		jitter:   randomJitter,
	}
	if cfg.CircuitBreaker {
		c.breaker = newCircuitBreaker("order-feed")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerState returns the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.state()
}

// Do performs req with retries and decodes the JSON body into out (which may
// be nil). It fails with *TransportError, *RateLimitedError, *UpstreamError
// or *MalformedResponseError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if c.breaker == nil {
		return c.doWithRetry(ctx, req, out)
	}
	return c.breaker.execute(req.URL, func() error {
		return c.doWithRetry(ctx, req, out)
	})
}

// doWithRetry runs the backoff loop. Total attempts never exceed maxAttempts.
func (c *Client) doWithRetry(ctx context.Context, req Request, out any) error {
	maxAttempts := c.cfg.MaxRetries
	if req.MaxRetries > 0 {
		maxAttempts = req.MaxRetries
	}
	policy := c.policyFor(req.Form)
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = endpointLabel(req.URL)
	}

	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return &TransportError{URL: req.URL, Err: fmt.Errorf("invalid request URL: %w", err)}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.waitThrottle(ctx); err != nil {
			return &TransportError{URL: req.URL, Err: err}
		}

		start := time.Now()
		status, header, body, err := c.attempt(ctx, req)
		metrics.RecordUpstreamAttempt(endpoint, status, time.Since(start))

		var delay time.Duration
		var reason string

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return &TransportError{URL: req.URL, Err: ctx.Err()}
			}
			lastErr = &TransportError{URL: req.URL, Err: err}
			delay = c.backoff(policy, attempt, minDuration(c.cfg.NetworkCap, policy.Cap))
			reason = "network"

		case status >= 200 && status < 300:
			return decodeJSONResponse(body, out)

		case isRetryableStatus(status):
			hint, ok := c.retryHint(header)
			if ok {
				delay = hint
			} else {
				delay = c.backoff(policy, attempt, policy.Cap)
			}
			if status == http.StatusTooManyRequests {
				lastErr = &RateLimitedError{RetryAfter: delay, Attempts: attempt + 1}
				reason = "rate_limited"
			} else {
				lastErr = &UpstreamError{Status: status, Body: logging.SanitizeBody(string(body), req.Credential)}
				reason = "server_error"
			}

		default:
			return &UpstreamError{Status: status, Body: logging.SanitizeBody(string(body), req.Credential)}
		}

		if attempt == maxAttempts-1 {
			break
		}

		metrics.UpstreamRetries.WithLabelValues(reason).Inc()
		logging.Ctx(ctx).Warn().
			Err(lastErr).
			Str("endpoint", endpoint).
			Str("credential_form", req.Form.String()).
			Int("attempt", attempt+1).
			Int("max_attempts", maxAttempts).
			Dur("delay", delay).
			Msg("Upstream request failed, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return &TransportError{URL: req.URL, Err: err}
		}
	}

	return lastErr
}

// attempt performs a single HTTP exchange. For non-2xx responses the body is
// read through the error-size limit.
func (c *Client) attempt(ctx context.Context, req Request) (int, http.Header, []byte, error) {
	timeout := c.cfg.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.buildRequest(attemptCtx, req)
	if err != nil {
		return 0, nil, nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, resp.Header, readBodyForError(resp.Body), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Credential != "" {
		httpReq.Header.Set("Authorization", req.Form.header(req.Credential))
	}
	return httpReq, nil
}

func (c *Client) policyFor(form CredentialForm) BackoffPolicy {
	if form == FormRaw {
		return c.cfg.Raw
	}
	return c.cfg.Bearer
}

// backoff returns min(ceiling, base*2^attempt + jitter).
func (c *Client) backoff(p BackoffPolicy, attempt int, ceiling time.Duration) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	if attempt > 30 {
		return ceiling
	}
	d := p.Base<<uint(attempt) + c.jitter(p.Base)
	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}

// retryHint reads the vendor header first, then Retry-After. Malformed or
// negative values are ignored so the caller falls back to backoff.
func (c *Client) retryHint(h http.Header) (time.Duration, bool) {
	if c.cfg.RetryHintHeader != "" {
		if d, ok := parseRetrySeconds(h.Get(c.cfg.RetryHintHeader)); ok {
			return c.clampHint(d), true
		}
	}

	v := h.Get("Retry-After")
	if d, ok := parseRetrySeconds(v); ok {
		return c.clampHint(d), true
	}
	if t, err := http.ParseTime(v); err == nil {
		return c.clampHint(max(time.Until(t), 0)), true
	}
	return 0, false
}

func (c *Client) clampHint(d time.Duration) time.Duration {
	if c.cfg.MaxRetryHint > 0 && d > c.cfg.MaxRetryHint {
		return c.cfg.MaxRetryHint
	}
	return d
}

func (c *Client) waitThrottle(ctx context.Context) error {
	start := time.Now()
	err := c.throttle.Wait(ctx)
	metrics.ThrottleWait.Observe(time.Since(start).Seconds())
	return err
}

// parseRetrySeconds parses a non-negative decimal number of seconds.
func parseRetrySeconds(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, false
	}
	if secs > float64(math.MaxInt64/int64(time.Second)) {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(secs * float64(time.Second)), true
}

// decodeJSONResponse decodes body into out. Decoding failures are not retried.
func decodeJSONResponse(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		snippet := body
		if len(snippet) > malformedSnippetSize {
			snippet = snippet[:malformedSnippetSize]
		}
		return &MalformedResponseError{Err: err, Snippet: string(snippet)}
	}
	return nil
}

// readBodyForError reads at most maxErrorBodySize bytes of an error body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return bytes.TrimSpace(body)
}

// endpointLabel reduces a URL to its path for metric labels.
func endpointLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return u.Path
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// randomJitter returns a uniform duration in [0, base).
func randomJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return rand.N(base)
}

func minDuration(a, b time.Duration) time.Duration {
	if a <= 0 {
		return b
	}
	if b <= 0 || a < b {
		return a
	}
	return b
}
