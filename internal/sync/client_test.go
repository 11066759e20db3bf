// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"
)

func testClientConfig() ClientConfig {
	return ClientConfig{
		MaxRetries:      5,
		Timeout:         5 * time.Second,
		Bearer:          BackoffPolicy{Base: time.Second, Cap: 32 * time.Second},
		Raw:             BackoffPolicy{Base: 2 * time.Second, Cap: 60 * time.Second},
		NetworkCap:      8 * time.Second,
		RetryHintHeader: "X-Ratelimit-Retry",
		MaxRetryHint:    2 * time.Minute,
	}
}

// sleepRecorder captures backoff delays instead of sleeping.
type sleepRecorder struct {
	mu     stdsync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func noJitter(time.Duration) time.Duration { return 0 }

func newTestClient(cfg ClientConfig, throttle Throttle) (*Client, *sleepRecorder) {
	rec := &sleepRecorder{}
	return NewClient(cfg, throttle, WithSleeper(rec.sleep), WithJitter(noJitter)), rec
}

func equalDurations(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestClient_Success(t *testing.T) {
	var gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		if r.URL.Query().Get("flag") != "0" {
			t.Errorf("flag = %q, want 0", r.URL.Query().Get("flag"))
		}
		_, _ = w.Write([]byte(`[{"srid":"a"}]`))
	}))
	defer server.Close()

	client, _ := newTestClient(testClientConfig(), NoopThrottle{})

	var out []RawRecord
	err := client.Do(context.Background(), Request{
		URL:        server.URL + "/orders",
		Query:      map[string][]string{"flag": {"0"}},
		Credential: "tok",
		Form:       FormBearer,
	}, &out)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if len(out) != 1 || out[0]["srid"] != "a" {
		t.Errorf("decoded %v", out)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestClient_RawCredentialForm(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client, _ := newTestClient(testClientConfig(), NoopThrottle{})
	if err := client.Do(context.Background(), Request{URL: server.URL, Credential: "tok", Form: FormRaw}, nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if gotAuth != "tok" {
		t.Errorf("Authorization = %q, want raw token", gotAuth)
	}
}

func TestClient_ServerErrorExhaustsExactlyMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, rec := newTestClient(testClientConfig(), NoopThrottle{})
	err := client.Do(context.Background(), Request{URL: server.URL, Form: FormBearer}, nil)

	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("Do() error = %v, want UpstreamError 503", err)
	}
	if got := attempts.Load(); got != 5 {
		t.Errorf("attempts = %d, want 5", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if got := rec.recorded(); !equalDurations(got, want) {
		t.Errorf("delays = %v, want %v", got, want)
	}
}

func TestClient_RecoversAfterTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"srid":"ok"}]`))
	}))
	defer server.Close()

	client, _ := newTestClient(testClientConfig(), NoopThrottle{})
	var out []RawRecord
	if err := client.Do(context.Background(), Request{URL: server.URL}, &out); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if attempts.Load() != 3 || len(out) != 1 {
		t.Errorf("attempts = %d, records = %d", attempts.Load(), len(out))
	}
}

func TestClient_RetryHints(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		wantDelay time.Duration
	}{
		{
			name:      "vendor header wins over Retry-After",
			headers:   map[string]string{"X-Ratelimit-Retry": "3", "Retry-After": "10"},
			wantDelay: 3 * time.Second,
		},
		{
			name:      "Retry-After seconds",
			headers:   map[string]string{"Retry-After": "7"},
			wantDelay: 7 * time.Second,
		},
		{
			name:      "fractional vendor hint",
			headers:   map[string]string{"X-Ratelimit-Retry": "1.5"},
			wantDelay: 1500 * time.Millisecond,
		},
		{
			name:      "malformed vendor hint falls back to Retry-After",
			headers:   map[string]string{"X-Ratelimit-Retry": "soon", "Retry-After": "4"},
			wantDelay: 4 * time.Second,
		},
		{
			name:      "malformed hints fall back to backoff",
			headers:   map[string]string{"X-Ratelimit-Retry": "-1", "Retry-After": "later"},
			wantDelay: time.Second,
		},
		{
			name:      "huge hint is clamped",
			headers:   map[string]string{"X-Ratelimit-Retry": "99999"},
			wantDelay: 2 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) > 1 {
					_, _ = w.Write([]byte(`[]`))
					return
				}
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer server.Close()

			client, rec := newTestClient(testClientConfig(), NoopThrottle{})
			if err := client.Do(context.Background(), Request{URL: server.URL, Form: FormBearer}, nil); err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			got := rec.recorded()
			if len(got) != 1 || got[0] != tt.wantDelay {
				t.Errorf("delays = %v, want [%v]", got, tt.wantDelay)
			}
		})
	}
}

func TestClient_RetryAfterHTTPDate(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) > 1 {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		w.Header().Set("Retry-After", time.Now().Add(30*time.Second).UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, rec := newTestClient(testClientConfig(), NoopThrottle{})
	if err := client.Do(context.Background(), Request{URL: server.URL}, nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	got := rec.recorded()
	if len(got) != 1 || got[0] < 25*time.Second || got[0] > 30*time.Second {
		t.Errorf("delays = %v, want about 30s", got)
	}
}

func TestClient_RateLimitedAfterRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("X-Ratelimit-Retry", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testClientConfig()
	cfg.MaxRetries = 3
	client, rec := newTestClient(cfg, NoopThrottle{})
	err := client.Do(context.Background(), Request{URL: server.URL}, nil)

	var rl *RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("Do() error = %v, want RateLimitedError", err)
	}
	if rl.RetryAfter != 5*time.Second || rl.Attempts != 3 {
		t.Errorf("RateLimitedError = %+v", rl)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
	if len(rec.recorded()) != 2 {
		t.Errorf("slept %d times, want 2", len(rec.recorded()))
	}
}

func TestClient_NonRetryableStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantAuth bool
	}{
		{http.StatusNotFound, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(" nope \n"))
			}))
			defer server.Close()

			client, rec := newTestClient(testClientConfig(), NoopThrottle{})
			err := client.Do(context.Background(), Request{URL: server.URL}, nil)

			var upErr *UpstreamError
			if !errors.As(err, &upErr) || upErr.Status != tt.status {
				t.Fatalf("Do() error = %v, want UpstreamError %d", err, tt.status)
			}
			if upErr.Body != "nope" {
				t.Errorf("Body = %q, want trimmed body", upErr.Body)
			}
			if upErr.IsAuthFailure() != tt.wantAuth {
				t.Errorf("IsAuthFailure() = %v, want %v", upErr.IsAuthFailure(), tt.wantAuth)
			}
			if attempts.Load() != 1 || len(rec.recorded()) != 0 {
				t.Errorf("attempts = %d, sleeps = %d; want 1, 0", attempts.Load(), len(rec.recorded()))
			}
		})
	}
}

func TestClient_MalformedResponseNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	client, _ := newTestClient(testClientConfig(), NoopThrottle{})
	var out []RawRecord
	err := client.Do(context.Background(), Request{URL: server.URL}, &out)

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("Do() error = %v, want MalformedResponseError", err)
	}
	if malformed.Snippet != "<html>maintenance</html>" {
		t.Errorf("Snippet = %q", malformed.Snippet)
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1", attempts.Load())
	}
}

func TestClient_NetworkErrorUsesNetworkCeiling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := testClientConfig()
	cfg.NetworkCap = 3 * time.Second
	client, rec := newTestClient(cfg, NoopThrottle{})
	err := client.Do(context.Background(), Request{URL: url}, nil)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Do() error = %v, want TransportError", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	if got := rec.recorded(); !equalDurations(got, want) {
		t.Errorf("delays = %v, want %v", got, want)
	}
}

func TestClient_InvalidURLNotRetried(t *testing.T) {
	client, rec := newTestClient(testClientConfig(), NoopThrottle{})
	err := client.Do(context.Background(), Request{URL: "::not a url"}, nil)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Do() error = %v, want TransportError", err)
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("slept %d times, want 0", len(rec.recorded()))
	}
}

func TestClient_CanceledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(testClientConfig(), NoopThrottle{}, WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	err := client.Do(ctx, Request{URL: server.URL}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

// countingThrottle counts Wait calls.
type countingThrottle struct{ waits atomic.Int32 }

func (c *countingThrottle) Wait(ctx context.Context) error {
	c.waits.Add(1)
	return ctx.Err()
}

func TestClient_ThrottleBeforeEveryAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	throttle := &countingThrottle{}
	cfg := testClientConfig()
	cfg.MaxRetries = 4
	client, _ := newTestClient(cfg, throttle)
	_ = client.Do(context.Background(), Request{URL: server.URL}, nil)

	if got := throttle.waits.Load(); got != 4 {
		t.Errorf("throttle waits = %d, want 4", got)
	}
}

func TestClient_Backoff(t *testing.T) {
	client, _ := newTestClient(testClientConfig(), NoopThrottle{})
	raw := client.policyFor(FormRaw)
	bearer := client.policyFor(FormBearer)

	tests := []struct {
		name    string
		policy  BackoffPolicy
		attempt int
		want    time.Duration
	}{
		{"bearer first retry", bearer, 0, time.Second},
		{"bearer capped", bearer, 6, 32 * time.Second},
		{"raw first retry", raw, 0, 2 * time.Second},
		{"raw fourth retry", raw, 3, 16 * time.Second},
		{"raw capped", raw, 5, 60 * time.Second},
		{"huge attempt", raw, 100, 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.backoff(tt.policy, tt.attempt, tt.policy.Cap); got != tt.want {
				t.Errorf("backoff() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("jitter stays below base", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			if j := randomJitter(time.Second); j < 0 || j >= time.Second {
				t.Fatalf("randomJitter() = %v", j)
			}
		}
	})
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testClientConfig()
	cfg.MaxRetries = 1
	cfg.CircuitBreaker = true
	client, _ := newTestClient(cfg, NoopThrottle{})

	for i := 0; i < 10; i++ {
		_ = client.Do(context.Background(), Request{URL: server.URL}, nil)
	}
	if client.BreakerState() != "open" {
		t.Fatalf("BreakerState() = %s, want open", client.BreakerState())
	}

	err := client.Do(context.Background(), Request{URL: server.URL}, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Do() error = %v, want ErrCircuitOpen", err)
	}
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Errorf("open breaker should surface a TransportError, got %T", err)
	}
	if attempts.Load() != 10 {
		t.Errorf("server saw %d requests, want 10", attempts.Load())
	}
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testClientConfig()
	cfg.CircuitBreaker = true
	client, _ := newTestClient(cfg, NoopThrottle{})

	for i := 0; i < 15; i++ {
		_ = client.Do(context.Background(), Request{URL: server.URL}, nil)
	}
	if client.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %s, want closed", client.BreakerState())
	}
}

func TestBareToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
		" abc ":        "abc",
		"Bearer":       "Bearer",
	}
	for in, want := range tests {
		if got := BareToken(in); got != want {
			t.Errorf("BareToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewThrottle(t *testing.T) {
	if _, ok := NewThrottle(0).(NoopThrottle); !ok {
		t.Error("NewThrottle(0) should disable throttling")
	}
	th := NewThrottle(6000)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := th.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	// 6000 rpm is one call per 10ms with burst 1: the third call waits ~20ms.
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("three waits took %v, want >= 15ms", elapsed)
	}
}

func TestClient_ErrorBodyMasksCredential(t *testing.T) {
	const token = "tok-1234567890-secret"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid token ` + token + `"}`))
	}))
	defer server.Close()

	client, _ := newTestClient(testClientConfig(), NoopThrottle{})
	err := client.Do(context.Background(), Request{URL: server.URL, Credential: token}, nil)

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Do() error = %v, want UpstreamError", err)
	}
	if upErr.Body != `{"detail":"invalid token ***"}` {
		t.Errorf("Body = %q, want credential masked", upErr.Body)
	}
}
