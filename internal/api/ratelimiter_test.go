package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticLimiter struct {
	allow bool
}

func (s *staticLimiter) Allow(string) bool {
	return s.allow
}

func TestRateLimitMiddlewareBlocksWhenLimiterDenies(t *testing.T) {
	middleware := rateLimitMiddleware(&staticLimiter{allow: false}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRateLimitMiddlewarePassesWhenLimiterAllows(t *testing.T) {
	var called bool
	middleware := rateLimitMiddleware(&staticLimiter{allow: true}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
}

func TestNewClientLimiterUsesDefaults(t *testing.T) {
	limiter := newClientLimiter(0, 0)
	if !limiter.Allow("a") {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.Allow("a") {
		t.Fatalf("expected burst of one to block the second request")
	}
}

func TestClientLimiterTracksClientsSeparately(t *testing.T) {
	limiter := newClientLimiter(1, 1)
	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("expected first client to be allowed")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("expected second client to have its own bucket")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("expected first client to be limited")
	}
}

func TestClientLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
	limiter := newClientLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")
	if got := limiter.size(); got != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", got)
	}

	now = now.Add(2 * clientIdleTTL)
	limiter.Allow("10.0.0.3")
	if got := limiter.size(); got != 1 {
		t.Fatalf("expected idle clients to be evicted, got %d tracked", got)
	}
}

func TestClientKeyStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	if got := clientKey(req); got != "203.0.113.9" {
		t.Fatalf("expected host only, got %s", got)
	}

	req.RemoteAddr = "not-an-address"
	if got := clientKey(req); got != "not-an-address" {
		t.Fatalf("expected raw address fallback, got %s", got)
	}
}
