package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2)
	defer rl.Close()

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("keys are limited independently")
	}
}

func TestRateLimitByUser(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Close()

	handler := RequireUser(RateLimitByUser(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	do := func(user string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(UserIDHeader, user)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("1"); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := do("1"); code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", code)
	}
	if code := do("2"); code != http.StatusOK {
		t.Errorf("other user status = %d, want 200", code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(5)
	defer rl.Close()

	rl.Allow("stale")
	rl.idle = -time.Minute
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.limiters["stale"]; ok {
		t.Error("idle key was not removed")
	}
}
