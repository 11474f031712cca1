package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_BlocksAfterLimit(t *testing.T) {
	l := NewIPRateLimiter(2, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(remote, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/session", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if got := do("10.0.0.1:1234", ""); got != http.StatusNoContent {
			t.Fatalf("request %d status=%d", i, got)
		}
	}
	if got := do("10.0.0.1:5678", ""); got != http.StatusTooManyRequests {
		t.Fatalf("status=%d want 429", got)
	}
	if got := do("10.0.0.2:1234", ""); got != http.StatusNoContent {
		t.Fatalf("other ip status=%d", got)
	}
	if got := do("10.0.0.3:1234", "10.0.0.1, 192.168.1.1"); got != http.StatusTooManyRequests {
		t.Fatalf("forwarded ip status=%d want 429", got)
	}
}

func TestIPRateLimiter_RefillsOverWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if _, ok := l.allow("10.0.0.1"); !ok {
			t.Fatalf("request %d rejected", i)
		}
	}

	wait, ok := l.allow("10.0.0.1")
	if ok {
		t.Fatalf("third request allowed")
	}
	if wait <= 0 || wait > 30*time.Second {
		t.Fatalf("wait=%v want (0, 30s]", wait)
	}

	now = now.Add(30 * time.Second)
	if _, ok := l.allow("10.0.0.1"); !ok {
		t.Fatalf("token not refilled after %v", 30*time.Second)
	}
}

func TestIPRateLimiter_ForgetsIdleVisitors(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
	if len(l.visitors) != 2 {
		t.Fatalf("visitors=%d want 2", len(l.visitors))
	}

	now = now.Add(2 * time.Minute)
	l.allow("10.0.0.3")
	if len(l.visitors) != 1 {
		t.Fatalf("visitors=%d want 1 after sweep", len(l.visitors))
	}
}

func TestMetricsAuth(t *testing.T) {
	h := MetricsAuth("scrape-token")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusForbidden},
		{"wrong", "Bearer nope", http.StatusForbidden},
		{"basic", "Basic scrape-token", http.StatusForbidden},
		{"ok", "Bearer scrape-token", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status=%d want=%d", rec.Code, tc.want)
			}
		})
	}
}
