package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// newTestLimiter returns a limiter whose clock only moves when the test
// advances *clock.
func newTestLimiter(t *testing.T, rps float64, burst int) (*rateLimiter, *time.Time) {
	t.Helper()
	rl, stop := newRateLimiter(rps, burst, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(stop)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	t.Parallel()

	rl, _ := newTestLimiter(t, 0.5, 3)
	rejected := 0
	rl.onReject = func() { rejected++ }
	h := rl.middleware(okHandler)

	for i := range 3 {
		if w := hit(h, "10.0.0.1:9999"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := hit(h, "10.0.0.1:9999")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	// One token every 2s.
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After: got %q, want 2", got)
	}
	if rejected != 1 {
		t.Errorf("onReject calls: got %d, want 1", rejected)
	}
}

func TestRateLimit_RejectionDoesNotConsumeTokens(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(t, 1, 1)
	h := rl.middleware(okHandler)

	hit(h, "10.0.0.2:1234")
	for range 5 {
		hit(h, "10.0.0.2:1234")
	}

	*clock = clock.Add(time.Second)
	if w := hit(h, "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Errorf("after refill: expected 200, got %d", w.Code)
	}
}

func TestRateLimit_PerIPIsolation(t *testing.T) {
	t.Parallel()

	rl, _ := newTestLimiter(t, 0.001, 1)
	h := rl.middleware(okHandler)

	for range 3 {
		hit(h, "192.168.1.1:1111")
	}
	if w := hit(h, "192.168.1.2:2222"); w.Code != http.StatusOK {
		t.Errorf("second IP: expected 200, got %d", w.Code)
	}
	// Same host, different source port, same bucket.
	if w := hit(h, "192.168.1.1:3333"); w.Code != http.StatusTooManyRequests {
		t.Errorf("first IP on new port: expected 429, got %d", w.Code)
	}
}

func TestRateLimit_DropIdle(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(t, 1, 1)
	rl.visitor("10.0.0.3")
	*clock = clock.Add(limiterIdleTTL / 2)
	rl.visitor("10.0.0.4")

	*clock = clock.Add(limiterIdleTTL/2 + time.Second)
	rl.dropIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["10.0.0.3"]; ok {
		t.Error("idle visitor should be dropped")
	}
	if _, ok := rl.visitors["10.0.0.4"]; !ok {
		t.Error("recent visitor should be kept")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	for d, want := range map[time.Duration]int{
		0:                       1,
		300 * time.Millisecond:  1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
		90 * time.Second:        90,
	} {
		if got := retryAfterSeconds(d); got != want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", d, got, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		remoteAddr string
		wantIP     string
	}{
		{"127.0.0.1:54321", "127.0.0.1"},
		{"10.0.0.1:80", "10.0.0.1"},
		{"[::1]:8080", "::1"},
		{"noport", "noport"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		if got := clientIP(req); got != tc.wantIP {
			t.Errorf("remoteAddr=%q: expected %q, got %q", tc.remoteAddr, tc.wantIP, got)
		}
	}
}
