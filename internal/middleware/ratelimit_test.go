package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func exhaustedLimiter() *RateLimiter {
	cfg := DefaultRateLimiterConfig()
	cfg.Burst = 1
	rl := NewRateLimiter(cfg, nil)
	rl.Allow("1.2.3.4") // burns the only token
	return rl
}

func TestAllow_EnforcesBurst(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	cfg.Burst = 3
	rl := NewRateLimiter(cfg, nil)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request beyond burst was allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("separate client shares a bucket")
	}
}

func TestAllow_Refills(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	cfg.Burst = 1
	rl := NewRateLimiter(cfg, nil)

	rl.Allow("1.2.3.4")
	if rl.Allow("1.2.3.4") {
		t.Fatal("bucket should be empty")
	}

	// Age the bucket past one interval instead of sleeping.
	rl.mu.Lock()
	rl.buckets["1.2.3.4"].last = time.Now().Add(-2 * cfg.Interval)
	rl.mu.Unlock()

	if !rl.Allow("1.2.3.4") {
		t.Error("bucket did not refill after an interval")
	}
}

func TestMiddleware_ExemptPathsBypassLimit(t *testing.T) {
	rl := exhaustedLimiter()
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path string
		want int
	}{
		{"/c/cd_abc123", http.StatusTooManyRequests},
		{"/api/countdowns", http.StatusTooManyRequests},
		{"/c/cd_abc123/live", http.StatusOK},
		{"/health", http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		req.RemoteAddr = "1.2.3.4:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("%s: status = %d; want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		header map[string]string
		want   string
	}{
		{"remote addr", "10.0.0.1:4321", nil, "10.0.0.1"},
		{"remote addr without port", "10.0.0.1", nil, "10.0.0.1"},
		{"x-forwarded-for single", "10.0.0.1:4321", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "203.0.113.7"},
		{"x-forwarded-for chain", "10.0.0.1:4321", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "203.0.113.7"},
		{"x-real-ip", "10.0.0.1:4321", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("got %q; want %q", got, tt.want)
			}
		})
	}
}
