package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/darkodi/countdown-qr/internal/logger"
)

// RateLimiter is a per-IP token bucket. The public countdown pages are
// the hot path here; the edit API shares the same buckets.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     RateLimiterConfig
	log     *logger.Logger
}

type bucket struct {
	tokens int
	last   time.Time
}

// RateLimiterConfig holds rate limiter settings
type RateLimiterConfig struct {
	Rate           int           // tokens added per interval
	Burst          int           // bucket size
	Interval       time.Duration // token refill interval
	Cleanup        time.Duration // idle-bucket eviction interval
	ExemptSuffixes []string      // path suffixes that bypass limiting
}

// DefaultRateLimiterConfig returns sensible defaults. Health probes
// and the live snapshot streams are exempt: a stream is one long
// request, and throttling its reconnects starves clients of the final
// ended snapshot.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:           10,
		Burst:          20,
		Interval:       time.Second,
		Cleanup:        5 * time.Minute,
		ExemptSuffixes: []string{"/health", "/live"},
	}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg RateLimiterConfig, log *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		log:     log,
	}

	go rl.cleanupLoop()

	return rl
}

// Allow checks if a request from the given IP is allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	b, ok := rl.buckets[ip]
	if !ok {
		// New client gets a full bucket, minus the current request.
		rl.buckets[ip] = &bucket{tokens: rl.cfg.Burst - 1, last: now}
		return true
	}

	if refill := int(now.Sub(b.last)/rl.cfg.Interval) * rl.cfg.Rate; refill > 0 {
		b.tokens = min(b.tokens+refill, rl.cfg.Burst)
		b.last = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) exempt(path string) bool {
	for _, suffix := range rl.cfg.ExemptSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// cleanupLoop evicts buckets that have been idle for a full cleanup
// interval.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.Cleanup)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.cfg.Cleanup)
		for ip, b := range rl.buckets {
			if b.last.Before(cutoff) {
				delete(rl.buckets, ip)
			}
		}
		count := len(rl.buckets)
		rl.mu.Unlock()

		if rl.log != nil {
			rl.log.Debug("rate limiter cleanup", "active_clients", count)
		}
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)

			if !rl.Allow(ip) {
				if rl.log != nil {
					rl.log.Warn("rate limit exceeded",
						"request_id", getRequestID(r.Context()),
						"ip", ip,
						"path", r.URL.Path,
					)
				}

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "rate limit exceeded", "retry_after": "1s"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request, preferring
// proxy headers over the raw remote address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
