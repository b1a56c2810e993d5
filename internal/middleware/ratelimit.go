package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// rateLimiter is a small per-client fixed-window counter: each client gets
// rate requests per window, and the allowance resets in full once a window
// has passed since the request that opened it. No rate-limit middleware
// library appears anywhere in the example pack's import graph for this
// teacher or its donor repos, so this is built directly on the standard
// library's time.Now and sync.Mutex — the one ambient concern in this
// repository justified as stdlib-only (see DESIGN.md).
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

// ParseRateSpec parses strings like "10/minute" or "30/second" into a
// (count, window) pair, matching the RATE_LIMIT_SUBMIT / RATE_LIMIT_STREAM
// config value shape.
func ParseRateSpec(spec string) (int, time.Duration) {
	parts := strings.SplitN(spec, "/", 2)
	count := 10
	if len(parts) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			count = n
		}
	}
	window := time.Minute
	if len(parts) > 1 {
		switch strings.ToLower(strings.TrimSpace(parts[1])) {
		case "second":
			window = time.Second
		case "minute":
			window = time.Minute
		case "hour":
			window = time.Hour
		}
	}
	return count, window
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{buckets: make(map[string]*bucket), rate: rate, window: window}
}

func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.lastSeen) >= l.window {
		l.buckets[key] = &bucket{tokens: l.rate - 1, lastSeen: now}
		return true
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// RateLimit returns a middleware enforcing rate spec (e.g. "10/minute") per
// client IP.
func RateLimit(spec string) func(next http.Handler) http.Handler {
	count, window := ParseRateSpec(spec)
	limiter := newRateLimiter(count, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if !limiter.allow(key) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"message":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
