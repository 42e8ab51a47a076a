package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"skillcourt-backend/pkg/common"
	apperrors "skillcourt-backend/pkg/errors"
)

// RateLimiter applies per-client token bucket limiting. Each client key
// starts with a full bucket of maxTokens and regains one token per
// refillEvery. Stale buckets are dropped after an hour of inactivity.
type RateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*tokenBucket
	maxTokens   int
	refillEvery time.Duration
	lastSweep   time.Time
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing maxTokens burst with one
// token restored per refillEvery.
func NewRateLimiter(maxTokens int, refillEvery time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:     make(map[string]*tokenBucket),
		maxTokens:   maxTokens,
		refillEvery: refillEvery,
		lastSweep:   time.Now(),
	}
}

// Allow reports whether a request under the given key may proceed,
// consuming a token when it may.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweepLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.maxTokens, lastRefill: now}
		l.buckets[key] = b
	}

	if refilled := int(now.Sub(b.lastRefill) / l.refillEvery); refilled > 0 {
		b.tokens += refilled
		if b.tokens > l.maxTokens {
			b.tokens = l.maxTokens
		}
		b.lastRefill = now
	}

	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}

// sweepLocked drops buckets idle long enough to have refilled completely.
// Runs at most once per 5 minutes, piggybacked on Allow.
func (l *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < 5*time.Minute {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) > time.Hour {
			delete(l.buckets, key)
		}
	}
}

// Handler rejects requests over the limit with 429, keyed by client IP.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientKey(r)) {
			common.RespondError(w, apperrors.NewThrottledError("too many requests, slow down"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
