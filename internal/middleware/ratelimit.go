package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// TokenBucket implements token bucket rate limiting
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     int
	refillRate int // tokens per second
	lastRefill time.Time
	lastSeen   time.Time
	now        func() time.Time
}

func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity, refillRate int, now func() time.Time) *TokenBucket {
	t := now()
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: t,
		lastSeen:   t,
		now:        now,
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	tb.lastSeen = now
	tokensToAdd := int(now.Sub(tb.lastRefill).Seconds() * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens = min(tb.tokens+tokensToAdd, tb.capacity)
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimiter manages rate limits per tenant and client
type RateLimiter struct {
	mu         sync.RWMutex
	buckets    map[string]*TokenBucket
	capacity   int
	refillRate int
	now        func() time.Time
}

func NewRateLimiter(capacity, refillRate int) *RateLimiter {
	return &RateLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		now:        time.Now,
	}
}

func (rl *RateLimiter) getBucket(key string) *TokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()
	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	// Double-check after acquiring write lock
	if bucket, exists := rl.buckets[key]; exists {
		return bucket
	}
	bucket = newTokenBucket(rl.capacity, rl.refillRate, rl.now)
	rl.buckets[key] = bucket
	return bucket
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.getBucket(key).Allow()
}

// Sweep removes buckets idle for longer than idle.
func (rl *RateLimiter) Sweep(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, bucket := range rl.buckets {
		bucket.mu.Lock()
		stale := now.Sub(bucket.lastSeen) > idle
		bucket.mu.Unlock()
		if stale {
			delete(rl.buckets, key)
		}
	}
}

// RunCleanup sweeps idle buckets every interval until stop is closed.
func (rl *RateLimiter) RunCleanup(stop <-chan struct{}, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.Sweep(idle)
		}
	}
}

// Middleware rate limits per tenant + client IP. It must run after
// APIKeyAuth so the tenant is known.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetTenantFromContext(r.Context()) + ":" + clientIP(r)
		if !rl.Allow(key) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
