package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig tunes one token bucket class.
type RateLimitConfig struct {
	// RequestsPerWindow is the sustained request budget per window.
	RequestsPerWindow int
	// WindowDuration is the refill window.
	WindowDuration time.Duration
	// BurstSize is extra headroom above the sustained rate.
	BurstSize int
}

// DefaultRateLimitConfig is the budget for unauthenticated traffic.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstSize:         10,
	}
}

// PerUserRateLimitConfig is the budget for authenticated callers.
func PerUserRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 1000,
		WindowDuration:    time.Minute,
		BurstSize:         50,
	}
}

// AdminWriteRateLimitConfig is the tighter budget applied to the matrix
// and override save endpoints. Saves are rare, hand-driven admin actions;
// a burst of them is either a runaway script or an abuse attempt.
func AdminWriteRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 30,
		WindowDuration:    time.Minute,
		BurstSize:         5,
	}
}

// RateLimiter is an in-memory token bucket limiter keyed by caller. The
// Redis-backed DistributedRateLimiter covers multi-instance deployments.
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.RWMutex
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter builds a limiter, falling back to the default config.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token for key, reporting whether the request may
// proceed. Tokens refill continuously at the configured rate.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     rl.config.RequestsPerWindow + rl.config.BurstSize,
			lastUpdate: time.Now(),
		}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate)

	tokensToAdd := int(elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		maxTokens := rl.config.RequestsPerWindow + rl.config.BurstSize
		if b.tokens > maxTokens {
			b.tokens = maxTokens
		}
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Remaining reports the tokens left for key without consuming one.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		return rl.config.RequestsPerWindow + rl.config.BurstSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tokens
}

// Cleanup drops buckets idle for more than two windows.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
		b.mu.Unlock()
	}
}

// StartCleanup sweeps idle buckets once per window until ctx is cancelled.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// RateLimitMiddleware rate-limits HTTP traffic keyed on the caller's
// identity when present, falling back to client IP for anonymous traffic.
// Admin write endpoints get a separate, tighter bucket via WriteHandler.
type RateLimitMiddleware struct {
	userLimiter       *RateLimiter
	anonymousLimiter  *RateLimiter
	adminWriteLimiter *RateLimiter
}

// NewRateLimitMiddleware builds the middleware and starts the bucket
// sweepers. The sweepers run for the life of the process.
func NewRateLimitMiddleware() *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		userLimiter:       NewRateLimiter(PerUserRateLimitConfig()),
		anonymousLimiter:  NewRateLimiter(DefaultRateLimitConfig()),
		adminWriteLimiter: NewRateLimiter(AdminWriteRateLimitConfig()),
	}
	m.userLimiter.StartCleanup(context.Background())
	m.anonymousLimiter.StartCleanup(context.Background())
	m.adminWriteLimiter.StartCleanup(context.Background())
	return m
}

// Handler applies the per-user or anonymous budget to next.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var key string
		var limiter *RateLimiter

		if identity, ok := GetIdentity(r); ok {
			key = "user:" + identity.UserID.String()
			limiter = m.userLimiter
		} else {
			key = "ip:" + getClientIP(r)
			limiter = m.anonymousLimiter
		}

		if !limiter.Allow(key) {
			m.rateLimitExceeded(w, limiter)
			return
		}

		remaining := limiter.Remaining(key)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(limiter.config.WindowDuration).Unix()))

		next.ServeHTTP(w, r)
	})
}

// WriteHandler applies the admin write budget on top of whatever outer
// limits already ran. Keyed the same way as Handler.
func (m *RateLimitMiddleware) WriteHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var key string
		if identity, ok := GetIdentity(r); ok {
			key = "user:" + identity.UserID.String()
		} else {
			key = "ip:" + getClientIP(r)
		}

		if !m.adminWriteLimiter.Allow(key) {
			m.rateLimitExceeded(w, m.adminWriteLimiter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) rateLimitExceeded(w http.ResponseWriter, limiter *RateLimiter) {
	retryAfter := limiter.config.WindowDuration.Seconds()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.RequestsPerWindow))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(limiter.config.WindowDuration).Unix()))
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded","retry_after":` + fmt.Sprintf("%.0f", retryAfter) + `}`))
}

func getClientIP(r *http.Request) string {
	// X-Forwarded-For wins when behind a proxy
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}
