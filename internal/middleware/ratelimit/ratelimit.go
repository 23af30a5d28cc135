// Package ratelimit throttles requests per client with token buckets.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client. Buckets of clients that have
// been idle for IdleTTL expire from the table.
type Limiter struct {
	mu      sync.Mutex
	clients *gocache.Cache
	limit   rate.Limit
	burst   int
	hits    int64
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// Burst defaults to RequestsPerMinute/6, at least 1.
	Burst           int
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		IdleTTL:           10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	defaults := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerMinute / 6
		if config.Burst < 1 {
			config.Burst = 1
		}
	}

	return &Limiter{
		clients: gocache.New(config.IdleTTL, config.CleanupInterval),
		limit:   rate.Every(time.Minute / time.Duration(config.RequestsPerMinute)),
		burst:   config.Burst,
	}
}

// Allow checks if a request from the given client should be allowed
func (rl *Limiter) Allow(clientIP string) bool {
	if rl.limiterFor(clientIP).Allow() {
		return true
	}
	atomic.AddInt64(&rl.hits, 1)
	return false
}

func (rl *Limiter) limiterFor(clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.clients.Get(clientIP); ok {
		l := v.(*rate.Limiter)
		rl.clients.SetDefault(clientIP, l)
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.SetDefault(clientIP, l)
	return l
}

// retryAfter is how long a limited client waits for its next token.
func (rl *Limiter) retryAfter() time.Duration {
	if rl.limit <= 0 {
		return time.Minute
	}
	return time.Duration(float64(time.Second) / float64(rl.limit))
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.clients.ItemCount()
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.hits),
		ClientCount: int64(rl.clients.ItemCount()),
	}
}

// Middleware creates HTTP middleware for rate limiting. onLimit, when set,
// writes the rejection; Retry-After is always set.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := extractIP(r)

			if !rl.Allow(clientIP) {
				secs := int(rl.retryAfter().Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
