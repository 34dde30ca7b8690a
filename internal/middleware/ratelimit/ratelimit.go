// Package ratelimit throttles clients with a token bucket per client IP.
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

// Config holds rate limiter configuration.
type Config struct {
	// RequestsPerSecond is the sustained refill rate per client.
	RequestsPerSecond float64
	Burst             int
	// IdleTTL is how long an idle client's bucket is kept.
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             10,
		IdleTTL:           10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter hands out one token bucket per client.
type Limiter struct {
	mu      sync.Mutex
	clients *gocache.Cache
	limit   rate.Limit
	burst   int
	ttl     time.Duration

	totalHits int64
}

// Metrics for monitoring rate limit performance.
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	return &Limiter{
		clients: gocache.New(config.IdleTTL, config.CleanupInterval),
		limit:   rate.Limit(config.RequestsPerSecond),
		burst:   config.Burst,
		ttl:     config.IdleTTL,
	}
}

// Allow reports whether a request from clientIP may proceed now.
func (rl *Limiter) Allow(clientIP string) bool {
	if rl.limiterFor(clientIP).Allow() {
		return true
	}
	atomic.AddInt64(&rl.totalHits, 1)
	return false
}

func (rl *Limiter) limiterFor(clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.clients.Get(clientIP); ok {
		l := v.(*rate.Limiter)
		// Touch so active clients keep their bucket.
		rl.clients.Set(clientIP, l, rl.ttl)
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.Set(clientIP, l, rl.ttl)
	return l
}

// ActiveClients returns the number of currently tracked clients.
func (rl *Limiter) ActiveClients() int {
	return rl.clients.ItemCount()
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.totalHits),
		ClientCount: int64(rl.clients.ItemCount()),
	}
}

// Middleware rejects requests over the limit with 429. Safe methods pass
// through when mutatingOnly is set.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, mutatingOnly bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mutatingOnly && isSafe(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
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

// retryAfter is the whole number of seconds until one token is back.
func (rl *Limiter) retryAfter() int {
	secs := int(1/float64(rl.limit) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func isSafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
