package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/tradereads/tradereads-api/internal/api/shared"
	"github.com/tradereads/tradereads-api/internal/config"
	"golang.org/x/time/rate"
)

// clientIdleTTL is how long an idle client's limiter is remembered.
const clientIdleTTL = 3 * time.Minute

// RateLimiter throttles requests per client IP with a token bucket.
type RateLimiter struct {
	enabled bool
	limit   rate.Limit
	burst   int

	mu      sync.Mutex
	clients *ttlcache.Cache[string, *rate.Limiter]
}

// NewRateLimiter creates a RateLimiter from cfg. Call Stop to release the
// expiry goroutine.
func NewRateLimiter(cfg config.LimiterConfig) *RateLimiter {
	clients := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](clientIdleTTL),
	)
	go clients.Start()

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		enabled: cfg.Enabled,
		limit:   rate.Limit(cfg.RPS),
		burst:   burst,
		clients: clients,
	}
}

// Stop halts expiry of idle clients.
func (l *RateLimiter) Stop() {
	l.clients.Stop()
}

// Limit rejects requests beyond the client's allowance with 429.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.enabled {
			next.ServeHTTP(w, r)
			return
		}
		if !l.limiterFor(shared.ClientIP(r)).Allow() {
			shared.RespondWithError(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterFor returns ip's limiter, creating it on first sight. Each access
// extends the entry's TTL.
func (l *RateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if item := l.clients.Get(ip); item != nil {
		return item.Value()
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.clients.Set(ip, limiter, ttlcache.DefaultTTL)
	return limiter
}
