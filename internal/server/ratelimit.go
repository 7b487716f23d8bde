package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"pmtailor/internal/config"
	"pmtailor/internal/errors"

	"golang.org/x/time/rate"
)

const limiterSweepInterval = 10 * time.Minute

// bucket pairs a token bucket with the last time its key was seen, so
// idle entries can be swept out.
type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter hands out a token bucket per key (client IP or API key)
// and evicts buckets that have gone idle.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	done    chan struct{}
	logger  *errors.Logger
}

// NewRateLimiter builds a limiter from the rate-limit config block and
// starts the background sweep.
func NewRateLimiter(cfg *config.RateLimitConfig, logger *errors.Logger) *RateLimiter {
	// Evicting a bucket hands the key a fresh burst, so the idle age
	// never drops below the sweep interval.
	idleAge := cfg.Window
	if idleAge < limiterSweepInterval {
		idleAge = limiterSweepInterval
	}

	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(cfg.RequestsPerMin) / 60.0),
		burst:   cfg.BurstCapacity,
		done:    make(chan struct{}),
		logger:  logger,
	}
	go rl.sweepLoop(idleAge)
	return rl
}

// Allow reports whether the request for key fits its bucket. Non-blocking.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = time.Now()
	rl.mu.Unlock()

	return b.lim.Allow()
}

// GetStats returns current rate limiter statistics.
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_limiters": len(rl.buckets),
		"rate_per_second": float64(rl.limit),
		"rate_per_minute": float64(rl.limit) * 60.0,
		"burst_capacity":  rl.burst,
	}
}

// Close stops the sweep goroutine.
func (rl *RateLimiter) Close() {
	close(rl.done)
}

func (rl *RateLimiter) sweepLoop(idleAge time.Duration) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep(idleAge)
		case <-rl.done:
			return
		}
	}
}

// sweep drops buckets whose keys have been idle longer than idleAge.
func (rl *RateLimiter) sweep(idleAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idleAge)
	for key, b := range rl.buckets {
		if b.seen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}

	if rl.logger != nil {
		rl.logger.Debug("Rate limiter sweep completed",
			"remaining_limiters", len(rl.buckets))
	}
}

// rateLimitMiddleware rejects requests whose key has exhausted its bucket.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key != "" && !s.RateLimiter.Allow(key) {
				s.Logger.Info("Rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}
			next(w, r)
		}
	}
}

// getRateLimitKey picks the bucket key for a request. API-key limiting
// takes precedence over per-IP limiting when both are enabled.
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				apiKey = bearer
			}
		}
		if apiKey != "" {
			return "api:" + apiKey
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// getClientIP resolves the client address, trusting proxy headers before
// falling back to the socket peer.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for candidate := range strings.SplitSeq(xff, ",") {
			candidate = strings.TrimSpace(candidate)
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
