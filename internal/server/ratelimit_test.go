package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmtailor/internal/config"
)

func newTestRateLimiter(requestsPerMin, burst int) *RateLimiter {
	return NewRateLimiter(&config.RateLimitConfig{
		RequestsPerMin: requestsPerMin,
		BurstCapacity:  burst,
		Window:         time.Minute,
	}, nil)
}

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := newTestRateLimiter(60, 2)
	defer rl.Close()

	assert.True(t, rl.Allow("ip:10.0.0.1"))
	assert.True(t, rl.Allow("ip:10.0.0.1"))
	assert.False(t, rl.Allow("ip:10.0.0.1"), "third request should exceed the burst")
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := newTestRateLimiter(60, 1)
	defer rl.Close()

	require.True(t, rl.Allow("ip:10.0.0.1"))
	assert.False(t, rl.Allow("ip:10.0.0.1"))
	assert.True(t, rl.Allow("ip:10.0.0.2"), "a different key has its own bucket")
}

func TestRateLimiterStats(t *testing.T) {
	rl := newTestRateLimiter(120, 5)
	defer rl.Close()

	rl.Allow("api:abc")
	rl.Allow("ip:10.0.0.1")

	stats := rl.GetStats()
	assert.Equal(t, 2, stats["active_limiters"])
	assert.InDelta(t, 2.0, stats["rate_per_second"].(float64), 0.001)
	assert.InDelta(t, 120.0, stats["rate_per_minute"].(float64), 0.001)
	assert.Equal(t, 5, stats["burst_capacity"])
}

func TestRateLimiterSweepEvictsIdleKeys(t *testing.T) {
	rl := newTestRateLimiter(60, 1)
	defer rl.Close()

	rl.Allow("ip:10.0.0.1")
	rl.Allow("ip:10.0.0.2")

	rl.mu.Lock()
	rl.buckets["ip:10.0.0.1"].seen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.sweep(30 * time.Minute)

	stats := rl.GetStats()
	assert.Equal(t, 1, stats["active_limiters"], "only the idle bucket is evicted")
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		bearer   string
		byAPIKey bool
		byIP     bool
		want     string
	}{
		{"api key header", "secret", "", true, true, "api:secret"},
		{"bearer token", "", "secret", true, true, "api:secret"},
		{"falls back to ip", "", "", true, true, "ip:192.0.2.1"},
		{"ip only", "secret", "", false, true, "ip:192.0.2.1"},
		{"disabled", "secret", "", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/tailor", nil)
			r.RemoteAddr = "192.0.2.1:54321"
			if tt.apiKey != "" {
				r.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.bearer != "" {
				r.Header.Set("Authorization", "Bearer "+tt.bearer)
			}

			assert.Equal(t, tt.want, getRateLimitKey(r, tt.byAPIKey, tt.byIP))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.0.2.1:54321", nil, "192.0.2.1"},
		{"x-forwarded-for", "192.0.2.1:54321", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"x-real-ip", "192.0.2.1:54321", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"invalid forwarded entries ignored", "192.0.2.1:54321", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/health", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
