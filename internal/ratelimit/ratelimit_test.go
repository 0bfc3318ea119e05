package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, cfg *Config) (*MemoryRateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg.CleanupPeriod = 0
	limiter := NewMemoryRateLimiter(cfg)
	limiter.now = clock.now
	t.Cleanup(limiter.Close)
	return limiter, clock
}

func TestAllowWithinWindow(t *testing.T) {
	req := require.New(t)
	limiter, clock := newTestLimiter(t, &Config{WindowSize: time.Minute, MaxAttempts: 3})

	for i := 0; i < 3; i++ {
		allowed, info := limiter.Allow("user-1")
		req.True(allowed)
		req.Equal(2-i, info.Remaining)
	}

	allowed, info := limiter.Allow("user-1")
	req.False(allowed)
	req.False(info.Banned)
	req.Equal(time.Minute, info.RetryAfter)

	allowed, _ = limiter.Allow("user-2")
	req.True(allowed)

	clock.advance(time.Minute)
	allowed, _ = limiter.Allow("user-1")
	req.True(allowed)
}

func TestBanOutlastsWindow(t *testing.T) {
	req := require.New(t)
	limiter, clock := newTestLimiter(t, &Config{WindowSize: time.Minute, MaxAttempts: 1, BanDuration: 10 * time.Minute})

	allowed, _ := limiter.Allow("user-1")
	req.True(allowed)
	allowed, info := limiter.Allow("user-1")
	req.False(allowed)
	req.True(info.Banned)

	clock.advance(2 * time.Minute)
	allowed, info = limiter.Allow("user-1")
	req.False(allowed)
	req.Equal(8*time.Minute, info.RetryAfter)

	clock.advance(8 * time.Minute)
	allowed, _ = limiter.Allow("user-1")
	req.True(allowed)
}

func TestCleanupDropsExpiredRecords(t *testing.T) {
	req := require.New(t)
	limiter, clock := newTestLimiter(t, &Config{WindowSize: time.Minute, MaxAttempts: 1})

	limiter.Allow("user-1")
	allowed, _ := limiter.Allow("user-1")
	req.False(allowed)

	limiter.cleanup()
	req.Len(limiter.attempts, 1)

	clock.advance(time.Hour)
	limiter.cleanup()
	req.Empty(limiter.attempts)

	limiter.Close()
	limiter.Close()
}

func TestGetClientIP(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	req.Equal("10.0.0.1", GetClientIP(r))

	r.Header.Set("X-Real-IP", "172.16.0.9")
	req.Equal("172.16.0.9", GetClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Equal("203.0.113.7", GetClientIP(r))
}
