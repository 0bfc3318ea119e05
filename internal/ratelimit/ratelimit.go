// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds rate limiting configuration
type Config struct {
	WindowSize    time.Duration // Time window for rate limiting
	MaxAttempts   int           // Maximum attempts per window
	CleanupPeriod time.Duration // How often to clean up old entries
	BanDuration   time.Duration // Lockout after exceeding the limit; zero waits out the window instead
}

// DefaultSendConfig returns the limits applied to sending chat messages.
func DefaultSendConfig() *Config {
	return &Config{
		WindowSize:    time.Minute,
		MaxAttempts:   20,
		CleanupPeriod: 10 * time.Minute,
	}
}

// attemptRecord tracks attempts for an identifier
type attemptRecord struct {
	Count     int
	FirstSeen time.Time
	BannedAt  *time.Time
}

// MemoryRateLimiter implements in-memory fixed-window rate limiting.
type MemoryRateLimiter struct {
	config   *Config
	attempts map[string]*attemptRecord
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewMemoryRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Close to stop it.
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	limiter := &MemoryRateLimiter{
		config:   config,
		attempts: make(map[string]*attemptRecord),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	if config.CleanupPeriod > 0 {
		go limiter.cleanupLoop()
	}
	return limiter
}

// Allow checks if a request should be allowed
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	record, exists := rl.attempts[identifier]

	if !exists || rl.windowExpired(record, now) {
		rl.attempts[identifier] = &attemptRecord{
			Count:     1,
			FirstSeen: now,
		}
		return true, &RateLimitInfo{
			Allowed:   true,
			Limit:     rl.config.MaxAttempts,
			Remaining: rl.config.MaxAttempts - 1,
			ResetTime: now.Add(rl.config.WindowSize),
		}
	}

	if record.BannedAt != nil {
		banEnd := record.BannedAt.Add(rl.config.BanDuration)
		return false, &RateLimitInfo{
			Limit:      rl.config.MaxAttempts,
			ResetTime:  banEnd,
			RetryAfter: banEnd.Sub(now),
			Banned:     true,
		}
	}

	record.Count++

	if record.Count > rl.config.MaxAttempts {
		if rl.config.BanDuration > 0 {
			banTime := now
			record.BannedAt = &banTime
			return false, &RateLimitInfo{
				Limit:      rl.config.MaxAttempts,
				ResetTime:  now.Add(rl.config.BanDuration),
				RetryAfter: rl.config.BanDuration,
				Banned:     true,
			}
		}
		reset := record.FirstSeen.Add(rl.config.WindowSize)
		return false, &RateLimitInfo{
			Limit:      rl.config.MaxAttempts,
			ResetTime:  reset,
			RetryAfter: reset.Sub(now),
		}
	}

	return true, &RateLimitInfo{
		Allowed:   true,
		Limit:     rl.config.MaxAttempts,
		Remaining: rl.config.MaxAttempts - record.Count,
		ResetTime: record.FirstSeen.Add(rl.config.WindowSize),
	}
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
	Banned     bool
}

// windowExpired reports whether record no longer limits anything: its window
// has passed and it is not under a ban, or its ban has run out.
func (rl *MemoryRateLimiter) windowExpired(record *attemptRecord, now time.Time) bool {
	if record.BannedAt != nil {
		return now.Sub(*record.BannedAt) >= rl.config.BanDuration
	}
	return now.Sub(record.FirstSeen) >= rl.config.WindowSize
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for identifier, record := range rl.attempts {
		if rl.windowExpired(record, now) {
			delete(rl.attempts, identifier)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *MemoryRateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the real client IP from request
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := parseFirstIP(forwarded); ip != "" {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// parseFirstIP extracts the first IP from a comma-separated list
func parseFirstIP(forwarded string) string {
	first, _, _ := strings.Cut(forwarded, ",")
	return strings.TrimSpace(first)
}
