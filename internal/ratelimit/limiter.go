// Package ratelimit provides per-key token bucket rate limiting for the
// MCP tools and the dashboard HTTP server.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nvandessel/epidash/internal/constants"
)

// ErrRateLimited is returned by CheckLimit when a bucket is empty.
var ErrRateLimited = errors.New("ratelimit: rate limit exceeded")

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// NewClientLimiter returns the limiter the dashboard server keys by
// client address for /api/simulate and /api/plot.svg.
func NewClientLimiter() *Limiter {
	return NewLimiter(constants.SimulateRatePerSecond, constants.SimulateBurst)
}

// Allow checks if a request for the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		// First request for this key: start with full burst
		b = &bucket{
			tokens:    float64(l.burst),
			lastCheck: now,
		}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.lastCheck = now
	}

	if b.tokens < 1.0 {
		return false
	}

	b.tokens--
	return true
}

// Prune drops buckets untouched for longer than idle and returns how many
// were removed. A dropped bucket comes back full on its next request, so
// idle must be at least burst/rate for pruning to be invisible.
func (l *Limiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.nowFunc().Add(-idle)
	removed := 0
	for key, b := range l.buckets {
		if b.lastCheck.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// A simulate call at the default grid costs a few milliseconds; compare runs
// several scenarios per call.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"epidash_simulate": NewLimiter(1.0, 10),      // 60/minute, burst 10
		"epidash_compare":  NewLimiter(10.0/60.0, 3), // 10/minute, burst 3
		"epidash_r0":       NewLimiter(5.0, 20),      // 300/minute, burst 20
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error wrapping ErrRateLimited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil // No limiter configured = no limit
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, toolName)
	}

	return nil
}
