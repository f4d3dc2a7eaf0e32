package mint

import (
	"sync"
	"time"
)

// AttemptLimiter is a token bucket gating how often mint attempts may be
// triggered. The bucket starts full so a freshly started session can mint
// immediately, and refills continuously at the configured rate.
type AttemptLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewAttemptLimiter creates a limiter allowing perMinute attempts with a
// burst of the same size.
func NewAttemptLimiter(perMinute int) *AttemptLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	max := float64(perMinute)
	return &AttemptLimiter{
		tokens:     max,
		maxTokens:  max,
		refillRate: max / 60,
		lastRefill: time.Now(),
	}
}

// Allow checks if an attempt is allowed and consumes a token if so.
func (l *AttemptLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Available returns the number of available tokens.
func (l *AttemptLimiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens
}

// refill adds tokens based on elapsed time (must be called with lock held).
func (l *AttemptLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens += elapsed * l.refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now
}
