// Package ratelimit provides rate limiting for the authentication endpoints.
// It offers an in-memory token bucket store for single instances and a Redis
// fixed-window counter for deployments with several replicas, both behind the
// Checker interface used by the HTTP middleware.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Checker decides whether a client may make another request in a category.
type Checker interface {
	// Allow reports whether the request is admitted. When it is not,
	// retryAfter tells the client how long to wait.
	Allow(ctx context.Context, clientID, category string) (allowed bool, retryAfter time.Duration, err error)
}

// Limiter represents a rate limiter for a specific client identity.
// It implements a token bucket algorithm where tokens are added at a
// fixed rate and requests consume tokens from the bucket.
type Limiter struct {
	// tokens is the current number of tokens in the bucket
	tokens float64

	// lastTime is the last time tokens were added to the bucket
	lastTime time.Time

	// rate is the token refill rate (tokens per second)
	rate float64

	// capacity is the maximum number of tokens the bucket can hold
	capacity float64

	// mu is a mutex to protect concurrent access to the bucket
	mu sync.Mutex
}

// Rate controls how many requests per second are allowed
type Rate struct {
	// RequestsPerSecond defines how many tokens are added per second
	RequestsPerSecond float64

	// Burst defines the maximum size of the token bucket
	Burst int
}

// PerMinute builds a Rate from a per-minute request budget.
func PerMinute(requests, burst int) Rate {
	return Rate{RequestsPerSecond: float64(requests) / 60, Burst: burst}
}

// NewLimiter creates a new rate limiter with the specified rate and burst capacity.
//
// Parameters:
//   - rate: The number of tokens per second to add to the bucket
//   - burst: The maximum capacity of the bucket
//
// Returns:
//   - A configured rate limiter
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		tokens:   float64(burst),
		lastTime: time.Now(),
		rate:     rate,
		capacity: float64(burst),
	}
}

// Allow checks if a request should be allowed based on the rate limit.
func (l *Limiter) Allow() bool {
	allowed, _ := l.Reserve()
	return allowed
}

// Reserve consumes a token if one is available.
// When none is, it returns the time until the next token is added.
// A zero refill rate never frees a token and reports a zero wait.
func (l *Limiter) Reserve() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastTime).Seconds()
	l.lastTime = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}

	if l.tokens < 1 {
		if l.rate <= 0 {
			return false, 0
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		return false, wait
	}

	l.tokens--
	return true, 0
}

// idleSince reports when the limiter was last used.
func (l *Limiter) idleSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastTime
}
