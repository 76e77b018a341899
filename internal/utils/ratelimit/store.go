package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultCategory = "default"

	// maxLimiters bounds the memory used by one-off clients between cleanups.
	maxLimiters = 10000
)

// Store manages in-memory rate limiters for multiple clients.
// Limiters are keyed by category and client so that budgets of different
// endpoint groups do not interfere.
type Store struct {
	// limiters maps category/client keys to their rate limiters
	limiters map[string]*Limiter

	// rates defines different rate limits for different categories
	rates map[string]Rate

	// mu protects concurrent access to the maps
	mu sync.RWMutex

	// cleanupInterval is how often idle limiters are dropped
	cleanupInterval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a new store for managing rate limiters.
//
// Parameters:
//   - defaultRate: The default rate limit for clients
//   - cleanupInterval: How often to run cleanup of idle limiters
//
// Returns:
//   - A configured limiter store. Call Close to stop its cleanup goroutine.
func NewStore(defaultRate Rate, cleanupInterval time.Duration) *Store {
	store := &Store{
		limiters:        make(map[string]*Limiter),
		rates:           map[string]Rate{defaultCategory: defaultRate},
		cleanupInterval: cleanupInterval,
		stop:            make(chan struct{}),
	}

	go store.cleanupRoutine()

	return store
}

// GetLimiter returns the rate limiter for the specified client and category.
// If none exists yet, one is created with the category's rate.
//
// Parameters:
//   - clientID: The unique identifier for the client (e.g., IP address)
//   - category: Category for different rate limits (e.g., "auth", "recovery")
//
// Returns:
//   - A rate limiter for the client
func (s *Store) GetLimiter(clientID string, category string) *Limiter {
	key := category + ":" + clientID

	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()

	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have created it while we waited for the lock
	if limiter, exists = s.limiters[key]; exists {
		return limiter
	}

	rate, exists := s.rates[category]
	if !exists {
		rate = s.rates[defaultCategory]
	}

	limiter = NewLimiter(rate.RequestsPerSecond, rate.Burst)
	s.limiters[key] = limiter

	return limiter
}

// Allow implements Checker.
func (s *Store) Allow(_ context.Context, clientID, category string) (bool, time.Duration, error) {
	allowed, wait := s.GetLimiter(clientID, category).Reserve()
	return allowed, wait, nil
}

// SetRate sets a rate limit for a specific category.
//
// Parameters:
//   - category: The category name (e.g., "auth", "recovery")
//   - rate: The rate configuration to apply
func (s *Store) SetRate(category string, rate Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[category] = rate
}

// Close stops the cleanup goroutine.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// cleanupRoutine periodically removes idle limiters.
func (s *Store) cleanupRoutine() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stop:
			return
		}
	}
}

// cleanup removes limiters that were not used during the last interval.
// An idle limiter has refilled completely, so dropping it loses nothing.
func (s *Store) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, limiter := range s.limiters {
		if now.Sub(limiter.idleSince()) > s.cleanupInterval {
			delete(s.limiters, key)
		}
	}

	if len(s.limiters) > maxLimiters {
		log.Warn().Int("limiters", len(s.limiters)).Msg("Rate limiter store growing too large, resetting")
		s.limiters = make(map[string]*Limiter)
	}
}
