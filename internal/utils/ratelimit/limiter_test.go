package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	t.Run("Limiter initialized with correct values", func(t *testing.T) {
		limiter := NewLimiter(10, 5)

		require.NotNil(t, limiter)
		assert.Equal(t, float64(10), limiter.rate)
		assert.Equal(t, float64(5), limiter.capacity)
		assert.Equal(t, float64(5), limiter.tokens)
		assert.NotZero(t, limiter.lastTime)
	})
}

func TestPerMinute(t *testing.T) {
	rate := PerMinute(30, 10)

	assert.Equal(t, 0.5, rate.RequestsPerSecond)
	assert.Equal(t, 10, rate.Burst)
}

func TestLimiter_Allow(t *testing.T) {
	t.Run("Allow requests within rate limit", func(t *testing.T) {
		limiter := NewLimiter(10, 5)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow(), "Expected request %d to be allowed", i+1)
		}

		assert.False(t, limiter.Allow(), "Expected 6th request to be denied")
	})

	t.Run("Tokens refill over time", func(t *testing.T) {
		limiter := NewLimiter(10, 1)

		assert.True(t, limiter.Allow())
		assert.False(t, limiter.Allow())

		// 10 tokens per second gives one token after 100ms
		time.Sleep(120 * time.Millisecond)

		assert.True(t, limiter.Allow())
	})

	t.Run("Zero rate means no refills", func(t *testing.T) {
		limiter := NewLimiter(0, 3)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow())
		}

		time.Sleep(50 * time.Millisecond)

		assert.False(t, limiter.Allow(), "Expected request to be denied due to zero refill rate")
	})

	t.Run("Zero capacity means no requests allowed", func(t *testing.T) {
		limiter := NewLimiter(10, 0)

		assert.False(t, limiter.Allow())
	})

	t.Run("Concurrent access is thread-safe", func(t *testing.T) {
		// A near-zero rate keeps refills from adding a token during the test
		limiter := NewLimiter(0.001, 50)

		var wg sync.WaitGroup
		var successCount int32

		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					if limiter.Allow() {
						atomic.AddInt32(&successCount, 1)
					}
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, int32(50), atomic.LoadInt32(&successCount))
	})
}

func TestLimiter_Reserve(t *testing.T) {
	t.Run("Reports wait until next token", func(t *testing.T) {
		limiter := NewLimiter(1, 1)

		allowed, wait := limiter.Reserve()
		assert.True(t, allowed)
		assert.Zero(t, wait)

		allowed, wait = limiter.Reserve()
		assert.False(t, allowed)
		assert.Greater(t, wait, 900*time.Millisecond)
		assert.LessOrEqual(t, wait, time.Second)
	})

	t.Run("Zero rate reports no wait", func(t *testing.T) {
		limiter := NewLimiter(0, 0)

		allowed, wait := limiter.Reserve()
		assert.False(t, allowed)
		assert.Zero(t, wait)
	})
}
