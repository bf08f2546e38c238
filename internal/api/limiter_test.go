package api

import (
	"testing"
	"time"

	"salonbook/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	clock := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	l := newRateLimiter(config.APIRateLimitConfig{RPS: 2, Burst: 1})
	l.now = func() time.Time { return clock }

	ok, _ := l.allow("a")
	assert.True(t, ok)

	ok, wait := l.allow("a")
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, wait)

	// отказ не съедает токен
	clock = clock.Add(500 * time.Millisecond)
	ok, _ = l.allow("a")
	assert.True(t, ok)
}

func TestRateLimiterDisabled(t *testing.T) {
	l := newRateLimiter(config.APIRateLimitConfig{})
	for i := 0; i < 10; i++ {
		ok, _ := l.allow("a")
		assert.True(t, ok)
	}
	assert.Equal(t, 0, l.size())
}

func TestRateLimiterSweep(t *testing.T) {
	clock := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	l := newRateLimiter(config.APIRateLimitConfig{RPS: 100, Burst: 10})
	l.now = func() time.Time { return clock }

	l.allow("stale")
	clock = clock.Add(limiterIdleTTL + time.Minute)
	for i := 0; i < limiterSweepEvery; i++ {
		l.allow("fresh")
	}
	assert.Equal(t, 1, l.size())
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, 3, retryAfterSeconds(2100*time.Millisecond))
}
