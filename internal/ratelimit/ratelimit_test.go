package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowRequestMinuteLimit(t *testing.T) {
	rl := NewRateLimiter(3, 100, true)
	now := time.Now()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allowRequestAt("user-1", now), "request %d should pass", i)
	}
	assert.False(t, rl.allowRequestAt("user-1", now))

	// Another key has its own window.
	assert.True(t, rl.allowRequestAt("user-2", now))
}

func TestAllowRequestWindowSlides(t *testing.T) {
	rl := NewRateLimiter(2, 100, true)
	now := time.Now()

	assert.True(t, rl.allowRequestAt("u", now))
	assert.True(t, rl.allowRequestAt("u", now))
	assert.False(t, rl.allowRequestAt("u", now.Add(30*time.Second)))

	// Past the minute the old entries expire.
	assert.True(t, rl.allowRequestAt("u", now.Add(61*time.Second)))
}

func TestAllowRequestHourLimit(t *testing.T) {
	rl := NewRateLimiter(100, 2, true)
	now := time.Now()

	assert.True(t, rl.allowRequestAt("u", now))
	assert.True(t, rl.allowRequestAt("u", now.Add(5*time.Minute)))
	// Minute window is clear but the hour window is full.
	assert.False(t, rl.allowRequestAt("u", now.Add(10*time.Minute)))
	assert.True(t, rl.allowRequestAt("u", now.Add(61*time.Minute)))
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	rl := NewRateLimiter(1, 1, false)
	now := time.Now()

	for i := 0; i < 10; i++ {
		assert.True(t, rl.allowRequestAt("u", now))
	}
	assert.False(t, rl.GetStats("u").Enabled)
}

func TestGetStatsAndReset(t *testing.T) {
	rl := NewRateLimiter(5, 50, true)
	now := time.Now()

	rl.allowRequestAt("u", now)
	rl.allowRequestAt("u", now)

	stats := rl.GetStats("u")
	assert.True(t, stats.Enabled)
	assert.Equal(t, 2, stats.RequestsLastMinute)
	assert.Equal(t, 3, stats.RemainingThisMinute)
	assert.Equal(t, 48, stats.RemainingThisHour)

	rl.Reset()
	stats = rl.GetStats("u")
	assert.Equal(t, 0, stats.RequestsLastMinute)
	assert.Equal(t, 5, stats.RemainingThisMinute)
}
