package ratelimit

import (
	"sync"
	"time"
)

// RateLimiter tracks and enforces request rate limits per client key
// (the posting endpoints key by user id). Windows are sliding, not
// fixed buckets.
type RateLimiter struct {
	requestsPerMinute int
	requestsPerHour   int
	enabled           bool

	// Request tracking per key
	minuteWindows map[string][]time.Time
	hourWindows   map[string][]time.Time
	mu            sync.Mutex
}

// NewRateLimiter creates a new rate limiter with the given limits
func NewRateLimiter(requestsPerMinute, requestsPerHour int, enabled bool) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		enabled:           enabled,
		minuteWindows:     make(map[string][]time.Time),
		hourWindows:       make(map[string][]time.Time),
	}
}

// AllowRequest checks if a request by the given key is allowed.
// Returns true if allowed, false if a rate limit is exceeded.
func (rl *RateLimiter) AllowRequest(key string) bool {
	return rl.allowRequestAt(key, time.Now())
}

func (rl *RateLimiter) allowRequestAt(key string, now time.Time) bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Clean up old entries
	rl.cleanup(key, now)

	// Check limits
	if rl.requestsPerMinute > 0 && len(rl.minuteWindows[key]) >= rl.requestsPerMinute {
		return false
	}
	if rl.requestsPerHour > 0 && len(rl.hourWindows[key]) >= rl.requestsPerHour {
		return false
	}

	// Record the request
	rl.minuteWindows[key] = append(rl.minuteWindows[key], now)
	rl.hourWindows[key] = append(rl.hourWindows[key], now)

	return true
}

// cleanup removes expired entries from the time windows
func (rl *RateLimiter) cleanup(key string, now time.Time) {
	minuteAgo := now.Add(-1 * time.Minute)
	rl.minuteWindows[key] = filterTimes(rl.minuteWindows[key], minuteAgo)
	if len(rl.minuteWindows[key]) == 0 {
		delete(rl.minuteWindows, key)
	}

	hourAgo := now.Add(-1 * time.Hour)
	rl.hourWindows[key] = filterTimes(rl.hourWindows[key], hourAgo)
	if len(rl.hourWindows[key]) == 0 {
		delete(rl.hourWindows, key)
	}
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// Stats contains rate limiter statistics for one key
type Stats struct {
	Enabled             bool `json:"enabled"`
	RequestsLastMinute  int  `json:"requests_last_minute"`
	RequestsLastHour    int  `json:"requests_last_hour"`
	LimitPerMinute      int  `json:"limit_per_minute"`
	LimitPerHour        int  `json:"limit_per_hour"`
	RemainingThisMinute int  `json:"remaining_this_minute"`
	RemainingThisHour   int  `json:"remaining_this_hour"`
}

// GetStats returns current rate limiter statistics for a key
func (rl *RateLimiter) GetStats(key string) Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanup(key, time.Now())

	return Stats{
		Enabled:             true,
		RequestsLastMinute:  len(rl.minuteWindows[key]),
		RequestsLastHour:    len(rl.hourWindows[key]),
		LimitPerMinute:      rl.requestsPerMinute,
		LimitPerHour:        rl.requestsPerHour,
		RemainingThisMinute: remaining(rl.requestsPerMinute, len(rl.minuteWindows[key])),
		RemainingThisHour:   remaining(rl.requestsPerHour, len(rl.hourWindows[key])),
	}
}

// Reset clears all tracked requests (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.minuteWindows = make(map[string][]time.Time)
	rl.hourWindows = make(map[string][]time.Time)
}

func remaining(limit, used int) int {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}
