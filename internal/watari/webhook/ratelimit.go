package webhook

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window rate limiter keyed by phone number id. Each
// receiving number has an independent counter that resets after the window.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*windowBucket
}

type windowBucket struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*windowBucket),
	}
}

// Allow returns true while the number is within its delivery budget. It is
// safe for concurrent use from multiple goroutines.
func (r *rateLimiter) Allow(phoneNumberID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	b, ok := r.buckets[phoneNumberID]
	if !ok || now.After(b.resetAt) {
		r.buckets[phoneNumberID] = &windowBucket{count: 1, resetAt: now.Add(r.window)}
		return true
	}
	if b.count >= r.limit {
		return false
	}
	b.count++
	return true
}
