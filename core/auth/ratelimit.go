package auth

import (
	"sync"
	"time"
)

// RateLimiter is an in-process fixed-window counter keyed per identifier
// (e.g. per email). Suitable for single-instance deployments; a multi-instance
// deployment should put a shared counter behind the same Allow(key) contract.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

func NewRateLimiter(limit int, windowSize time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  windowSize,
		windows: make(map[string]*window),
	}
}

// Allow records an attempt for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := nowFunc()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.windows[key] = &window{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

// Reset clears the counter for key (on successful sign-in).
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.windows, key)
}

// Prune drops expired windows; callers may run it periodically to bound memory.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := nowFunc()
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.window {
			delete(rl.windows, key)
		}
	}
}
