package logging

import (
	"sync"
	"time"
)

// rateLimiter suppresses repeats of the same message key within window,
// so a noisy adapter failure does not flood the log output.
type rateLimiter struct {
	window time.Duration
	burst  int

	mu   sync.Mutex
	seen map[string]*bucket
}

type bucket struct {
	count    int
	windowAt time.Time
}

func newRateLimiter(window time.Duration, burst int) *rateLimiter {
	return &rateLimiter{window: window, burst: burst, seen: make(map[string]*bucket)}
}

// Allow reports whether a log line with this key may be emitted now.
func (r *rateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	b, ok := r.seen[key]
	if !ok || now.Sub(b.windowAt) > r.window {
		r.seen[key] = &bucket{count: 1, windowAt: now}
		return true
	}
	b.count++
	return b.count <= r.burst
}
