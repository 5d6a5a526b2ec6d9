package tmdb

import (
	"sync"
	"time"
)

// rateLimiter is a sliding-window limiter for TMDB API calls. TMDB allows
// roughly 40 requests per 10 seconds per IP; we stay just under that.
type rateLimiter struct {
	mu     sync.Mutex
	stamps []time.Time
	limit  int
	window time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		stamps: make([]time.Time, 0, limit),
	}
}

// wait blocks until a request is allowed under the window.
func (r *rateLimiter) wait() {
	for {
		r.mu.Lock()
		now := time.Now()
		r.prune(now)
		if len(r.stamps) < r.limit {
			r.stamps = append(r.stamps, now)
			r.mu.Unlock()
			return
		}
		oldest := r.stamps[0]
		r.mu.Unlock()

		// Sleep until the oldest stamp leaves the window, plus a small
		// buffer so it has actually expired when we retry.
		time.Sleep(r.window - now.Sub(oldest) + 10*time.Millisecond)
	}
}

func (r *rateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	kept := r.stamps[:0]
	for _, s := range r.stamps {
		if s.After(cutoff) {
			kept = append(kept, s)
		}
	}
	r.stamps = kept
}
