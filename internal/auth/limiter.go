package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client key (usually the remote
// address). Each key gets a bucket of burst attempts refilled at one per
// interval.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	every    time.Duration
	burst    int
	idle     time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter allows burst attempts per key, then one per interval.
func NewLoginLimiter(every time.Duration, burst int) *LoginLimiter {
	return &LoginLimiter{
		limiters: make(map[string]*entry),
		every:    every,
		burst:    burst,
		idle:     every * time.Duration(burst) * 2,
	}
}

// Allow reports whether another attempt from key may proceed.
func (l *LoginLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now

	// Forget keys that have been quiet long enough to have a full bucket.
	for k, other := range l.limiters {
		if now.Sub(other.lastSeen) > l.idle {
			delete(l.limiters, k)
		}
	}

	return e.limiter.AllowN(now, 1)
}
