// Package ratelimit implements a token bucket limiter keyed by caller.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config holds rate limiter settings. RPS <= 0 disables limiting.
type Config struct {
	RPS   float64
	Burst int
}

// Limiter manages one token bucket per key (typically the client IP).
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      r,
		burst:    burst,
	}
}

// Allow reports whether the key may proceed right now.
func (l *Limiter) Allow(key string) bool {
	return l.limiterFor(key).Allow()
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}
