// Package ratelimit throttles per-connection location updates to at most
// one accepted update per fixed interval.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits one event per key per Interval. Rejected attempts do not
// move the window, so a client that keeps sending is still admitted once
// the interval since its last accepted update has elapsed.
type Limiter struct {
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewLimiter creates a Limiter. An interval of zero admits everything.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration { return l.interval }

// Allow reports whether key may emit now and, if so, records it.
func (l *Limiter) Allow(key string) bool {
	return l.AllowAt(key, l.now())
}

// AllowAt is Allow with an explicit clock reading.
func (l *Limiter) AllowAt(key string, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.last[key]; ok && at.Sub(prev) < l.interval {
		return false
	}
	l.last[key] = at
	return true
}

// Forget drops the state for key, e.g. when its connection closes.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	delete(l.last, key)
	l.mu.Unlock()
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
