package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepInterval = 10 * time.Minute

// bucket holds Limit tokens for one fixed window. Windows are aligned the
// same way as RedisLimiter's keys.
type bucket struct {
	limiter *rate.Limiter
	window  time.Duration
	index   int64
}

func (b *bucket) expired(now time.Time) bool {
	return windowIndex(now, b.window) != b.index
}

// MemoryLimiter keeps one bucket per rule and key. It enforces the same
// fixed-window budget as RedisLimiter within a single process.
type MemoryLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	l.lastSweep = now()
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, rule Rule, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	id := rule.Name + ":" + key
	b, ok := l.buckets[id]
	if !ok || b.expired(now) {
		// One token per window refills no earlier than the next window, so
		// the burst is the whole budget.
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(rule.Window), rule.Limit),
			window:  rule.Window,
			index:   windowIndex(now, rule.Window),
		}
		l.buckets[id] = b
	}
	return b.limiter.AllowN(now, 1), nil
}

// sweep drops buckets whose own window has ended.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for id, b := range l.buckets {
		if b.expired(now) {
			delete(l.buckets, id)
		}
	}
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func windowIndex(now time.Time, window time.Duration) int64 {
	return now.UnixNano() / int64(window)
}
