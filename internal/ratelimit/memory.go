package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps token buckets in a process-local map.  Suitable
// for single-instance deployments and as the fallback when Redis is not
// reachable at startup.  State is lost on restart, which is acceptable
// for an abuse guard.
type MemoryLimiter struct {
	params Params
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

// NewMemoryLimiter returns an in-process Limiter.
func NewMemoryLimiter(params Params) *MemoryLimiter {
	return &MemoryLimiter{
		params:  params,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Take implements Limiter using the same bucket math as the Redis
// script.  Idle buckets past the TTL are evicted opportunistically
// while the lock is held.
func (l *MemoryLimiter) Take(_ context.Context, key string) (Decision, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictStale(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.params.Capacity, lastRefill: now}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if l.params.RefillInterval > 0 && l.params.RefillTokens > 0 {
		elapsed := now.Sub(b.lastRefill)
		if intervals := int(elapsed / l.params.RefillInterval); intervals > 0 {
			b.tokens += intervals * l.params.RefillTokens
			if b.tokens > l.params.Capacity {
				b.tokens = l.params.Capacity
			}
			b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * l.params.RefillInterval)
		}
	}

	if b.tokens > 0 {
		b.tokens--
		return Decision{Allowed: true, Remaining: int64(b.tokens)}, nil
	}
	retry := l.params.RefillInterval - now.Sub(b.lastRefill)
	if retry < 0 {
		retry = 0
	}
	return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
}

// evictStale drops buckets not touched within the TTL.  Called with the
// lock held.
func (l *MemoryLimiter) evictStale(now time.Time) {
	if l.params.TTL <= 0 {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.params.TTL {
			delete(l.buckets, k)
		}
	}
}
