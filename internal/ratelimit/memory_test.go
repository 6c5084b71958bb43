package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newTestLimiter(params Params) (*MemoryLimiter, *time.Time) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(params)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestMemoryLimiterExhaustsCapacity(t *testing.T) {
	l, _ := newTestLimiter(Params{Capacity: 3, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec, err := l.Take(ctx, "k")
		if err != nil {
			t.Fatalf("take %d: %v", i+1, err)
		}
		if !dec.Allowed {
			t.Fatalf("take %d denied with tokens left", i+1)
		}
		if dec.Remaining != int64(2-i) {
			t.Fatalf("take %d remaining = %d, want %d", i+1, dec.Remaining, 2-i)
		}
	}
	dec, err := l.Take(ctx, "k")
	if err != nil {
		t.Fatalf("take over capacity: %v", err)
	}
	if dec.Allowed {
		t.Fatal("take over capacity allowed")
	}
	if dec.RetryAfter <= 0 || dec.RetryAfter > time.Second {
		t.Fatalf("retry after = %s, want within one refill interval", dec.RetryAfter)
	}
}

func TestMemoryLimiterRefills(t *testing.T) {
	l, now := newTestLimiter(Params{Capacity: 2, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if dec, _ := l.Take(ctx, "k"); !dec.Allowed {
			t.Fatalf("warm-up take %d denied", i+1)
		}
	}
	if dec, _ := l.Take(ctx, "k"); dec.Allowed {
		t.Fatal("empty bucket allowed a take")
	}

	*now = now.Add(time.Second)
	if dec, _ := l.Take(ctx, "k"); !dec.Allowed {
		t.Fatal("bucket did not refill after an interval")
	}
	if dec, _ := l.Take(ctx, "k"); dec.Allowed {
		t.Fatal("single refill produced more than one token")
	}

	// Long idle periods refill up to capacity, never beyond.
	*now = now.Add(time.Hour)
	allowed := 0
	for i := 0; i < 5; i++ {
		if dec, _ := l.Take(ctx, "k"); dec.Allowed {
			allowed++
		}
	}
	if allowed != 2 {
		t.Fatalf("after long idle %d takes allowed, want capacity 2", allowed)
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(Params{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute})
	ctx := context.Background()

	if dec, _ := l.Take(ctx, "a"); !dec.Allowed {
		t.Fatal("first take on key a denied")
	}
	if dec, _ := l.Take(ctx, "a"); dec.Allowed {
		t.Fatal("second take on key a allowed")
	}
	if dec, _ := l.Take(ctx, "b"); !dec.Allowed {
		t.Fatal("key b throttled by key a's bucket")
	}
}

func TestMemoryLimiterEvictsStaleBuckets(t *testing.T) {
	l, now := newTestLimiter(Params{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute})
	ctx := context.Background()

	_, _ = l.Take(ctx, "stale")
	*now = now.Add(2 * time.Minute)
	_, _ = l.Take(ctx, "fresh")

	l.mu.Lock()
	_, ok := l.buckets["stale"]
	l.mu.Unlock()
	if ok {
		t.Fatal("stale bucket survived past its TTL")
	}
}
