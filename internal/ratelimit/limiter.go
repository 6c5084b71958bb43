// Package ratelimit provides the token-bucket limiter behind the HTTP
// throttling middleware.  The limiter is an injected abstraction so a
// single-instance deployment can run on an in-process map while a
// multi-instance deployment shares counters through Redis; nothing in
// the request handling depends on which backing is used.  Either way it
// is a denial-of-abuse guard, not a security boundary: counters are
// best-effort and reset on restart.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Take call.
type Decision struct {
	Allowed    bool          // whether the request may proceed
	Remaining  int64         // tokens left in the bucket after this call
	RetryAfter time.Duration // how long until a token is available (when denied)
}

// Limiter takes one token from the bucket identified by key.
type Limiter interface {
	Take(ctx context.Context, key string) (Decision, error)
}

// Bucket parameters shared by both backings.
type Params struct {
	Capacity       int           // bucket size (burst)
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // refill cadence
	TTL            time.Duration // idle buckets are dropped after this
}
