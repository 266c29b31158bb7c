package venuehttp

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements a token-bucket rate limiter with continuous
// refill. Callers block in Wait until a token is available or the context
// is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewTokenBucket creates a rate limiter with the given burst capacity and
// refill rate in tokens per second.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiter groups token buckets by operation category, per the adapter-
// local rate-limiting design: separate buckets for general, order, cancel,
// amend, and subscription operations.
type RateLimiter struct {
	General      *TokenBucket
	Order        *TokenBucket
	Cancel       *TokenBucket
	Amend        *TokenBucket
	Subscription *TokenBucket
}

// NewRateLimiter constructs a RateLimiter with reasonable default burst and
// refill rates for each category. Adapters wrapping a specific venue may
// override individual buckets via the exported fields.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		General:      NewTokenBucket(150, 15),
		Order:        NewTokenBucket(350, 50),
		Cancel:       NewTokenBucket(300, 30),
		Amend:        NewTokenBucket(300, 30),
		Subscription: NewTokenBucket(50, 5),
	}
}
