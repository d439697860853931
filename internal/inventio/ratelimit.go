package inventio

import (
	"context"
	"sync"
	"time"
)

// TokenBucket throttles outgoing requests. It allows bursts of up to
// capacity requests, with tokens refilling at a steady rate.
type TokenBucket struct {
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a bucket refilling perSecond tokens per second.
// It returns nil (no throttling) when perSecond is not positive.
func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		capacity:   float64(burst),
		refillRate: perSecond,
		tokens:     float64(burst), // Start with full bucket
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// reserve takes a token if one is available, otherwise it returns how long
// to wait for the next one.
func (tb *TokenBucket) reserve() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)
	tb.tokens = min(tb.capacity, tb.tokens+elapsed.Seconds()*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return 0
	}
	missing := 1.0 - tb.tokens
	return time.Duration(missing / tb.refillRate * float64(time.Second))
}

// Wait blocks until a token is available or ctx is done. A nil bucket never blocks.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	if tb == nil {
		return nil
	}
	for {
		wait := tb.reserve()
		if wait == 0 {
			return nil
		}
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}
}
