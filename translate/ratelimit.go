package translate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenBucket is the run-wide rate limiter. Every concurrent locale
// pipeline draws from the same bucket, so one instance is created per run
// and injected into each dispatcher call path.
//
// Refill is computed lazily from elapsed wall-clock time on each Acquire;
// there is no background ticker to leak.
type TokenBucket struct {
	mu        sync.Mutex
	capacity  float64
	tokens    float64
	refillPer float64 // tokens per second
	last      time.Time

	now func() time.Time // stubbed in tests
}

// NewTokenBucket returns a full bucket holding capacity tokens that refills
// linearly at refillPerSec tokens per second.
func NewTokenBucket(capacity int, refillPerSec float64) *TokenBucket {
	return &TokenBucket{
		capacity:  float64(capacity),
		tokens:    float64(capacity),
		refillPer: refillPerSec,
		now:       time.Now,
	}
}

// Acquire blocks until n tokens are available or ctx is done. Requests
// larger than the bucket capacity are rejected outright since they could never
// be satisfied.
func (b *TokenBucket) Acquire(ctx context.Context, n int) error {
	need := float64(n)
	if need > b.capacity {
		return fmt.Errorf("rate limiter: requested %d tokens exceeds capacity %d", n, int(b.capacity))
	}

	for {
		b.mu.Lock()
		b.refillLocked()
		if b.tokens >= need {
			b.tokens -= need
			b.mu.Unlock()
			return nil
		}
		deficit := need - b.tokens
		b.mu.Unlock()

		wait := time.Duration(deficit / b.refillPer * float64(time.Second))
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Capacity returns the bucket size. Callers sizing a batch must stay at
// or below it for Acquire to ever succeed.
func (b *TokenBucket) Capacity() int {
	return int(b.capacity)
}

// Available returns the current token count after a lazy refill.
func (b *TokenBucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return int(b.tokens)
}

// refillLocked adds tokens for time elapsed since the last refill,
// saturating at capacity. Callers hold b.mu.
func (b *TokenBucket) refillLocked() {
	now := b.now()
	if b.last.IsZero() {
		b.last = now
		return
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillPer
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now
}
