package limits

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned to clients that exceed their event rate.
var ErrRateLimited = errors.New("rate limit exceeded")

// Bucket is a token bucket for a single caller. A zero rate disables it.
type Bucket struct {
	rate  float64
	burst float64
	now   func() time.Time

	mu       sync.Mutex
	tokens   float64
	lastFill time.Time
}

// NewBucket allows rate events per second with bursts of burst.
func NewBucket(rate float64, burst int) *Bucket {
	return newBucketAt(rate, burst, time.Now)
}

func newBucketAt(rate float64, burst int, now func() time.Time) *Bucket {
	return &Bucket{
		rate:     rate,
		burst:    float64(burst),
		now:      now,
		tokens:   float64(burst),
		lastFill: now(),
	}
}

// Allow takes one token if available.
func (b *Bucket) Allow() bool {
	if b == nil || b.rate <= 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.tokens += now.Sub(b.lastFill).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.lastFill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
