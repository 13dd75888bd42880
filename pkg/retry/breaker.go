package retry

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Breaker.Do while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState is the breaker position.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calling a failing dependency for a cool-down period after
// MaxFailures consecutive failures. One trial call is let through after
// the cool-down; its outcome closes or reopens the breaker.
type Breaker struct {
	MaxFailures int
	Cooldown    time.Duration

	// OnStateChange, if set, is called with the lock held.
	OnStateChange func(from, to BreakerState)

	now func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		MaxFailures: maxFailures,
		Cooldown:    cooldown,
		now:         time.Now,
	}
}

// State returns the current position, moving from open to half-open once
// the cool-down has passed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	return b.state
}

func (b *Breaker) refreshLocked() {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.Cooldown {
		b.setLocked(BreakerHalfOpen)
	}
}

func (b *Breaker) setLocked(s BreakerState) {
	if b.state == s {
		return
	}
	from := b.state
	b.state = s
	if b.OnStateChange != nil {
		b.OnStateChange(from, s)
	}
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	b.refreshLocked()
	if b.state == BreakerOpen {
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		b.setLocked(BreakerClosed)
		return nil
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.MaxFailures {
		b.openedAt = b.now()
		b.setLocked(BreakerOpen)
	}
	return err
}
