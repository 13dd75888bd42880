package submit

import (
	"context"
	"sync"
)

// Tracker wraps a Submitter and counts deliveries in flight, so shutdown
// can wait for them before closing the transports they use.
type Tracker struct {
	next Submitter

	mu       sync.Mutex
	inflight int
	idle     chan struct{}
}

// Track wraps next.
func Track(next Submitter) *Tracker {
	idle := make(chan struct{})
	close(idle)
	return &Tracker{next: next, idle: idle}
}

// Name reports the wrapped submitter's name.
func (t *Tracker) Name() string { return NameOf(t.next) }

// Unwrap returns the wrapped submitter.
func (t *Tracker) Unwrap() Submitter { return t.next }

// Submit implements Submitter.
func (t *Tracker) Submit(ctx context.Context, s Submission) error {
	t.mu.Lock()
	if t.inflight == 0 {
		t.idle = make(chan struct{})
	}
	t.inflight++
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.inflight--
		if t.inflight == 0 {
			close(t.idle)
		}
		t.mu.Unlock()
	}()
	return t.next.Submit(ctx, s)
}

// InFlight returns the number of deliveries still running.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight
}

// Wait blocks until no delivery is running or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
