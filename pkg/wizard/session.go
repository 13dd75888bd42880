package wizard

import (
	"sync"
	"time"

	"github.com/gabrielmiguelok/kudos/pkg/logging"
)

// DefaultCompletionDelay is how long the celebration runs before the
// thank-you screen.
const DefaultCompletionDelay = 2000 * time.Millisecond

// Session owns one wizard for the lifetime of a connection. Transitions are
// serialised; the completion delay is the only asynchronous step and is
// cancelled by Close.
type Session struct {
	mu     sync.Mutex
	state  State
	timer  Timer
	closed bool

	delay      time.Duration
	scheduler  Scheduler
	onComplete func(State)
	logger     logging.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithCompletionDelay overrides the celebration length.
func WithCompletionDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		s.delay = d
	}
}

// WithScheduler sets the scheduler used for the completion delay.
func WithScheduler(sched Scheduler) SessionOption {
	return func(s *Session) {
		s.scheduler = sched
	}
}

// OnComplete registers fn to run once, when the thank-you screen is
// revealed. It runs on the scheduler's goroutine, outside the session lock.
func OnComplete(fn func(State)) SessionOption {
	return func(s *Session) {
		s.onComplete = fn
	}
}

// WithLogger sets the session logger.
func WithLogger(l logging.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession creates a session on a fresh wizard.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		state:     New(),
		delay:     DefaultCompletionDelay,
		scheduler: RealScheduler{},
		logger:    logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Edit applies State.Edit.
func (s *Session) Edit(f Field, value string) State {
	return s.apply("edit", func(st State) State { return st.Edit(f, value) })
}

// Next applies State.Next.
func (s *Session) Next() State {
	return s.apply("next", State.Next)
}

// Previous applies State.Previous.
func (s *Session) Previous() State {
	return s.apply("previous", State.Previous)
}

// Submit applies State.Submit.
func (s *Session) Submit() State {
	return s.apply("submit", State.Submit)
}

func (s *Session) apply(name string, fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.state
	}

	before := s.state
	s.state = fn(before)

	if s.state.Phase != before.Phase {
		s.logger.Debug("wizard transition",
			logging.String("event", name),
			logging.String("from", before.Phase.String()),
			logging.String("to", s.state.Phase.String()),
		)
	} else if name != "edit" && len(s.state.Errors) > 0 {
		s.logger.Debug("wizard step invalid",
			logging.String("event", name),
			logging.Int("step", s.state.Step),
			logging.Int("errors", len(s.state.Errors)),
		)
	}

	if before.Phase != Celebrating && s.state.Phase == Celebrating && s.timer == nil {
		s.timer = s.scheduler.AfterFunc(s.delay, s.reveal)
	}
	return s.state
}

func (s *Session) reveal() {
	s.mu.Lock()
	if s.closed || s.state.Phase != Celebrating {
		s.mu.Unlock()
		return
	}
	s.state = s.state.Reveal()
	st := s.state
	fn := s.onComplete
	s.mu.Unlock()

	s.logger.Info("wizard completed",
		logging.Bool("declined", st.Declined()),
	)
	if fn != nil {
		fn(st)
	}
}

// Close cancels a pending completion. Later calls, including a timer that
// already fired but has not taken the lock yet, leave the state untouched.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
