// Package feedback is the live testimonial wizard: a core.Component that
// owns one wizard.Session per connection and renders it as HTML.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/gabrielmiguelok/kudos/pkg/core"
	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/metrics"
	"github.com/gabrielmiguelok/kudos/pkg/submit"
	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

// Browser events.
const (
	EventChange   = "change"
	EventNext     = "next"
	EventPrevious = "previous"
	EventSubmit   = "submit"
)

// DefaultConfettiCount is the number of confetti pieces shown while
// celebrating.
const DefaultConfettiCount = 50

// DefaultSubmitTimeout bounds one delivery to the submitter.
const DefaultSubmitTimeout = 30 * time.Second

// Event errors.
var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrUnknownField = errors.New("unknown field")
	ErrBadPayload   = errors.New("malformed event payload")
)

// Completed is delivered to HandleInfo when the celebration ends.
type Completed struct {
	State wizard.State
}

// Options configure every FormWizard built by a Factory.
type Options struct {
	Submitter     submit.Submitter
	Metrics       *metrics.Metrics
	Logger        logging.Logger
	Scheduler     wizard.Scheduler
	Delay         time.Duration
	ConfettiCount int
	SubmitTimeout time.Duration

	// Rand seeds confetti placement. Nil uses a time-seeded source per
	// component.
	Rand func() *rand.Rand
}

// FormWizard is the testimonial wizard component.
type FormWizard struct {
	core.BaseComponent

	opts     Options
	session  *wizard.Session
	logger   logging.Logger
	confetti []piece
	rng      *rand.Rand
}

// Factory returns a constructor for router.Live.
func Factory(opts Options) func() core.Component {
	return func() core.Component {
		return New(opts)
	}
}

// New creates an unmounted wizard.
func New(opts Options) *FormWizard {
	if opts.Delay <= 0 {
		opts.Delay = wizard.DefaultCompletionDelay
	}
	if opts.ConfettiCount < 0 {
		opts.ConfettiCount = 0
	} else if opts.ConfettiCount == 0 {
		opts.ConfettiCount = DefaultConfettiCount
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	if opts.Scheduler == nil {
		opts.Scheduler = wizard.RealScheduler{}
	}
	return &FormWizard{opts: opts}
}

// Name implements core.Component.
func (f *FormWizard) Name() string {
	return "feedback"
}

// Mount starts a fresh wizard.
func (f *FormWizard) Mount(ctx context.Context, params core.Params, session core.Session) error {
	f.logger = f.opts.Logger
	if f.logger == nil {
		f.logger = logging.L(ctx)
	}
	if id := session.GetString("session_id"); id != "" {
		f.logger = f.logger.With(logging.String("session_id", id))
	}

	if f.opts.Rand != nil {
		f.rng = f.opts.Rand()
	} else {
		f.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	f.session = wizard.NewSession(
		wizard.WithScheduler(f.opts.Scheduler),
		wizard.WithCompletionDelay(f.opts.Delay),
		wizard.WithLogger(f.logger),
		wizard.OnComplete(f.complete),
	)
	return nil
}

// State returns the wizard snapshot.
func (f *FormWizard) State() wizard.State {
	return f.session.State()
}

// HandleEvent applies one browser event to the wizard.
func (f *FormWizard) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	before := f.session.State()

	switch event {
	case EventChange:
		field, value, err := parseChange(payload)
		if err != nil {
			return err
		}
		f.session.Edit(field, value)
	case EventNext:
		f.session.Next()
	case EventPrevious:
		f.session.Previous()
	case EventSubmit:
		f.session.Submit()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	if after := f.session.State(); after.Celebrating() && !before.Celebrating() {
		f.confetti = scatter(f.rng, f.opts.ConfettiCount)
	}
	return nil
}

func parseChange(payload map[string]any) (wizard.Field, string, error) {
	name, ok := payload["field"].(string)
	if !ok {
		return 0, "", fmt.Errorf("%w: missing field", ErrBadPayload)
	}
	field, ok := wizard.ParseField(name)
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	var value string
	switch v := payload["value"].(type) {
	case string:
		value = v
	case nil:
	default:
		return 0, "", fmt.Errorf("%w: value is %T", ErrBadPayload, v)
	}
	return field, value, nil
}

// HandleInfo receives the completion notice. The render that follows
// shows the thank-you screen.
func (f *FormWizard) HandleInfo(ctx context.Context, msg any) error {
	if _, ok := msg.(Completed); ok {
		f.confetti = nil
	}
	return nil
}

// complete runs once, on the scheduler goroutine, when the wizard reveals
// the thank-you screen.
func (f *FormWizard) complete(st wizard.State) {
	sub := submit.New(st)
	f.opts.Metrics.Completed(sub.Outcome)

	if s := f.Socket(); s != nil {
		if err := s.SendInfo(Completed{State: st}); err != nil && !errors.Is(err, core.ErrSocketClosed) {
			f.logger.Warn("completion notice dropped", logging.Err(err))
		}
	}

	if f.opts.Submitter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.opts.SubmitTimeout)
	defer cancel()
	ctx = logging.ContextWithLogger(ctx, f.logger)
	if err := f.opts.Submitter.Submit(ctx, sub); err != nil {
		f.opts.Metrics.SubmitFailed(submit.NameOf(f.opts.Submitter))
		f.logger.Error("submission failed",
			logging.String("submission_id", sub.ID),
			logging.Err(err),
		)
	}
}

// Render writes the current view.
func (f *FormWizard) Render(ctx context.Context) core.Renderer {
	st := f.session.State()
	confetti := f.confetti
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, renderWizard(st, confetti))
		return err
	})
}

// Terminate cancels a pending completion. A wizard closed while
// celebrating never completes and is never submitted.
func (f *FormWizard) Terminate(ctx context.Context, reason core.TerminateReason) error {
	if f.session != nil {
		if st := f.session.State(); st.Celebrating() {
			f.logger.Info("wizard abandoned while celebrating", logging.String("reason", reason.String()))
		}
		f.session.Close()
	}
	return nil
}
