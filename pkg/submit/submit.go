// Package submit delivers finished wizards. A Submission is handed to a
// Submitter exactly once, when the thank-you screen is revealed.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/security"
	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

// Outcomes.
const (
	OutcomeDeclined    = "declined"
	OutcomeTestimonial = "testimonial"
)

// Submission is one completed wizard. Answers is exactly what was typed;
// PlainAnswers is a markup-free copy for consumers that display text
// without escaping it.
type Submission struct {
	ID           string         `json:"id" msgpack:"id"`
	Outcome      string         `json:"outcome" msgpack:"outcome"`
	Answers      wizard.Answers `json:"answers" msgpack:"answers"`
	PlainAnswers wizard.Answers `json:"plainAnswers" msgpack:"plainAnswers"`
	CompletedAt  time.Time      `json:"completedAt" msgpack:"completedAt"`
}

// New builds the submission for a completed state.
func New(st wizard.State) Submission {
	outcome := OutcomeTestimonial
	if st.Declined() {
		outcome = OutcomeDeclined
	}
	return Submission{
		ID:           uuid.NewString(),
		Outcome:      outcome,
		Answers:      st.Answers,
		PlainAnswers: security.SanitizeAnswers(st.Answers),
		CompletedAt:  time.Now().UTC(),
	}
}

// Payload flattens the submission for protocol messages.
func (s Submission) Payload() map[string]any {
	return map[string]any{
		"id":           s.ID,
		"outcome":      s.Outcome,
		"answers":      answerMap(s.Answers),
		"plainAnswers": answerMap(s.PlainAnswers),
		"completedAt":  s.CompletedAt.Format(time.RFC3339Nano),
	}
}

func answerMap(a wizard.Answers) map[string]any {
	m := a.Map()
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Submitter receives completed wizards.
type Submitter interface {
	Submit(ctx context.Context, s Submission) error
}

// Func adapts a function to Submitter.
type Func func(ctx context.Context, s Submission) error

// Submit implements Submitter.
func (f Func) Submit(ctx context.Context, s Submission) error {
	return f(ctx, s)
}

// Named is implemented by submitters that label their failures in metrics.
type Named interface {
	Name() string
}

// NameOf returns the name of s, or its Go type.
func NameOf(s Submitter) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// LogSubmitter writes every submission to a logger.
type LogSubmitter struct {
	Logger logging.Logger
}

// Name implements Named.
func (LogSubmitter) Name() string { return "log" }

// Submit implements Submitter.
func (l LogSubmitter) Submit(ctx context.Context, s Submission) error {
	logger := l.Logger
	if logger == nil {
		logger = logging.L(ctx)
	}
	fields := []logging.Field{
		logging.String("submission_id", s.ID),
		logging.String("outcome", s.Outcome),
	}
	for _, f := range wizard.AllFields() {
		if v := s.Answers.Get(f); v != "" {
			fields = append(fields, logging.String(f.String(), v))
		}
	}
	logger.Info("submission received", fields...)
	return nil
}

// Multi fans a submission out to every submitter. All are tried; their
// errors are joined.
type Multi []Submitter

// Name implements Named.
func (Multi) Name() string { return "multi" }

// Submit implements Submitter.
func (m Multi) Submit(ctx context.Context, s Submission) error {
	var errs []error
	for _, sub := range m {
		if err := sub.Submit(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", NameOf(sub), err))
		}
	}
	return errors.Join(errs...)
}
