package tui

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/kudos/pkg/submit"
	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

type recorder struct {
	mu   sync.Mutex
	subs []submit.Submission
}

func (r *recorder) Submit(ctx context.Context, s submit.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, s)
	return nil
}

func send(m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	tab     = tea.KeyMsg{Type: tea.KeyTab}
	enter   = tea.KeyMsg{Type: tea.KeyEnter}
	down    = tea.KeyMsg{Type: tea.KeyDown}
	up      = tea.KeyMsg{Type: tea.KeyUp}
	advance = tea.KeyMsg{Type: tea.KeyCtrlN}
	back    = tea.KeyMsg{Type: tea.KeyCtrlB}
)

func newModel(rec *recorder) Model {
	opts := Options{Rand: rand.New(rand.NewSource(1))}
	if rec != nil {
		opts.Submitter = rec
	}
	return New(opts)
}

func toStep3(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = send(m, runes("Jane"), tab, tab, runes("jane@x.com"), enter)
	require.Equal(t, wizard.Step2, m.State().Phase)
	m, _ = send(m, runes("p"), tab, runes("w"), tab, runes("f"), advance)
	require.Equal(t, wizard.Step3, m.State().Phase)
	return m
}

func TestModel_Step1Validation(t *testing.T) {
	m := newModel(nil)
	assert.Contains(t, m.View(), "25% Complete")
	assert.Contains(t, m.View(), wizard.Layout(1).Title)

	m, _ = send(m, runes("Bob"), advance)
	assert.Equal(t, "Bob", m.State().Answers.FullName)
	assert.Equal(t, wizard.FieldErrors{wizard.Email: wizard.MsgEmailRequired}, m.State().Errors)
	assert.Contains(t, m.View(), wizard.MsgEmailRequired)

	m, _ = send(m, tab, tab, runes("bob@"), enter)
	assert.Equal(t, wizard.MsgEmailInvalid, m.State().Errors[wizard.Email])

	m, _ = send(m, runes("x.com"), enter)
	assert.Equal(t, wizard.Step2, m.State().Phase)
	assert.Equal(t, "bob@x.com", m.State().Answers.Email)
}

func TestModel_EnterInTextareaIsNewline(t *testing.T) {
	m := toStep3(t, newModel(nil))
	m, _ = send(m, back)
	require.Equal(t, wizard.Step2, m.State().Phase)

	m, _ = send(m, enter)
	assert.Equal(t, wizard.Step2, m.State().Phase)
	assert.Equal(t, "p\n", m.State().Answers.ProblemBefore)
}

func TestModel_PreviousKeepsAnswers(t *testing.T) {
	m := toStep3(t, newModel(nil))
	m, _ = send(m, back, back)
	assert.Equal(t, wizard.Step1, m.State().Phase)
	assert.Equal(t, "Jane", m.State().Answers.FullName)
	assert.Equal(t, "w", m.State().Answers.WorkingExperience)
	assert.Contains(t, m.View(), "Jane")
}

func TestModel_RadioChoice(t *testing.T) {
	m := toStep3(t, newModel(nil))

	m, _ = send(m, down)
	assert.Equal(t, wizard.Yes, m.State().Answers.LeaveTestimonial)
	assert.Contains(t, m.View(), "(•)")
	assert.Contains(t, m.View(), "Your Testimonial")

	m, _ = send(m, down)
	assert.Equal(t, wizard.No, m.State().Answers.LeaveTestimonial)
	assert.Contains(t, m.View(), "No worries at all!")

	m, _ = send(m, down)
	assert.Equal(t, wizard.Yes, m.State().Answers.LeaveTestimonial, "selection wraps")

	m, _ = send(m, up, up)
	assert.Equal(t, wizard.Yes, m.State().Answers.LeaveTestimonial)

	fresh := toStep3(t, newModel(nil))
	fresh, _ = send(fresh, up)
	assert.Equal(t, wizard.No, fresh.State().Answers.LeaveTestimonial, "up with nothing selected picks the last option")
}

func TestModel_DeclineCompletesAndSubmitsOnce(t *testing.T) {
	rec := &recorder{}
	m := toStep3(t, newModel(rec))

	m, cmd := send(m, down, down, advance)
	require.True(t, m.State().Celebrating())
	assert.NotNil(t, cmd, "celebration schedules the reveal")
	assert.NotEmpty(t, m.confetti)

	frozen := m.State()
	m, _ = send(m, back, advance, runes("x"))
	assert.Equal(t, frozen, m.State(), "input is ignored while celebrating")

	m, cmd = send(m, revealMsg{})
	require.True(t, m.State().Completed())
	require.NotNil(t, cmd)
	m, _ = send(m, cmd())

	require.Len(t, rec.subs, 1)
	assert.Equal(t, submit.OutcomeDeclined, rec.subs[0].Outcome)
	assert.NoError(t, <-m.results)
	assert.Contains(t, m.View(), wizard.ThankYouTitle)

	m, cmd = send(m, revealMsg{})
	assert.Nil(t, cmd)
	assert.Len(t, rec.subs, 1)

	_, cmd = send(m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_LongInputNotTruncated(t *testing.T) {
	long := strings.Repeat("a", 400)
	m, _ := send(newModel(nil), runes(long))
	assert.Equal(t, long, m.State().Answers.FullName)
}

func TestModel_AcceptPathSubmits(t *testing.T) {
	rec := &recorder{}
	m := toStep3(t, newModel(rec))

	m, _ = send(m, down, advance)
	assert.Equal(t, wizard.MsgTestimonialRequired, m.State().Errors[wizard.TestimonialText])

	m, _ = send(m, tab, runes("<i>Great!</i>"), advance)
	require.Equal(t, wizard.Step4, m.State().Phase)
	assert.Contains(t, m.View(), wizard.SubmitLabel)
	assert.Contains(t, m.View(), "100% Complete")

	m, _ = send(m, advance)
	assert.Len(t, m.State().Errors, 2)

	m, _ = send(m, down, tab, down, advance)
	require.True(t, m.State().Celebrating())
	assert.Equal(t, wizard.DisplayNameBusiness, m.State().Answers.DisplayPermission)
	assert.Equal(t, wizard.Yes, m.State().Answers.LinkedinRecommendation)

	m, cmd := send(m, revealMsg{})
	m, _ = send(m, cmd())
	require.Len(t, rec.subs, 1)
	assert.Equal(t, "<i>Great!</i>", rec.subs[0].Answers.TestimonialText, "answers are submitted as typed")
	assert.Equal(t, "Great!", rec.subs[0].PlainAnswers.TestimonialText)
	assert.Equal(t, submit.OutcomeTestimonial, rec.subs[0].Outcome)
}

func TestModel_NoSubmitter(t *testing.T) {
	m := toStep3(t, newModel(nil))
	m, _ = send(m, down, down, advance)
	m, cmd := send(m, revealMsg{})
	assert.Nil(t, cmd)
	assert.True(t, m.State().Completed())
	assert.NoError(t, <-m.results)
}

func TestModel_Quit(t *testing.T) {
	_, cmd := send(newModel(nil), tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_WindowSize(t *testing.T) {
	m, _ := send(newModel(nil), tea.WindowSizeMsg{Width: 30, Height: 20})
	assert.Equal(t, 26, m.bar.Width)
	m, _ = send(m, tea.WindowSizeMsg{Width: 200, Height: 20})
	assert.Equal(t, 60, m.bar.Width)
}
