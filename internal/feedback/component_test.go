package feedback

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gabrielmiguelok/kudos/pkg/core"
	"github.com/gabrielmiguelok/kudos/pkg/metrics"
	"github.com/gabrielmiguelok/kudos/pkg/submit"
	lvtest "github.com/gabrielmiguelok/kudos/pkg/testing"
	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	subs []submit.Submission
	err  error
}

func (r *recorder) Submit(ctx context.Context, s submit.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, s)
	return r.err
}

func (r *recorder) all() []submit.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]submit.Submission(nil), r.subs...)
}

type fixture struct {
	lvt     *lvtest.LiveViewTest
	comp    *FormWizard
	sched   *wizard.ManualScheduler
	rec     *recorder
	metrics *metrics.Metrics
}

func mount(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sched:   wizard.NewManualScheduler(),
		rec:     &recorder{},
		metrics: metrics.New("kudos"),
	}
	f.comp = New(Options{
		Submitter: f.rec,
		Metrics:   f.metrics,
		Scheduler: f.sched,
		Rand:      func() *rand.Rand { return rand.New(rand.NewSource(1)) },
	})
	f.lvt = lvtest.Mount(t, f.comp)
	return f
}

func (f *fixture) toStep3() {
	f.lvt.Change("fullName", "Jane").Change("email", "jane@x.com").Click(EventNext)
	f.lvt.Change("problemBefore", "p").Change("workingExperience", "w").Change("finalWebsiteFeeling", "f").Click(EventNext)
}

func TestMount_RendersStep1(t *testing.T) {
	f := mount(t)

	f.lvt.AssertText(`data-phase="step1"`).
		AssertText("Let&#39;s Start with the Basics! 👋").
		AssertText("25% Complete").
		AssertElement("input", `name="fullName"`, `lv-change="change"`).
		AssertElement("input", `name="email"`, `type="email"`).
		AssertElement("button", `lv-click="previous"`, "disabled").
		AssertElement("button", `lv-click="next"`).
		AssertNoElement("button", `lv-click="submit"`).
		AssertNoText("kudos-confetti")
	assert.Equal(t, wizard.Step1, f.comp.State().Phase)
}

func TestNext_ShowsErrorsAndEditClearsOne(t *testing.T) {
	f := mount(t)

	f.lvt.Click(EventNext).
		AssertText(wizard.MsgFullNameRequired).
		AssertText(wizard.MsgEmailRequired).
		AssertElement("input", `name="email"`, "kudos-invalid")

	f.lvt.Change("fullName", "Bob").
		AssertNoText(wizard.MsgFullNameRequired).
		AssertText(wizard.MsgEmailRequired)

	f.lvt.Change("email", "bob@").Click(EventNext).
		AssertText(wizard.MsgEmailInvalid).
		AssertText(`data-step="1"`)

	f.lvt.Change("email", "bob@x.com").Click(EventNext).
		AssertText("50% Complete").
		AssertElement("li", `data-step="1"`, "done").
		AssertElement("textarea", `name="problemBefore"`)
}

func TestStep3_RevealsTestimonialOrNote(t *testing.T) {
	f := mount(t)
	f.toStep3()

	f.lvt.AssertText("75% Complete").AssertNoElement("textarea", `name="testimonialText"`)

	f.lvt.Change("leaveTestimonial", wizard.Yes).
		AssertElement("input", `value="yes"`, "checked").
		AssertElement("textarea", `name="testimonialText"`).
		AssertNoText("No worries at all!")

	f.lvt.Change("leaveTestimonial", wizard.No).
		AssertNoElement("textarea", `name="testimonialText"`).
		AssertText("No worries at all!")
}

func TestDeclinePath_CompletesAndSubmitsOnce(t *testing.T) {
	f := mount(t)
	f.toStep3()

	f.lvt.Change("leaveTestimonial", wizard.No).Click(EventNext)
	f.lvt.AssertText(`data-phase="celebrating"`).
		AssertElement("button", `lv-click="next"`, "disabled")
	assert.Equal(t, DefaultConfettiCount, f.lvt.Count("kudos-confetti-piece"))
	assert.Empty(t, f.rec.all())

	f.sched.Advance(wizard.DefaultCompletionDelay - 1)
	assert.Zero(t, f.lvt.DrainInfo())
	assert.True(t, f.comp.State().Celebrating())

	f.sched.Advance(1)
	require.Equal(t, 1, f.lvt.DrainInfo())
	f.lvt.AssertText(wizard.ThankYouTitle).
		AssertText(`data-phase="completed"`).
		AssertNoText("kudos-confetti").
		AssertNoText("Progress")

	subs := f.rec.all()
	require.Len(t, subs, 1)
	assert.Equal(t, submit.OutcomeDeclined, subs[0].Outcome)
	assert.Equal(t, "Jane", subs[0].Answers.FullName)
	assert.Equal(t, float64(1), f.metrics.Completions.Values()[submit.OutcomeDeclined])

	f.lvt.Click(EventPrevious).Click(EventNext).AssertText(wizard.ThankYouTitle)
	f.sched.Advance(wizard.DefaultCompletionDelay)
	assert.Len(t, f.rec.all(), 1)
}

func TestFullScenario(t *testing.T) {
	f := mount(t)

	f.lvt.Change("fullName", "Ann").Change("email", "ann@co.com").Click(EventNext)
	f.lvt.Change("problemBefore", "slow site").
		Change("workingExperience", "smooth").
		Change("finalWebsiteFeeling", "love it").
		Click(EventNext)
	f.lvt.Change("leaveTestimonial", wizard.Yes).Click(EventNext).
		AssertText(wizard.MsgTestimonialRequired)
	f.lvt.Change("testimonialText", "<b>Great!</b>").Click(EventNext).
		AssertText("100% Complete").
		AssertElement("button", `lv-click="submit"`).
		AssertNoElement("button", `lv-click="next"`)

	f.lvt.Click(EventSubmit).AssertText(wizard.MsgSelectOption)
	f.lvt.Change("displayPermission", wizard.DisplayNameOnly).
		Change("linkedinRecommendation", wizard.Maybe).
		Click(EventSubmit).
		AssertText(`data-phase="celebrating"`)

	f.sched.Advance(wizard.DefaultCompletionDelay)
	f.lvt.DrainInfo()
	f.lvt.AssertText(wizard.ThankYouTitle)

	subs := f.rec.all()
	require.Len(t, subs, 1)
	want := wizard.Answers{
		FullName:               "Ann",
		Email:                  "ann@co.com",
		ProblemBefore:          "slow site",
		WorkingExperience:      "smooth",
		FinalWebsiteFeeling:    "love it",
		LeaveTestimonial:       wizard.Yes,
		TestimonialText:        "<b>Great!</b>",
		DisplayPermission:      wizard.DisplayNameOnly,
		LinkedinRecommendation: wizard.Maybe,
	}
	if diff := cmp.Diff(want, subs[0].Answers); diff != "" {
		t.Errorf("submitted answers mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, submit.OutcomeTestimonial, subs[0].Outcome)
	assert.Equal(t, f.comp.State().Answers, subs[0].Answers, "the submitted record is what was typed")
	assert.Equal(t, "Great!", subs[0].PlainAnswers.TestimonialText)
}

func TestPrevious_KeepsAnswers(t *testing.T) {
	f := mount(t)
	f.toStep3()

	f.lvt.Click(EventPrevious).
		AssertText(`data-step="2"`).
		AssertElement("textarea", `name="problemBefore"`).
		AssertText(">p</textarea>")
	f.lvt.Click(EventPrevious).Click(EventPrevious).
		AssertElement("input", `name="fullName"`, `value="Jane"`)
}

func TestTerminateWhileCelebrating(t *testing.T) {
	f := mount(t)
	f.toStep3()
	f.lvt.Change("leaveTestimonial", wizard.No).Click(EventNext)

	f.lvt.Terminate(core.TerminateNormal)
	assert.Zero(t, f.sched.Pending())

	f.sched.Advance(wizard.DefaultCompletionDelay)
	assert.Empty(t, f.rec.all())
	assert.True(t, f.comp.State().Celebrating())
}

func TestSubmitFailureStillThanks(t *testing.T) {
	f := mount(t)
	f.rec.err = errors.New("webhook down")
	f.toStep3()
	f.lvt.Change("leaveTestimonial", wizard.No).Click(EventNext)

	f.sched.Advance(wizard.DefaultCompletionDelay)
	f.lvt.DrainInfo()
	f.lvt.AssertText(wizard.ThankYouTitle)
	assert.Equal(t, float64(1), f.metrics.SubmitFailures.Values()["*feedback.recorder"])
}

func TestHandleEvent_Rejects(t *testing.T) {
	f := mount(t)

	assert.ErrorIs(t, f.lvt.EventErr("launch", nil), ErrUnknownEvent)
	assert.ErrorIs(t, f.lvt.EventErr(EventChange, map[string]any{"field": "colour", "value": "red"}), ErrUnknownField)
	assert.ErrorIs(t, f.lvt.EventErr(EventChange, map[string]any{"value": "x"}), ErrBadPayload)
	assert.ErrorIs(t, f.lvt.EventErr(EventChange, map[string]any{"field": "fullName", "value": 3.0}), ErrBadPayload)

	require.NoError(t, f.lvt.EventErr(EventChange, map[string]any{"field": "fullName"}))
	assert.Equal(t, "", f.comp.State().Answers.FullName)
}

func TestRender_EscapesAnswers(t *testing.T) {
	f := mount(t)
	f.lvt.Change("fullName", `"><script>alert(1)</script>`).
		AssertNoText("<script>").
		AssertText(`value="&#34;&gt;&lt;script&gt;alert(1)&lt;/script&gt;"`)
}

func TestStaticMount(t *testing.T) {
	comp := New(Options{Scheduler: wizard.NewManualScheduler()})
	lvt := lvtest.Mount(t, comp, lvtest.Static())
	lvt.AssertText("Share Your Experience")
	assert.Nil(t, comp.Socket())
}

func TestScatter(t *testing.T) {
	pieces := scatter(rand.New(rand.NewSource(42)), 200)
	require.Len(t, pieces, 200)
	for _, p := range pieces {
		assert.True(t, p.Left >= 0 && p.Left < 100)
		assert.True(t, p.Top >= 0 && p.Top < 100)
		assert.True(t, p.Delay >= 0 && p.Delay < 2)
		assert.True(t, p.Duration >= 2 && p.Duration < 5)
		assert.Contains(t, wizard.ConfettiSymbols, p.Symbol)
	}
	assert.Empty(t, scatter(rand.New(rand.NewSource(1)), 0))
}
