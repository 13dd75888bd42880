package wizard

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func declineSession(t *testing.T, s *Session) {
	t.Helper()
	s.Edit(FullName, "Jane")
	s.Edit(Email, "jane@x.com")
	s.Next()
	s.Edit(ProblemBefore, "p")
	s.Edit(WorkingExperience, "w")
	s.Edit(FinalWebsiteFeeling, "f")
	s.Next()
	s.Edit(LeaveTestimonial, No)
	st := s.Next()
	require.True(t, st.Celebrating())
}

func TestSession_DeclineCompletesAfterDelay(t *testing.T) {
	sched := NewManualScheduler()
	var calls int32
	s := NewSession(WithScheduler(sched), OnComplete(func(State) {
		atomic.AddInt32(&calls, 1)
	}))

	declineSession(t, s)
	assert.Equal(t, 1, sched.Pending())

	sched.Advance(DefaultCompletionDelay - time.Millisecond)
	assert.True(t, s.State().Celebrating())
	assert.Zero(t, atomic.LoadInt32(&calls))

	sched.Advance(time.Millisecond)
	assert.True(t, s.State().Completed())
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	sched.Advance(time.Hour)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSession_FullScenario(t *testing.T) {
	sched := NewManualScheduler()
	var got []State
	s := NewSession(WithScheduler(sched), OnComplete(func(st State) {
		got = append(got, st)
	}))

	s.Edit(FullName, "Ann")
	s.Edit(Email, "ann@co.com")
	s.Next()
	s.Edit(ProblemBefore, "slow site")
	s.Edit(WorkingExperience, "smooth")
	s.Edit(FinalWebsiteFeeling, "love it")
	s.Next()
	s.Edit(LeaveTestimonial, Yes)
	s.Edit(TestimonialText, "Great!")
	s.Next()
	s.Edit(DisplayPermission, DisplayNameOnly)
	s.Edit(LinkedinRecommendation, Maybe)
	require.True(t, s.Submit().Celebrating())

	sched.Advance(DefaultCompletionDelay)

	require.Len(t, got, 1)
	want := Answers{
		FullName:               "Ann",
		Email:                  "ann@co.com",
		ProblemBefore:          "slow site",
		WorkingExperience:      "smooth",
		FinalWebsiteFeeling:    "love it",
		LeaveTestimonial:       Yes,
		TestimonialText:        "Great!",
		DisplayPermission:      DisplayNameOnly,
		LinkedinRecommendation: Maybe,
	}
	if diff := cmp.Diff(want, got[0].Answers); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got[0].Completed())
}

func TestSession_CloseCancelsTimer(t *testing.T) {
	sched := NewManualScheduler()
	called := false
	s := NewSession(WithScheduler(sched), OnComplete(func(State) { called = true }))

	declineSession(t, s)
	s.Close()

	assert.Zero(t, sched.Pending())
	sched.Advance(DefaultCompletionDelay)
	assert.False(t, called)
	assert.True(t, s.State().Celebrating(), "closed session is never mutated")

	before := s.State()
	s.Edit(FullName, "x")
	assert.Equal(t, before, s.State())
	assert.True(t, s.Closed())
	s.Close()
}

func TestSession_CustomDelay(t *testing.T) {
	sched := NewManualScheduler()
	s := NewSession(WithScheduler(sched), WithCompletionDelay(50*time.Millisecond))

	declineSession(t, s)
	sched.Advance(50 * time.Millisecond)
	assert.True(t, s.State().Completed())
}

func TestSession_RealTimer(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	s := NewSession(WithCompletionDelay(10*time.Millisecond), OnComplete(func(State) {
		wg.Done()
	}))
	defer s.Close()

	declineSession(t, s)
	wg.Wait()
	assert.True(t, s.State().Completed())
}

func TestSession_RealTimerClosedEarly(t *testing.T) {
	s := NewSession(WithCompletionDelay(time.Hour))
	declineSession(t, s)
	s.Close()
}

func TestSession_ConcurrentEdits(t *testing.T) {
	s := NewSession(WithScheduler(NewManualScheduler()))
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Edit(FullName, "Jane")
				s.Next()
				s.Previous()
			}
		}()
	}
	wg.Wait()
	assert.NoError(t, s.State().Check())
}
