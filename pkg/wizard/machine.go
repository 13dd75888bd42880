package wizard

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned by State.Check when an invariant is broken.
var ErrInvalidState = errors.New("wizard: invalid state")

// Phase is the machine's position.
type Phase int

const (
	Step1 Phase = iota + 1
	Step2
	Step3
	Step4
	// Celebrating is entered when the last required step validates. The
	// form stays on screen under the confetti until Reveal.
	Celebrating
	// Completed is absorbing.
	Completed
)

func (p Phase) String() string {
	switch p {
	case Step1:
		return "step1"
	case Step2:
		return "step2"
	case Step3:
		return "step3"
	case Step4:
		return "step4"
	case Celebrating:
		return "celebrating"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func stepPhase(step int) Phase {
	return Phase(step)
}

// State is one snapshot of the wizard. Transitions never mutate a State in
// place; they return a new one.
type State struct {
	Phase Phase

	// Step is the form step in view. It is frozen once completion starts.
	Step int

	// Answers survive every navigation.
	Answers Answers

	// Errors holds the result of the most recent validation attempt,
	// minus any fields edited since.
	Errors FieldErrors

	// Validated is the step Errors belongs to, 0 before the first attempt.
	Validated int
}

// New returns a freshly mounted wizard.
func New() State {
	return State{
		Phase:  Step1,
		Step:   1,
		Errors: FieldErrors{},
	}
}

// Celebrating reports whether the completion delay is running.
func (s State) Celebrating() bool { return s.Phase == Celebrating }

// Completed reports whether the thank-you screen is showing.
func (s State) Completed() bool { return s.Phase == Completed }

// Finishing reports whether the form no longer accepts input.
func (s State) Finishing() bool { return s.Phase >= Celebrating }

// Declined reports whether the user opted out of leaving a testimonial.
func (s State) Declined() bool { return s.Answers.LeaveTestimonial == No }

// Progress returns the header percentage for the current step.
func (s State) Progress() int {
	return (s.Step*100 + TotalSteps/2) / TotalSteps
}

// Edit stores value under f and clears f's error. Only fields collected
// on the current step can be edited; anything else, or any edit once
// completion has started, is ignored.
func (s State) Edit(f Field, value string) State {
	if s.Finishing() || StepOf(f) != s.Step {
		return s
	}
	s.Answers.Set(f, value)
	if _, ok := s.Errors[f]; ok {
		s.Errors = s.Errors.Without(f)
	}
	return s
}

// Next validates the current step and moves forward. A "no" on step 3
// skips step 4 and starts completion. On step 4 it validates and stays;
// Submit is the way out of step 4.
func (s State) Next() State {
	if s.Finishing() {
		return s
	}

	errs := Validate(s.Step, s.Answers)
	s.Errors = errs
	s.Validated = s.Step
	if !errs.Valid() {
		return s
	}

	switch {
	case s.Step == 3 && s.Answers.LeaveTestimonial == No:
		s.Phase = Celebrating
	case s.Step < TotalSteps:
		s.Step++
		s.Phase = stepPhase(s.Step)
	}
	return s
}

// Previous moves back one step without validating. Answers and errors are
// kept as they are.
func (s State) Previous() State {
	if s.Finishing() || s.Step <= 1 {
		return s
	}
	s.Step--
	s.Phase = stepPhase(s.Step)
	return s
}

// Submit validates step 4 and starts completion. It does nothing on any
// other phase.
func (s State) Submit() State {
	if s.Phase != Step4 {
		return s
	}

	errs := Validate(4, s.Answers)
	s.Errors = errs
	s.Validated = 4
	if errs.Valid() {
		s.Phase = Celebrating
	}
	return s
}

// Reveal ends the celebration and shows the thank-you screen.
func (s State) Reveal() State {
	if s.Phase == Celebrating {
		s.Phase = Completed
	}
	return s
}

// Check verifies the machine's invariants and reports the first one that
// does not hold.
func (s State) Check() error {
	if s.Step < 1 || s.Step > TotalSteps {
		return fmt.Errorf("%w: step %d out of range", ErrInvalidState, s.Step)
	}

	switch {
	case s.Phase >= Step1 && s.Phase <= Step4:
		if int(s.Phase) != s.Step {
			return fmt.Errorf("%w: phase %s with step %d", ErrInvalidState, s.Phase, s.Step)
		}
	case s.Phase == Celebrating || s.Phase == Completed:
		if s.Step != 3 && s.Step != 4 {
			return fmt.Errorf("%w: %s reached from step %d", ErrInvalidState, s.Phase, s.Step)
		}
		if s.Step == 3 && s.Answers.LeaveTestimonial != No {
			return fmt.Errorf("%w: step 4 skipped without declining", ErrInvalidState)
		}
	default:
		return fmt.Errorf("%w: unknown phase %d", ErrInvalidState, int(s.Phase))
	}

	if s.Step == 4 && s.Answers.LeaveTestimonial != Yes {
		return fmt.Errorf("%w: on step 4 without opting in", ErrInvalidState)
	}

	for f := range s.Errors {
		if StepOf(f) != s.Validated {
			return fmt.Errorf("%w: error on %s outside validated step %d", ErrInvalidState, f, s.Validated)
		}
	}
	return nil
}
