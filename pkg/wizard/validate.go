package wizard

import (
	"sort"

	"github.com/gabrielmiguelok/kudos/pkg/forms"
)

// Validation messages.
const (
	MsgFullNameRequired    = "Full name is required"
	MsgEmailRequired       = "Email is required"
	MsgEmailInvalid        = "Please enter a valid email"
	MsgFieldRequired       = "This field is required"
	MsgSelectOption        = "Please select an option"
	MsgTestimonialRequired = "Testimonial text is required"
)

// FieldErrors maps a field to the message shown next to it. An empty map
// means the step is valid.
type FieldErrors map[Field]string

// Valid reports whether there are no errors.
func (e FieldErrors) Valid() bool {
	return len(e) == 0
}

// Without returns a copy of e with f removed. e is not modified.
func (e FieldErrors) Without(f Field) FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		if k != f {
			out[k] = v
		}
	}
	return out
}

// Fields returns the keys in declaration order.
func (e FieldErrors) Fields() []Field {
	out := make([]Field, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type rule struct {
	field      Field
	validators []forms.Validator
	when       func(Answers) bool
}

func testimonialOptIn(a Answers) bool { return a.LeaveTestimonial == Yes }

var displayOptions = []string{DisplayNameBusiness, DisplayNameOnly, DisplayBusinessOnly, DisplayAnonymous}

var rules = [TotalSteps][]rule{
	{
		{field: FullName, validators: []forms.Validator{forms.Required(MsgFullNameRequired)}},
		{field: Email, validators: []forms.Validator{forms.Required(MsgEmailRequired), forms.Email(MsgEmailInvalid)}},
	},
	{
		{field: ProblemBefore, validators: []forms.Validator{forms.Required(MsgFieldRequired)}},
		{field: WorkingExperience, validators: []forms.Validator{forms.Required(MsgFieldRequired)}},
		{field: FinalWebsiteFeeling, validators: []forms.Validator{forms.Required(MsgFieldRequired)}},
	},
	{
		{field: LeaveTestimonial, validators: []forms.Validator{forms.OneOfValidator{Values: []string{Yes, No}, Msg: MsgSelectOption}}},
		{field: TestimonialText, validators: []forms.Validator{forms.Required(MsgTestimonialRequired)}, when: testimonialOptIn},
	},
	{
		{field: DisplayPermission, validators: []forms.Validator{forms.OneOfValidator{Values: displayOptions, Msg: MsgSelectOption}}, when: testimonialOptIn},
		{field: LinkedinRecommendation, validators: []forms.Validator{forms.OneOfValidator{Values: []string{Yes, Maybe, No}, Msg: MsgSelectOption}}, when: testimonialOptIn},
	},
}

// Validate checks the required fields of step against a. Steps outside
// [1, TotalSteps] have nothing to check. The result is never nil.
func Validate(step int, a Answers) FieldErrors {
	errs := FieldErrors{}
	if step < 1 || step > TotalSteps {
		return errs
	}

	for _, r := range rules[step-1] {
		if r.when != nil && !r.when(a) {
			continue
		}
		if msg, ok := forms.Check(a.Get(r.field), r.validators...); !ok {
			errs[r.field] = msg
		}
	}
	return errs
}
