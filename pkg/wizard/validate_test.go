package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Step1(t *testing.T) {
	errs := Validate(1, Answers{})
	assert.Equal(t, FieldErrors{
		FullName: MsgFullNameRequired,
		Email:    MsgEmailRequired,
	}, errs)

	errs = Validate(1, Answers{FullName: "Bob", Email: "bob@"})
	assert.Equal(t, FieldErrors{Email: MsgEmailInvalid}, errs)

	errs = Validate(1, Answers{FullName: "Jane", Email: "jane@x.com"})
	assert.True(t, errs.Valid())
	assert.NotNil(t, errs)

	errs = Validate(1, Answers{FullName: "   ", Email: "  \t"})
	assert.Equal(t, MsgFullNameRequired, errs[FullName])
	assert.Equal(t, MsgEmailRequired, errs[Email])
}

func TestValidate_BusinessNameNeverRequired(t *testing.T) {
	errs := Validate(1, Answers{FullName: "Jane", Email: "jane@x.com", BusinessName: ""})
	assert.True(t, errs.Valid())
}

func TestValidate_Step2(t *testing.T) {
	errs := Validate(2, Answers{})
	assert.Len(t, errs, 3)
	for _, f := range []Field{ProblemBefore, WorkingExperience, FinalWebsiteFeeling} {
		assert.Equal(t, MsgFieldRequired, errs[f], f.String())
	}
	assert.NotContains(t, errs, ResultsNoticed)

	errs = Validate(2, Answers{ProblemBefore: "slow site"})
	assert.Len(t, errs, 2)
	assert.NotContains(t, errs, ProblemBefore)
}

func TestValidate_Step3(t *testing.T) {
	tests := []struct {
		name    string
		answers Answers
		want    FieldErrors
	}{
		{"nothing chosen", Answers{}, FieldErrors{LeaveTestimonial: MsgSelectOption}},
		{"bogus choice", Answers{LeaveTestimonial: "perhaps"}, FieldErrors{LeaveTestimonial: MsgSelectOption}},
		{"no", Answers{LeaveTestimonial: No}, FieldErrors{}},
		{"yes without text", Answers{LeaveTestimonial: Yes, TestimonialText: "  "}, FieldErrors{TestimonialText: MsgTestimonialRequired}},
		{"yes with text", Answers{LeaveTestimonial: Yes, TestimonialText: "Great!"}, FieldErrors{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(3, tt.answers))
		})
	}
}

func TestValidate_Step4(t *testing.T) {
	errs := Validate(4, Answers{LeaveTestimonial: Yes})
	assert.Equal(t, FieldErrors{
		DisplayPermission:      MsgSelectOption,
		LinkedinRecommendation: MsgSelectOption,
	}, errs)

	errs = Validate(4, Answers{LeaveTestimonial: No})
	assert.True(t, errs.Valid())

	errs = Validate(4, Answers{LeaveTestimonial: Yes, DisplayPermission: DisplayAnonymous, LinkedinRecommendation: Maybe})
	assert.True(t, errs.Valid())

	errs = Validate(4, Answers{LeaveTestimonial: Yes, DisplayPermission: "full-page-ad", LinkedinRecommendation: "sure"})
	assert.Equal(t, FieldErrors{
		DisplayPermission:      MsgSelectOption,
		LinkedinRecommendation: MsgSelectOption,
	}, errs)

	for _, opt := range []string{DisplayNameBusiness, DisplayNameOnly, DisplayBusinessOnly, DisplayAnonymous} {
		errs = Validate(4, Answers{LeaveTestimonial: Yes, DisplayPermission: opt, LinkedinRecommendation: No})
		assert.True(t, errs.Valid(), opt)
	}
}

func TestValidate_OutOfRange(t *testing.T) {
	assert.True(t, Validate(0, Answers{}).Valid())
	assert.True(t, Validate(5, Answers{}).Valid())
}

func TestFieldErrors_Without(t *testing.T) {
	errs := FieldErrors{FullName: "a", Email: "b"}
	out := errs.Without(Email)

	assert.Equal(t, FieldErrors{FullName: "a"}, out)
	assert.Len(t, errs, 2, "original must not change")
	assert.Equal(t, []Field{FullName, Email}, errs.Fields())
}

func TestParseField(t *testing.T) {
	for _, f := range AllFields() {
		got, ok := ParseField(f.String())
		assert.True(t, ok)
		assert.Equal(t, f, got)
	}

	_, ok := ParseField("favouriteColour")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Field(99).String())
	assert.Len(t, AllFields(), 11)
}

func TestAnswers_GetSet(t *testing.T) {
	var a Answers
	a.Set(TestimonialText, "Loved it")
	a.Set(Field(0), "ignored")

	assert.Equal(t, "Loved it", a.TestimonialText)
	assert.Equal(t, "Loved it", a.Get(TestimonialText))
	assert.Equal(t, "", a.Get(Field(42)))
	assert.Equal(t, "Loved it", a.Map()["testimonialText"])
}

func TestLayout(t *testing.T) {
	for _, f := range AllFields() {
		assert.NotZero(t, StepOf(f), "%s has no step", f)
	}

	assert.Len(t, Visible(3, Answers{}), 1)
	assert.Len(t, Visible(3, Answers{LeaveTestimonial: Yes}), 2)

	in, ok := InputFor(DisplayPermission)
	assert.True(t, ok)
	assert.Equal(t, "Yes, name only 👤", in.Spec.OptionLabel(DisplayNameOnly))
}
