package wizard

import "github.com/gabrielmiguelok/kudos/pkg/forms"

// TotalSteps is the number of form steps.
const TotalSteps = 4

// StepLayout is the static description of one step, shared by the web and
// terminal views.
type StepLayout struct {
	Number int
	Title  string
	Inputs []Input
}

// Input couples a Field with its rendering metadata.
type Input struct {
	Key  Field
	Spec forms.Field
}

func input(f Field, t forms.FieldType, label string, opts ...forms.FieldOption) Input {
	return Input{Key: f, Spec: forms.NewField(f.String(), t, label, opts...)}
}

// Copy shared by the web and terminal views.
const (
	Heading = "Share Your Experience"
	Tagline = "Help me improve by sharing your thoughts! ✨"

	// DeclineNote is shown under the step-3 choice when the user says no.
	DeclineNote = "No worries at all! Thank you so much for taking the time to provide feedback. Your input is incredibly valuable! 💙"

	PreviousLabel = "← Previous"
	NextLabel     = "Next Step →"
	SubmitLabel   = "Submit Feedback! 🎉"

	ThankYouTitle = "Thank You So Much! ❤️"
	ThankYouLead  = "Your feedback means the world to me! ✨"
	ThankYouBody  = "I truly appreciate you taking the time to share your experience. Your insights help me grow and serve my clients better! 🌟"
)

// ConfettiSymbols are drawn at random while celebrating.
var ConfettiSymbols = []string{"🎉", "✨", "💙", "⭐", "🌟"}

var layouts = [TotalSteps]StepLayout{
	{
		Number: 1,
		Title:  "Let's Start with the Basics! 👋",
		Inputs: []Input{
			input(FullName, forms.FieldText, "Full Name",
				forms.WithRequired(), forms.WithPlaceholder("Your beautiful name ✨")),
			input(BusinessName, forms.FieldText, "Business or Organization Name",
				forms.WithPlaceholder("Your amazing business 🏢")),
			input(Email, forms.FieldEmail, "Email Address",
				forms.WithRequired(), forms.WithPlaceholder("your@email.com 📧")),
		},
	},
	{
		Number: 2,
		Title:  "Tell Me About Your Experience! 💭",
		Inputs: []Input{
			input(ProblemBefore, forms.FieldTextarea, "What problem were you facing before we worked together?",
				forms.WithRequired(), forms.WithPlaceholder("Share your challenges before we started working together... 🤔")),
			input(WorkingExperience, forms.FieldTextarea, "What was it like working with me?",
				forms.WithRequired(), forms.WithPlaceholder("Describe our collaboration process... 🤝")),
			input(FinalWebsiteFeeling, forms.FieldTextarea, "How do you feel about the final website?",
				forms.WithRequired(), forms.WithPlaceholder("Share your thoughts on the final result... 🎯")),
			input(ResultsNoticed, forms.FieldTextarea, "What results or benefits have you noticed since the website went live?",
				forms.WithPlaceholder("Any improvements in traffic, sales, or engagement? 📈")),
		},
	},
	{
		Number: 3,
		Title:  "Would You Like to Leave a Testimonial? ⭐",
		Inputs: []Input{
			input(LeaveTestimonial, forms.FieldRadio, "Would you like to leave a testimonial I can use on my portfolio/website?",
				forms.WithRequired(), forms.WithOptions(
					forms.Option{Value: Yes, Label: "Yes, I'd love to! 💙", Emoji: "✨"},
					forms.Option{Value: No, Label: "No, but thank you for asking 😊", Emoji: "🤗"},
				)),
			input(TestimonialText, forms.FieldTextarea, "Your Testimonial",
				forms.WithRequired(), forms.WithRows(6), forms.WithPlaceholder("Write your amazing testimonial here... 🌟")),
		},
	},
	{
		Number: 4,
		Title:  "Final Details! 🎯",
		Inputs: []Input{
			input(DisplayPermission, forms.FieldRadio, "May I display your name and business name with your testimonial?",
				forms.WithRequired(), forms.WithOptions(
					forms.Option{Value: DisplayNameBusiness, Label: "Yes, name and business 🏢", Emoji: "👍"},
					forms.Option{Value: DisplayNameOnly, Label: "Yes, name only 👤", Emoji: "👤"},
					forms.Option{Value: DisplayBusinessOnly, Label: "Yes, business name only 🏢", Emoji: "🏢"},
					forms.Option{Value: DisplayAnonymous, Label: "No, keep anonymous 🕶️", Emoji: "🔒"},
				)),
			input(LinkedinRecommendation, forms.FieldRadio, "Would you be open to leaving this recommendation on my LinkedIn profile as well?",
				forms.WithRequired(), forms.WithOptions(
					forms.Option{Value: Yes, Label: "Yes, absolutely! 💼", Emoji: "✅"},
					forms.Option{Value: Maybe, Label: "Maybe later ⏰", Emoji: "🤔"},
					forms.Option{Value: No, Label: "No, thank you 😊", Emoji: "❌"},
				)),
		},
	},
}

// Layout returns the layout of step n (1-based). It panics on an out of
// range step.
func Layout(n int) StepLayout {
	return layouts[n-1]
}

// Visible returns the inputs of step n that should be shown for answers a.
// The testimonial text only appears once the user has opted in.
func Visible(n int, a Answers) []Input {
	all := Layout(n).Inputs
	out := make([]Input, 0, len(all))
	for _, in := range all {
		if in.Key == TestimonialText && a.LeaveTestimonial != Yes {
			continue
		}
		out = append(out, in)
	}
	return out
}

// StepOf returns the step a field is collected on.
func StepOf(f Field) int {
	for _, l := range layouts {
		for _, in := range l.Inputs {
			if in.Key == f {
				return l.Number
			}
		}
	}
	return 0
}

// InputFor returns the input metadata of f.
func InputFor(f Field) (Input, bool) {
	if s := StepOf(f); s > 0 {
		for _, in := range layouts[s-1].Inputs {
			if in.Key == f {
				return in, true
			}
		}
	}
	return Input{}, false
}
