// Package wizard implements the four-step testimonial wizard: the answer
// record, per-step validation, the phase machine and a session that owns
// the completion timer.
//
// The machine is pure. Transitions take a State and return the next one;
// nothing in this package renders or performs I/O apart from Session's
// scheduled reveal.
package wizard

// Field names one of the eleven answers. The set is closed; errors and
// edits are keyed by Field rather than free-form strings.
type Field int

const (
	FullName Field = iota + 1
	BusinessName
	Email
	ProblemBefore
	WorkingExperience
	FinalWebsiteFeeling
	ResultsNoticed
	LeaveTestimonial
	TestimonialText
	DisplayPermission
	LinkedinRecommendation
)

var fieldNames = [...]string{
	FullName:               "fullName",
	BusinessName:           "businessName",
	Email:                  "email",
	ProblemBefore:          "problemBefore",
	WorkingExperience:      "workingExperience",
	FinalWebsiteFeeling:    "finalWebsiteFeeling",
	ResultsNoticed:         "resultsNoticed",
	LeaveTestimonial:       "leaveTestimonial",
	TestimonialText:        "testimonialText",
	DisplayPermission:      "displayPermission",
	LinkedinRecommendation: "linkedinRecommendation",
}

// String returns the wire name, e.g. "fullName".
func (f Field) String() string {
	if f < FullName || f > LinkedinRecommendation {
		return "unknown"
	}
	return fieldNames[f]
}

// Valid reports whether f is one of the declared fields.
func (f Field) Valid() bool {
	return f >= FullName && f <= LinkedinRecommendation
}

// ParseField maps a wire name back to its Field.
func ParseField(name string) (Field, bool) {
	for f := FullName; f <= LinkedinRecommendation; f++ {
		if fieldNames[f] == name {
			return f, true
		}
	}
	return 0, false
}

// AllFields returns every field in declaration order.
func AllFields() []Field {
	out := make([]Field, 0, int(LinkedinRecommendation))
	for f := FullName; f <= LinkedinRecommendation; f++ {
		out = append(out, f)
	}
	return out
}

// Choice values.
const (
	Yes   = "yes"
	No    = "no"
	Maybe = "maybe"

	DisplayNameBusiness = "name-business"
	DisplayNameOnly     = "name-only"
	DisplayBusinessOnly = "business-only"
	DisplayAnonymous    = "anonymous"
)

// Answers is the full answer record. Every field is optional at storage
// level; the zero value is a fresh form.
type Answers struct {
	FullName               string `json:"fullName" msgpack:"fullName"`
	BusinessName           string `json:"businessName" msgpack:"businessName"`
	Email                  string `json:"email" msgpack:"email"`
	ProblemBefore          string `json:"problemBefore" msgpack:"problemBefore"`
	WorkingExperience      string `json:"workingExperience" msgpack:"workingExperience"`
	FinalWebsiteFeeling    string `json:"finalWebsiteFeeling" msgpack:"finalWebsiteFeeling"`
	ResultsNoticed         string `json:"resultsNoticed" msgpack:"resultsNoticed"`
	LeaveTestimonial       string `json:"leaveTestimonial" msgpack:"leaveTestimonial"`
	TestimonialText        string `json:"testimonialText" msgpack:"testimonialText"`
	DisplayPermission      string `json:"displayPermission" msgpack:"displayPermission"`
	LinkedinRecommendation string `json:"linkedinRecommendation" msgpack:"linkedinRecommendation"`
}

func (a *Answers) ref(f Field) *string {
	switch f {
	case FullName:
		return &a.FullName
	case BusinessName:
		return &a.BusinessName
	case Email:
		return &a.Email
	case ProblemBefore:
		return &a.ProblemBefore
	case WorkingExperience:
		return &a.WorkingExperience
	case FinalWebsiteFeeling:
		return &a.FinalWebsiteFeeling
	case ResultsNoticed:
		return &a.ResultsNoticed
	case LeaveTestimonial:
		return &a.LeaveTestimonial
	case TestimonialText:
		return &a.TestimonialText
	case DisplayPermission:
		return &a.DisplayPermission
	case LinkedinRecommendation:
		return &a.LinkedinRecommendation
	}
	return nil
}

// Get returns the value of f, or "" for an unknown field.
func (a Answers) Get(f Field) string {
	if p := a.ref(f); p != nil {
		return *p
	}
	return ""
}

// Set stores v under f. Unknown fields are ignored.
func (a *Answers) Set(f Field, v string) {
	if p := a.ref(f); p != nil {
		*p = v
	}
}

// Map returns the answers keyed by wire name.
func (a Answers) Map() map[string]string {
	m := make(map[string]string, int(LinkedinRecommendation))
	for _, f := range AllFields() {
		m[f.String()] = a.Get(f)
	}
	return m
}

// Transform returns a copy with fn applied to every value.
func (a Answers) Transform(fn func(Field, string) string) Answers {
	out := a
	for _, f := range AllFields() {
		out.Set(f, fn(f, a.Get(f)))
	}
	return out
}
