package forms

import (
	"errors"
	"regexp"
	"strings"
)

// Validation failures reported by the built-in validators.
var (
	ErrRequired      = errors.New("required")
	ErrPatternFailed = errors.New("pattern mismatch")
	ErrNotAnOption   = errors.New("invalid option")
)

// Validator validates a single text value.
type Validator interface {
	// Validate returns a non-nil error when the value is rejected.
	Validate(value string) error

	// Message returns the human-readable message shown next to the field.
	Message() string
}

// RequiredValidator rejects values that are empty after trimming whitespace.
type RequiredValidator struct {
	Msg string
}

func (v RequiredValidator) Validate(value string) error {
	if strings.TrimSpace(value) == "" {
		return ErrRequired
	}
	return nil
}

func (v RequiredValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "This field is required"
}

// looseEmail is deliberately permissive: something, an at-sign, something,
// a dot, something. Anything stricter belongs to the mail server.
var looseEmail = regexp.MustCompile(`\S+@\S+\.\S+`)

// EmailValidator checks the loose email shape. Empty values pass; pair it
// with Required for presence.
type EmailValidator struct {
	Msg string
}

func (v EmailValidator) Validate(value string) error {
	if value == "" {
		return nil
	}
	if !looseEmail.MatchString(value) {
		return ErrPatternFailed
	}
	return nil
}

func (v EmailValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Please enter a valid email"
}

// OneOfValidator accepts only one of a closed set of values.
type OneOfValidator struct {
	Values []string
	Msg    string
}

func (v OneOfValidator) Validate(value string) error {
	for _, allowed := range v.Values {
		if value == allowed {
			return nil
		}
	}
	return ErrNotAnOption
}

func (v OneOfValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Please select an option"
}

// PresentValidator rejects the empty string without trimming. Used for
// single-choice inputs where whitespace can't occur.
type PresentValidator struct {
	Msg string
}

func (v PresentValidator) Validate(value string) error {
	if value == "" {
		return ErrRequired
	}
	return nil
}

func (v PresentValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Please select an option"
}

// Check runs validators in order and returns the message of the first one
// that fails. ok is true when every validator passes.
func Check(value string, validators ...Validator) (msg string, ok bool) {
	for _, v := range validators {
		if err := v.Validate(value); err != nil {
			return v.Message(), false
		}
	}
	return "", true
}

// Convenience constructors

// Required returns a required validator with an optional custom message.
func Required(msg ...string) Validator {
	v := RequiredValidator{}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// Email returns a loose email validator with an optional custom message.
func Email(msg ...string) Validator {
	v := EmailValidator{}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// OneOf returns a closed-set validator.
func OneOf(values ...string) Validator {
	return OneOfValidator{Values: values}
}

// Selected returns a presence validator for single-choice inputs.
func Selected(msg ...string) Validator {
	v := PresentValidator{}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}
