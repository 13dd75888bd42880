// Package forms describes form inputs and validates their text values.
package forms

// FieldType identifies how a field is rendered.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTextarea FieldType = "textarea"
	FieldRadio    FieldType = "radio"
)

// Field describes one input: how it's labelled, rendered and validated.
// Values live elsewhere; a Field is static metadata.
type Field struct {
	// Name is the wire name used in events and form data.
	Name string

	Type        FieldType
	Label       string
	Placeholder string

	// Required marks the label with an asterisk. Enforcement is done by
	// whoever owns the values, not by the field.
	Required bool

	// Rows is the textarea height.
	Rows int

	// Options are the choices for radio fields.
	Options []Option
}

// Option is a single radio choice.
type Option struct {
	Value string
	Label string
	Emoji string
}

// FieldOption configures a field.
type FieldOption func(*Field)

// NewField creates a field.
func NewField(name string, fieldType FieldType, label string, opts ...FieldOption) Field {
	field := Field{
		Name:  name,
		Type:  fieldType,
		Label: label,
	}
	if fieldType == FieldTextarea {
		field.Rows = 4
	}

	for _, opt := range opts {
		opt(&field)
	}

	return field
}

// WithRequired marks the field as required.
func WithRequired() FieldOption {
	return func(f *Field) {
		f.Required = true
	}
}

// WithPlaceholder sets the placeholder text.
func WithPlaceholder(placeholder string) FieldOption {
	return func(f *Field) {
		f.Placeholder = placeholder
	}
}

// WithRows sets the textarea height.
func WithRows(rows int) FieldOption {
	return func(f *Field) {
		f.Rows = rows
	}
}

// WithOptions sets the radio options.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = options
	}
}

// OptionLabel returns the label for value, or value itself when unknown.
func (f Field) OptionLabel(value string) string {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// HasOption reports whether value is one of the field's options.
func (f Field) HasOption(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}
