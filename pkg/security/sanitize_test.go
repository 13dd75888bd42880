package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Great work!", "Great work!"},
		{"trimmed", "  hi \n", "hi"},
		{"tags stripped", "<b>bold</b> move", "bold move"},
		{"script dropped", `ok<script>alert(1)</script>`, "ok"},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"emoji kept", "Loved it 💙", "Loved it 💙"},
		{"newlines kept", "line one\nline two", "line one\nline two"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.in))
		})
	}
}

func TestSanitizeAnswers(t *testing.T) {
	in := wizard.Answers{
		FullName:        " <i>Ann</i> ",
		Email:           "ann@co.com",
		TestimonialText: "<a href=\"javascript:x\">Great</a>!",
	}
	out := SanitizeAnswers(in)

	assert.Equal(t, "Ann", out.FullName)
	assert.Equal(t, "ann@co.com", out.Email)
	assert.Equal(t, "Great!", out.TestimonialText)
	assert.Equal(t, " <i>Ann</i> ", in.FullName, "input must not change")
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("https://hooks.example.com/kudos"))
	assert.True(t, IsValidURL("http://localhost:9000"))
	assert.False(t, IsValidURL("ftp://example.com"))
	assert.False(t, IsValidURL("/relative"))
	assert.False(t, IsValidURL("::"))
}
