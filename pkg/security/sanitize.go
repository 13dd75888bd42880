// Package security cleans user-supplied text before it leaves the process.
package security

import (
	"html"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gabrielmiguelok/kudos/pkg/wizard"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// SanitizeText returns a plain-text rendition of s with all markup
// stripped. Line breaks are kept; surrounding whitespace is trimmed. It is
// lossy and is only used for derived copies, never for the answers
// themselves. The result is not HTML-safe and must still be escaped on
// output.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	cleaned := html.UnescapeString(textSanitizer().Sanitize(s))
	return strings.TrimSpace(cleaned)
}

// SanitizeAnswers returns a copy of a with every answer passed through
// SanitizeText. a is not modified.
func SanitizeAnswers(a wizard.Answers) wizard.Answers {
	return a.Transform(func(_ wizard.Field, v string) string {
		return SanitizeText(v)
	})
}

// IsValidURL reports whether raw is an absolute http or https URL.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
