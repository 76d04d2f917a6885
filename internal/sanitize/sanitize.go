// Package sanitize cleans user-authored post content for display.
package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// ExcerptLength is the maximum number of characters in a derived excerpt
const ExcerptLength = 200

// Sanitizer holds the bluemonday policies used for post content.
// Policies are safe for concurrent use once built.
type Sanitizer struct {
	rich  *bluemonday.Policy
	plain *bluemonday.Policy
}

// New builds a Sanitizer
func New() *Sanitizer {
	rich := bluemonday.UGCPolicy()
	rich.RequireNoReferrerOnLinks(true)
	rich.AddTargetBlankToFullyQualifiedLinks(true)

	plain := bluemonday.StrictPolicy()
	plain.AddSpaceWhenStrippingTag(true)

	return &Sanitizer{
		rich:  rich,
		plain: plain,
	}
}

// HTML returns content safe to embed in a page
func (s *Sanitizer) HTML(content string) string {
	return s.rich.Sanitize(content)
}

// Text strips all markup and returns the plain text with whitespace collapsed
func (s *Sanitizer) Text(content string) string {
	text := html.UnescapeString(s.plain.Sanitize(content))
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns the first ExcerptLength characters of the plain text
func (s *Sanitizer) Excerpt(content string) string {
	text := s.Text(content)
	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text
	}
	return string([]rune(text)[:ExcerptLength])
}
