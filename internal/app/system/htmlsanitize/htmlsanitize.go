// Package htmlsanitize cleans user-entered text before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from s, decodes entities, and collapses runs
// of whitespace to single spaces.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(out), " ")
}

// PlainTextPtr applies PlainText through a pointer, leaving nil alone.
func PlainTextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := PlainText(*s)
	return &v
}
