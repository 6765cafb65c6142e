// Package differ separates user-authored diary text from template boilerplate
// and flattens what remains into a single summarization payload.
package differ

import (
	"strings"

	"github.com/starford/diarysum/internal/parser"
)

// Result is a diary with template boilerplate removed from its sections.
type Result struct {
	Frontmatter map[string]any
	Attributes  map[string]string
	Sections    []parser.Section
}

// Boilerplate returns the non-empty body of every template section, keyed by title.
// A nil template has no boilerplate.
func Boilerplate(template *parser.Document) map[string]string {
	out := map[string]string{}
	if template == nil {
		return out
	}
	for _, s := range template.Sections {
		if body := strings.TrimSpace(s.Body); body != "" {
			out[s.Title] = body
		}
	}
	return out
}

// Strip removes, for every section title present in both documents, each
// occurrence of the template's boilerplate from the diary body. Sections
// without a template counterpart pass through unchanged.
func Strip(diary, template *parser.Document) *Result {
	boiler := Boilerplate(template)
	sections := make([]parser.Section, len(diary.Sections))
	for i, s := range diary.Sections {
		body := s.Body
		if b, ok := boiler[s.Title]; ok {
			body = strings.TrimSpace(strings.ReplaceAll(body, b, ""))
		}
		sections[i] = parser.Section{Title: s.Title, Body: body}
	}
	return &Result{
		Frontmatter: diary.Frontmatter,
		Attributes:  diary.Attributes,
		Sections:    sections,
	}
}

// Content strips diary against template and flattens the result.
func Content(diary, template *parser.Document) string {
	return Flatten(Strip(diary, template).Sections)
}
