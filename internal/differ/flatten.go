package differ

import (
	"strings"
	"unicode"

	"github.com/starford/diarysum/internal/parser"
)

// Flatten renders non-empty sections as "title: body" entries joined by "; ".
// Titles lose every rune that is not a letter, digit, underscore or space;
// bodies have all whitespace runs collapsed to one space.
func Flatten(sections []parser.Section) string {
	var entries []string
	for _, s := range sections {
		body := strings.TrimSpace(s.Body)
		if body == "" {
			continue
		}
		entries = append(entries, CleanTitle(s.Title)+": "+strings.Join(strings.Fields(body), " "))
	}
	return strings.Join(entries, "; ")
}

// CleanTitle removes emoji, punctuation and other symbols from a header title.
func CleanTitle(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, title)
	return strings.TrimSpace(cleaned)
}
