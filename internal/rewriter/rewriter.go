// Package rewriter writes generated summaries back into diary Markdown.
package rewriter

import (
	"regexp"
	"strings"

	"github.com/starford/diarysum/internal/parser"
)

var (
	emptyTagRe    = regexp.MustCompile(`(<span[^>]*>)\s*(</span>)`)
	frontmatterRe = regexp.MustCompile(`(?s)\A(\x{feff}?---\r?\n)(.*?)(\r?\n---[ \t]*(?:\r?\n|\z))`)
	summaryLineRe = regexp.MustCompile(`(?m)^` + parser.SummaryKey + `:.*$`)
)

// HasEmptyTarget reports whether content contains a tag element with only
// whitespace between its open and close tags.
func HasEmptyTarget(content string) bool {
	return emptyTagRe.MatchString(content)
}

// InjectSummary places summary into the first empty tag element as
// open tag, newline, two tabs, summary, newline, close tag, using the
// file's line ending. Only the element
// changes; everything else is preserved byte for byte. Content without an
// empty element is returned unchanged and ok is false.
func InjectSummary(content, summary string) (out string, ok bool) {
	m := emptyTagRe.FindStringSubmatchIndex(content)
	if m == nil {
		return content, false
	}
	open := content[m[2]:m[3]]
	closeTag := content[m[4]:m[5]]
	nl := newline(content[m[3]:m[4]], content)

	var b strings.Builder
	b.Grow(len(content) + len(summary) + 6)
	b.WriteString(content[:m[0]])
	b.WriteString(open)
	b.WriteString(nl + "\t\t")
	b.WriteString(summary)
	b.WriteString(nl)
	b.WriteString(closeTag)
	b.WriteString(content[m[1]:])
	return b.String(), true
}

// newline returns the line ending used inside the element, falling back to
// the document's when the element is on one line.
func newline(inner, content string) string {
	if strings.Contains(inner, "\n") {
		if strings.Contains(inner, "\r\n") {
			return "\r\n"
		}
		return "\n"
	}
	if strings.Contains(content, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// MarkSummarized sets has_summary: true in the front matter block, replacing
// an existing flag line or appending one before the closing delimiter.
// Content without front matter is returned unchanged.
func MarkSummarized(content string) string {
	m := frontmatterRe.FindStringSubmatchIndex(content)
	if m == nil {
		return content
	}
	head := content[m[2]:m[3]]
	body := content[m[4]:m[5]]
	tail := content[m[6]:m[7]]

	line := parser.SummaryKey + ": true"
	switch {
	case summaryLineRe.MatchString(body):
		replaced := false
		body = summaryLineRe.ReplaceAllStringFunc(body, func(s string) string {
			if replaced {
				return s
			}
			replaced = true
			if strings.HasSuffix(s, "\r") {
				return line + "\r"
			}
			return line
		})
	case body == "":
		body = line
	default:
		nl := "\n"
		if strings.HasPrefix(tail, "\r\n") {
			nl = "\r\n"
		}
		body = body + nl + line
	}
	return head + body + tail + content[m[1]:]
}
