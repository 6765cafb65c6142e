// Package parser extracts front matter, the timeline tag element, and level-1
// sections from diary Markdown.
package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SummaryKey is the front matter flag that marks a diary as already summarized.
const SummaryKey = "has_summary"

var (
	frontmatterRe = regexp.MustCompile(`(?s)^---\n(.*?)\n---[ \t]*(?:\n|$)`)
	tagRe         = regexp.MustCompile(`(?s)<span[^>]*>(.*?)</span>`)
	dataAttrRe    = regexp.MustCompile(`data-([\w-]+)\s*=\s*['"]([^'"]*)['"]`)
	headerRe      = regexp.MustCompile(`^#[ \t]+(.+)$`)
	fenceRe       = regexp.MustCompile("^[ ]{0,3}(`{3,}|~{3,})")
	summaryFlagRe = regexp.MustCompile(`(?im)^has_summary:\s*true\s*$`)
)

// Section is the text under one level-1 header.
type Section struct {
	Title string
	Body  string
}

// Document is the structured view of one diary or template file.
type Document struct {
	// Frontmatter is never nil; absent or invalid YAML yields an empty map.
	Frontmatter map[string]any
	// Attributes holds the data-* attributes of the first tag element, keyed
	// without the "data-" prefix. Never nil.
	Attributes map[string]string
	// HasTag reports whether a tag element was found at all.
	HasTag bool
	// TagContent is the raw inner text of the tag element.
	TagContent string
	// Sections are the level-1 sections in document order.
	Sections []Section

	rawFrontmatter string
	yamlInvalid    bool
}

// Normalize converts CRLF line endings and strips a UTF-8 byte order mark.
func Normalize(data []byte) string {
	s := strings.TrimPrefix(string(data), "\ufeff")
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Body returns the normalized content after the front matter block.
func Body(data []byte) string {
	content := Normalize(data)
	if m := frontmatterRe.FindStringIndex(content); m != nil {
		return content[m[1]:]
	}
	return content
}

// Parse builds a Document from raw Markdown. It never fails: missing front
// matter, tag element, or headers produce empty results.
func Parse(data []byte) *Document {
	content := Normalize(data)
	doc := &Document{
		Frontmatter: map[string]any{},
		Attributes:  map[string]string{},
	}

	body := content
	if m := frontmatterRe.FindStringSubmatchIndex(content); m != nil {
		doc.rawFrontmatter = content[m[2]:m[3]]
		body = content[m[1]:]
		var fm map[string]any
		if err := yaml.Unmarshal([]byte(doc.rawFrontmatter), &fm); err != nil {
			doc.yamlInvalid = true
		} else if fm != nil {
			doc.Frontmatter = fm
		}
	}

	if m := tagRe.FindStringSubmatch(body); m != nil {
		doc.HasTag = true
		doc.TagContent = m[1]
		for _, attr := range dataAttrRe.FindAllStringSubmatch(m[0], -1) {
			doc.Attributes[attr[1]] = attr[2]
		}
	}

	doc.Sections = extractSections(body)
	return doc
}

// HasSummary reports whether the front matter asserts has_summary: true.
func (d *Document) HasSummary() bool {
	if v, ok := d.Frontmatter[SummaryKey]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			return strings.EqualFold(strings.TrimSpace(b), "true")
		}
		return false
	}
	// Unparseable YAML still honours a literal flag line.
	return d.yamlInvalid && summaryFlagRe.MatchString(d.rawFrontmatter)
}

// HasFrontmatter reports whether a front matter block was present.
func (d *Document) HasFrontmatter() bool {
	return d.rawFrontmatter != "" || len(d.Frontmatter) > 0
}

// TagEmpty reports whether a tag element exists and has only whitespace inside.
func (d *Document) TagEmpty() bool {
	return d.HasTag && strings.TrimSpace(d.TagContent) == ""
}

// Section returns the body under the header with the given title.
func (d *Document) Section(title string) (string, bool) {
	for _, s := range d.Sections {
		if s.Title == title {
			return s.Body, true
		}
	}
	return "", false
}

// extractSections scans level-1 headers outside fenced code blocks and
// captures every line up to the next level-1 header or end of document.
// Separator lines ("---") are dropped. A repeated title keeps its first
// position and the last body.
func extractSections(body string) []Section {
	var (
		out       []Section
		index     = map[string]int{}
		title     string
		lines     []string
		open      bool
		fenceChar byte
		fenceLen  int
	)

	flush := func() {
		if !open {
			return
		}
		text := strings.TrimSpace(strings.Join(lines, "\n"))
		if i, dup := index[title]; dup {
			out[i].Body = text
		} else {
			index[title] = len(out)
			out = append(out, Section{Title: title, Body: text})
		}
	}

	for _, line := range strings.Split(body, "\n") {
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			fence := m[1]
			switch {
			case fenceLen == 0:
				fenceChar, fenceLen = fence[0], len(fence)
			case fence[0] == fenceChar && len(fence) >= fenceLen:
				fenceLen = 0
			}
		} else if fenceLen == 0 {
			if m := headerRe.FindStringSubmatch(line); m != nil {
				flush()
				title = cleanTitle(m[1])
				lines = lines[:0]
				open = true
				continue
			}
			if strings.TrimSpace(line) == "---" {
				continue
			}
		}
		if open {
			lines = append(lines, line)
		}
	}
	flush()
	return out
}

// cleanTitle trims whitespace and an optional ATX closing sequence.
func cleanTitle(raw string) string {
	t := strings.TrimSpace(raw)
	if trimmed := strings.TrimRight(t, "#"); trimmed != t && (trimmed == "" || strings.HasSuffix(trimmed, " ")) {
		t = strings.TrimSpace(trimmed)
	}
	return t
}
