package mcpserver

// DiaryFormatContract describes the diary file layout the summarizer
// understands, for LLM consumers that create or inspect diaries.
const DiaryFormatContract = `# Diary Format Contract

A diary is one Markdown file per day, stored directly in the diary folder
(sub-folders are not scanned).

## Structure

` + "```" + `markdown
---
tags:
  - timeline
meditation: 10                  # OPTIONAL – any key/value metadata
has_summary: true               # written by diarysum once the summary is in place
---
<span
	  class='ob-timelines'
	  data-date='2024-12-20'
	  data-title='日记'
	  data-type='range'
	  data-end='2024-12-20'>
		first-person summary goes here
</span>
# ✝ praying
free text

---
# 😊 Daily Summary
free text
` + "```" + `

## Rules

1. **Front matter** is a YAML block delimited by ` + "`" + `---` + "`" + ` lines at the very top.
   It is optional; without it the summary is still written but the file is not marked.
2. **Tag element**: the first ` + "`" + `<span ...>` + "`" + ` element carries ` + "`" + `data-*` + "`" + ` attributes
   for the timeline view. Its inner text is where the summary is written. A file whose
   tag element already has text is never rewritten.
3. **Sections** start at level-1 headers (` + "`" + `# title` + "`" + `) and run to the next level-1 header.
   Emoji and punctuation in titles are ignored for summarization.
4. **Boilerplate**: text copied unchanged from the template under the same header is removed
   before summarizing. A diary with nothing but boilerplate is skipped.
5. **Idempotence**: ` + "`" + `has_summary: true` + "`" + ` in the front matter marks a finished diary;
   it is never modified again.
6. **Summary**: first person, 50–100 characters, in the language of the diary.
`
