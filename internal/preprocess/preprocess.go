// Package preprocess holds the string rewrites applied to Markdown before
// tokenizing. Each rewrite is a pure function and Apply runs them in order.
package preprocess

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/mdschema/internal/htmlx"
)

// MinTableCellLength is the shortest cell (newlines excluded) whose embedded
// newlines are rewritten to <br>.
const MinTableCellLength = 5

// Sentinels that stand in for a fence nested inside a think block.
const (
	codeBlockMarker = "\u200b"
	codeBlockOpen   = "【CODE_BLOCK:"
	codeBlockClose  = "【/CODE_BLOCK】"
)

var (
	thinkTag    = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	nestedFence = regexp.MustCompile("(?s)```(\\w*)\\n?(.*?)```")
	openTag     = regexp.MustCompile(`<(\w+)>`)

	// TableStart matches a header row followed by a delimiter row.
	TableStart = regexp.MustCompile(`(?m)^\|.*\|\s*\n\|[-:| ]+\|`)
	tableRow   = regexp.MustCompile(`\|[^|\n]*\|`)
)

// Apply runs every rewrite: think blocks, then non-standard tag unwrapping,
// then table newline normalization.
func Apply(md string) string {
	return TableNewlines(NonStandardTags(ThinkTags(md)))
}

// ThinkTags turns <think>…</think> into a ```think fence. Fences nested in
// the content are swapped for sentinel markers so they cannot close the
// outer fence early.
func ThinkTags(md string) string {
	return thinkTag.ReplaceAllStringFunc(md, func(match string) string {
		content := strings.TrimSpace(thinkTag.FindStringSubmatch(match)[1])
		content = nestedFence.ReplaceAllStringFunc(content, func(fence string) string {
			m := nestedFence.FindStringSubmatch(fence)
			return codeBlockMarker + codeBlockOpen + m[1] + "】\n" + m[2] + "\n" + codeBlockClose + codeBlockMarker
		})
		return "```think\n" + content + "\n```"
	})
}

var restoreFence = regexp.MustCompile("(?s)\u200b【CODE_BLOCK:(\\w*)】\n(.*?)\n【/CODE_BLOCK】\u200b")

// RestoreThinkFences undoes the sentinel markers ThinkTags inserts.
func RestoreThinkFences(s string) string {
	return restoreFence.ReplaceAllString(s, "```$1\n$2```")
}

// NonStandardTags unwraps <tag>…</tag> pairs whose tag is not standard
// HTML, keeping the inner content, until nothing changes.
func NonStandardTags(md string) string {
	for {
		next := unwrapOnce(md)
		if next == md {
			return md
		}
		md = next
	}
}

// unwrapOnce is one left-to-right pass. A standard pair is kept whole and
// scanning resumes after it, so custom tags nested inside it survive.
func unwrapOnce(s string) string {
	var b strings.Builder
	pos, copied := 0, 0
	for pos < len(s) {
		loc := openTag.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			break
		}
		start, openEnd := pos+loc[0], pos+loc[1]
		name := s[pos+loc[2] : pos+loc[3]]
		closeTag := "</" + name + ">"
		ci := strings.Index(s[openEnd:], closeTag)
		if ci < 0 {
			pos = start + 1
			continue
		}
		end := openEnd + ci + len(closeTag)
		if !htmlx.IsStandardTag(name) {
			b.WriteString(s[copied:start])
			b.WriteString(s[openEnd : openEnd+ci])
			copied = end
		}
		pos = end
	}
	if copied == 0 {
		return s
	}
	b.WriteString(s[copied:])
	return b.String()
}

// TableNewlines normalizes the blank lines after table rows and rewrites
// newlines inside long cells to <br> so a streamed cell never splits rows.
func TableNewlines(md string) string {
	if !TableStart.MatchString(md) {
		return md
	}
	parts := strings.Split(md, "\n\n")
	for i, part := range parts {
		if strings.Contains(part, "```") {
			continue
		}
		if loc := TableStart.FindStringIndex(part); loc != nil {
			parts[i] = part[:loc[0]] + breakLongCells(part[loc[0]:])
		}
	}
	md = strings.Join(parts, "\n\n")
	return collapseNewlineRuns(padSingleNewlines(md))
}

// breakLongCells rewrites the newlines of every cell between two unescaped
// pipes to <br> when the cell holds at least MinTableCellLength runes.
func breakLongCells(table string) string {
	var b strings.Builder
	last := -1
	for i := 0; i < len(table); i++ {
		if table[i] != '|' || (i > 0 && table[i-1] == '\\') {
			continue
		}
		if last < 0 {
			b.WriteString(table[:i])
		} else {
			cell := table[last+1 : i]
			if strings.Contains(cell, "\n") && utf8.RuneCountInString(strings.ReplaceAll(cell, "\n", "")) >= MinTableCellLength {
				cell = strings.ReplaceAll(cell, "\n", "<br>")
			}
			b.WriteString(cell)
		}
		b.WriteByte('|')
		last = i
	}
	if last < 0 {
		return table
	}
	b.WriteString(table[last+1:])
	return b.String()
}

// padSingleNewlines turns a row followed by exactly one newline and then a
// non-table line into a row followed by a blank line. A row ending the input
// is left alone so the rewrite stays idempotent.
func padSingleNewlines(s string) string {
	var b strings.Builder
	pos, copied := 0, 0
	for pos < len(s) {
		loc := tableRow.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end >= len(s) || s[end] != '\n' {
			pos = start + 1
			continue
		}
		after := end + 1
		if after >= len(s) || s[after] == '\n' || s[after] == '|' {
			pos = start + 1
			continue
		}
		b.WriteString(s[copied:end])
		b.WriteString("\n\n")
		copied, pos = after, after
	}
	if copied == 0 {
		return s
	}
	b.WriteString(s[copied:])
	return b.String()
}

// collapseNewlineRuns shrinks three or more newlines after a row to two,
// unless a table row follows, in which case one newline fewer is consumed.
func collapseNewlineRuns(s string) string {
	var b strings.Builder
	pos, copied := 0, 0
	for pos < len(s) {
		loc := tableRow.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		n := 0
		for end+n < len(s) && s[end+n] == '\n' {
			n++
		}
		if n >= 3 && end+n < len(s) && s[end+n] == '|' {
			n--
		}
		if n < 3 {
			pos = start + 1
			continue
		}
		b.WriteString(s[copied:end])
		b.WriteString("\n\n")
		copied, pos = end+n, end+n
	}
	if copied == 0 {
		return s
	}
	b.WriteString(s[copied:])
	return b.String()
}
