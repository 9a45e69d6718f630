package tokenizer

import (
	"sort"
	"strings"
)

// lineIndex maps byte offsets in the source to 1-based line numbers.
type lineIndex struct {
	starts []int
	lines  []string
}

func newLineIndex(src string) *lineIndex {
	idx := &lineIndex{starts: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx.starts = append(idx.starts, i+1)
		}
	}
	idx.lines = strings.Split(src, "\n")
	return idx
}

// line returns the 1-based line containing offset.
func (l *lineIndex) line(offset int) int {
	return sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset })
}

// column returns the 1-based column of offset.
func (l *lineIndex) column(offset int) int {
	ln := l.line(offset)
	return offset - l.starts[ln-1] + 1
}

// firstNonBlank returns the first line at or after from that holds anything
// other than whitespace, or from when none does.
func (l *lineIndex) firstNonBlank(from int) int {
	if from < 1 {
		from = 1
	}
	for ln := from; ln <= len(l.lines); ln++ {
		if strings.TrimSpace(l.lines[ln-1]) != "" {
			return ln
		}
	}
	return from
}

// frontmatter splits a leading `---` YAML block from src. The block's lines
// are blanked rather than removed so that line numbers stay stable.
func frontmatter(src string) (value string, endLine int, rest string, ok bool) {
	if !strings.HasPrefix(src, "---\n") && !strings.HasPrefix(src, "---\r\n") {
		return "", 0, src, false
	}
	lines := strings.Split(src, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r") != "---" {
			continue
		}
		body := lines[1:i]
		for j := range body {
			body[j] = strings.TrimRight(body[j], "\r")
		}
		value = strings.Join(body, "\n")
		blanked := make([]string, len(lines))
		copy(blanked[i+1:], lines[i+1:])
		return value, i + 1, strings.Join(blanked, "\n"), true
	}
	return "", 0, src, false
}

// fenceTracker follows ``` and ~~~ fences line by line to tell whether the
// source ends inside an open fence. goldmark closes such blocks silently.
type fenceTracker struct {
	char  byte
	width int
	open  bool
}

func (f *fenceTracker) feed(line string) {
	trimmed := strings.TrimLeft(line, " \t>")
	if !f.open {
		ch, n := fenceRun(trimmed)
		if n < 3 {
			return
		}
		if ch == '`' && strings.ContainsRune(trimmed[n:], '`') {
			return
		}
		f.char, f.width, f.open = ch, n, true
		return
	}
	ch, n := fenceRun(trimmed)
	if ch == f.char && n >= f.width && strings.TrimSpace(trimmed[n:]) == "" {
		f.open = false
	}
}

func fenceRun(s string) (byte, int) {
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return 0, 0
	}
	ch := s[0]
	n := 0
	for n < len(s) && s[n] == ch {
		n++
	}
	return ch, n
}

// openFenceAtEOF reports whether src ends inside an unclosed code fence.
func openFenceAtEOF(src string) bool {
	var f fenceTracker
	for _, line := range strings.Split(src, "\n") {
		f.feed(line)
	}
	return f.open
}
