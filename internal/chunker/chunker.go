// Package chunker splits Markdown into the blocks the parse cache works
// on. Blocks break at blank lines, except inside fences, HTML comments and
// paired HTML tags, and except where a comment directive or a table would
// be cut off from what follows.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Config controls block splitting.
type Config struct {
	MinBlock int // Blocks shorter than this many characters are merged.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MinBlock: 100}
}

// Block is one cacheable slice of a document.
type Block struct {
	Text string
	// Blank is the number of blank lines between the previous block and
	// this one.
	Blank int
}

// Blocks splits md and merges undersized blocks.
func Blocks(md string, cfg Config) []Block {
	if cfg.MinBlock <= 0 {
		cfg.MinBlock = 100
	}
	return Merge(Split(md), cfg.MinBlock)
}

// voidElements never take a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
}

// Split breaks md at unprotected blank lines. Blocks are trimmed and
// empty blocks are dropped.
func Split(md string) []Block {
	var blocks []Block
	var cur strings.Builder
	blank := 0
	fence := ""
	openTag := ""

	emit := func(nextBlank int) {
		if text := strings.TrimSpace(cur.String()); text != "" {
			blocks = append(blocks, Block{Text: text, Blank: blank})
			blank = nextBlank
		}
		cur.Reset()
	}

	i := 0
	for i < len(md) {
		lineStart := i == 0 || md[i-1] == '\n'

		if fence != "" {
			if lineStart && strings.HasPrefix(strings.TrimLeft(md[i:], " "), fence) {
				indent := len(md[i:]) - len(strings.TrimLeft(md[i:], " "))
				cur.WriteString(md[i : i+indent+len(fence)])
				i += indent + len(fence)
				fence = ""
				continue
			}
			cur.WriteByte(md[i])
			i++
			continue
		}

		if openTag == "" && lineStart {
			if f := fenceAt(md, i); f != "" {
				fence = f
				cur.WriteString(md[i : i+len(f)])
				i += len(f)
				continue
			}
		}

		if openTag == "" && strings.HasPrefix(md[i:], "<!--") {
			if end := strings.Index(md[i+4:], "-->"); end >= 0 {
				stop := i + 4 + end + 3
				cur.WriteString(md[i:stop])
				i = stop
				continue
			}
		}

		if md[i] == '<' {
			if openTag == "" {
				if name, end, selfClosing := tagAt(md, i); name != "" {
					if !selfClosing && !voidElements[name] {
						openTag = name
					}
					cur.WriteString(md[i:end])
					i = end
					continue
				}
			} else if end := closingTagEnd(md, i, openTag); end > 0 {
				cur.WriteString(md[i:end])
				i = end
				openTag = ""
				continue
			}
		}

		if openTag == "" && strings.HasPrefix(md[i:], "\n\n") {
			n := 0
			for i+n < len(md) && md[i+n] == '\n' {
				n++
			}
			if protected(md, i+n, cur.String()) {
				cur.WriteString(md[i : i+n])
				i += n
				continue
			}
			emit(n - 1)
			i += n
			continue
		}

		cur.WriteByte(md[i])
		i++
	}
	emit(0)
	return blocks
}

// fenceAt returns the ``` or ~~~ run opening a fence at i, allowing up to
// three spaces of indentation.
func fenceAt(md string, i int) string {
	j := i
	for j < len(md) && j-i < 3 && md[j] == ' ' {
		j++
	}
	if j >= len(md) || (md[j] != '`' && md[j] != '~') {
		return ""
	}
	c := md[j]
	k := j
	for k < len(md) && md[k] == c {
		k++
	}
	if k-j < 3 {
		return ""
	}
	return md[j:k]
}

// tagAt parses an opening tag at i and returns its lower-cased name and
// the offset just past it. Quoted attribute values may contain '>'.
func tagAt(md string, i int) (name string, end int, selfClosing bool) {
	j := i + 1
	if j >= len(md) || !isLetter(md[j]) {
		return "", 0, false
	}
	for j < len(md) && (isLetter(md[j]) || isDigit(md[j]) || md[j] == '-') {
		j++
	}
	name = strings.ToLower(md[i+1 : j])
	if j < len(md) && md[j] != '>' && md[j] != '/' && md[j] != ' ' && md[j] != '\t' && md[j] != '\n' {
		return "", 0, false
	}
	var quote byte
	for ; j < len(md); j++ {
		c := md[j]
		if quote != 0 {
			if c == quote && md[j-1] != '\\' {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return name, j + 1, false
		case c == '/' && j+1 < len(md) && md[j+1] == '>':
			return name, j + 2, true
		}
	}
	return "", 0, false
}

// closingTagEnd returns the offset past `</name>` at i, or 0.
func closingTagEnd(md string, i int, name string) int {
	prefix := "</" + name
	if len(md) < i+len(prefix) || !strings.EqualFold(md[i:i+len(prefix)], prefix) {
		return 0
	}
	j := i + len(prefix)
	for j < len(md) && (md[j] == ' ' || md[j] == '\t' || md[j] == '\n') {
		j++
	}
	if j < len(md) && md[j] == '>' {
		return j + 1
	}
	return 0
}

// protected reports whether the blank lines before next must stay inside
// the current block: after a comment, whose directive configures what
// follows, between table rows, or inside a loose list.
func protected(md string, next int, current string) bool {
	trimmed := strings.TrimSpace(current)
	if strings.HasSuffix(trimmed, "-->") && strings.Contains(trimmed, "<!--") {
		return true
	}
	if next < len(md) && continuesList(md[next:], current) {
		return true
	}
	if next >= len(md) || md[next] != '|' {
		return false
	}
	lines := strings.Split(current, "\n")
	for k := len(lines) - 1; k >= 0 && k >= len(lines)-5; k-- {
		line := strings.TrimSpace(lines[k])
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			return true
		}
	}
	return false
}

var listMarker = regexp.MustCompile(`^([-*+]|\d{1,9}[.)])([ \t]|$)`)

// continuesList reports whether rest, the text after a blank line, is an
// indented continuation or another item of a list that current ends in.
func continuesList(rest, current string) bool {
	line, _, _ := strings.Cut(rest, "\n")
	if !isIndented(line) && !listMarker.MatchString(line) {
		return false
	}
	return endsInList(current)
}

// endsInList walks the blank-line separated groups of current from the
// end. A group with an unindented list marker is in a list; a group of
// indented lines defers to the group before it.
func endsInList(current string) bool {
	groups := strings.Split(current, "\n\n")
	for g := len(groups) - 1; g >= 0; g-- {
		indented := true
		for _, line := range strings.Split(groups[g], "\n") {
			if strings.TrimSpace(line) == "" || isIndented(line) {
				continue
			}
			if listMarker.MatchString(line) {
				return true
			}
			indented = false
		}
		if !indented {
			return false
		}
	}
	return false
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// Merge joins blocks shorter than min characters onto the blocks after
// them. A short tail is joined onto the block before it.
func Merge(blocks []Block, min int) []Block {
	var out []Block
	var pending *Block
	for _, b := range blocks {
		if pending == nil {
			b := b
			pending = &b
		} else {
			joined := join(*pending, b)
			pending = &joined
		}
		if utf8.RuneCountInString(pending.Text) >= min {
			out = append(out, *pending)
			pending = nil
		}
	}
	if pending != nil {
		if len(out) == 0 {
			out = append(out, *pending)
		} else {
			out[len(out)-1] = join(out[len(out)-1], *pending)
		}
	}
	return out
}

// join restores the blank lines that separated a and b.
func join(a, b Block) Block {
	return Block{Text: a.Text + strings.Repeat("\n", b.Blank+1) + b.Text, Blank: a.Blank}
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
