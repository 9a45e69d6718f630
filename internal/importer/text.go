package importer

import (
	"bufio"
	"io"
	"strings"
)

// TextImporter handles plain text files. Blank lines separate paragraphs.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var b builder
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			b.paragraph(current.String())
			current.Reset()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(escapeLineStart(line))
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	b.paragraph(current.String())

	return b.String(), nil
}

// escapeLineStart keeps a plain line from being read as a heading, quote,
// list item or table row.
func escapeLineStart(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if trimmed == "" {
		return line
	}
	switch trimmed[0] {
	case '#', '>', '|':
		return `\` + trimmed
	case '-', '*', '+':
		if len(trimmed) > 1 && trimmed[1] == ' ' {
			return `\` + trimmed
		}
	}
	return line
}
