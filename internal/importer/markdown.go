package importer

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownImporter passes Markdown through with line endings normalized.
type MarkdownImporter struct{}

func (p *MarkdownImporter) Import(r io.Reader, filename string) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read markdown: %w", err)
	}
	s := strings.ReplaceAll(string(src), "\r\n", "\n")
	return strings.TrimPrefix(s, "\ufeff"), nil
}

// builder accumulates Markdown blocks separated by blank lines.
type builder struct {
	blocks []string
}

func (b *builder) heading(level int, text string) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return
	}
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	b.blocks = append(b.blocks, strings.Repeat("#", level)+" "+text)
}

func (b *builder) paragraph(text string) {
	if text = strings.TrimSpace(text); text != "" {
		b.blocks = append(b.blocks, text)
	}
}

func (b *builder) raw(block string) {
	if strings.TrimSpace(block) != "" {
		b.blocks = append(b.blocks, block)
	}
}

// table writes a GFM table. Short rows are padded to the header width.
func (b *builder) table(header []string, rows [][]string) {
	if len(header) == 0 {
		return
	}
	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i := range header {
			cell := ""
			if i < len(cells) {
				cell = escapeCell(cells[i])
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
	}
	writeRow(header)
	sb.WriteString("|")
	for range header {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	b.blocks = append(b.blocks, strings.TrimSuffix(sb.String(), "\n"))
}

func (b *builder) String() string {
	if len(b.blocks) == 0 {
		return ""
	}
	return strings.Join(b.blocks, "\n\n") + "\n"
}

func escapeCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}
