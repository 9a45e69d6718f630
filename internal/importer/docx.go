package importer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXImporter handles .docx files. Heading styles become ATX headings,
// bold, italic and struck runs keep their marks, and tables become GFM
// tables with the first row as header.
type DOCXImporter struct{}

func (p *DOCXImporter) Import(r io.Reader, filename string) (string, error) {
	// go-docx needs a ReaderAt and the size.
	src, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var b builder
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(it, true)
			if level := docxHeadingLevel(it); level > 0 {
				b.heading(level, docxParagraphText(it, false))
			} else {
				b.paragraph(text)
			}
		case *docx.Table:
			var rows [][]string
			for _, tr := range it.TableRows {
				var row []string
				for _, tc := range tr.TableCells {
					var parts []string
					for _, para := range tc.Paragraphs {
						if t := docxParagraphText(para, true); t != "" {
							parts = append(parts, t)
						}
					}
					row = append(row, strings.Join(parts, "\n"))
				}
				rows = append(rows, row)
			}
			if len(rows) > 0 {
				b.table(rows[0], rows[1:])
			}
		}
	}
	return b.String(), nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if n, ok := strings.CutPrefix(style, "heading"); ok && len(n) == 1 && n[0] >= '1' && n[0] <= '6' {
		return int(n[0] - '0')
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph, marks bool) string {
	var buf strings.Builder
	for _, child := range para.Children {
		var run *docx.Run
		switch c := child.(type) {
		case *docx.Run:
			run = c
		case *docx.Hyperlink:
			run = &c.Run
		default:
			continue
		}
		var text strings.Builder
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				text.WriteString(t.Text)
			}
		}
		s := text.String()
		if marks && strings.TrimSpace(s) != "" && run.RunProperties != nil {
			rp := run.RunProperties
			if rp.Strike != nil && rp.Strike.Val != "false" && rp.Strike.Val != "0" {
				s = "~~" + s + "~~"
			}
			if rp.Italic != nil {
				s = "*" + s + "*"
			}
			if rp.Bold != nil {
				s = "**" + s + "**"
			}
		}
		buf.WriteString(s)
	}
	return strings.TrimSpace(buf.String())
}
