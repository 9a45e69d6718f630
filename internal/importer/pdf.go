package importer

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFImporter handles PDF files. It tries the Go library first, then falls
// back to pdftotext if enabled. Multi-page documents get one heading per
// page.
type PDFImporter struct {
	FallbackPdftotext bool
}

func (p *PDFImporter) Import(r io.Reader, filename string) (string, error) {
	// Both readers want a file on disk.
	tmp, err := os.CreateTemp("", "mdschema-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return pagesMarkdown(splitPages(text)), nil
}

func pagesMarkdown(pages []string) string {
	var b builder
	multi := 0
	for _, page := range pages {
		if strings.TrimSpace(page) != "" {
			multi++
		}
	}
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		if multi > 1 {
			b.heading(2, fmt.Sprintf("Page %d", i+1))
		}
		for _, para := range strings.Split(strings.ReplaceAll(page, "\r\n", "\n"), "\n\n") {
			var lines []string
			for _, l := range strings.Split(para, "\n") {
				if l = strings.TrimSpace(l); l != "" {
					lines = append(lines, escapeLineStart(l))
				}
			}
			b.paragraph(strings.Join(lines, "\n"))
		}
	}
	return b.String()
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if i > 1 {
			buf.WriteString("\f")
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
