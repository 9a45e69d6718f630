// Package importer converts office and web documents into Markdown so they
// can be fed through the parser.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Importer converts raw document bytes into Markdown.
type Importer interface {
	Import(r io.Reader, filename string) (string, error)
}

// SupportedExtensions lists file extensions that can be imported.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tune the importers ForFile hands out.
type Options struct {
	// PDFFallbackPdftotext retries text extraction with the pdftotext
	// binary when the Go PDF reader fails.
	PDFFallbackPdftotext bool
}

// ForFile returns the importer for a filename with default options.
func ForFile(filename string) (Importer, error) {
	return Options{PDFFallbackPdftotext: true}.ForFile(filename)
}

// ForFile returns the importer for a filename.
func (o Options) ForFile(filename string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextImporter{}, nil
	case ".md", ".markdown":
		return &MarkdownImporter{}, nil
	case ".csv":
		return &CSVImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".pdf":
		return &PDFImporter{FallbackPdftotext: o.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}
