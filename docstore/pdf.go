// Package docstore extracts plain text from process documents on disk.
package docstore

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFReader extracts the text of a fixed PDF document.
type PDFReader struct {
	path string
}

// NewPDFReader points at the document to serve.
func NewPDFReader(path string) *PDFReader {
	return &PDFReader{path: path}
}

// Path returns the configured document path.
func (r *PDFReader) Path() string { return r.path }

// Text returns the document's plain text.
func (r *PDFReader) Text() (string, error) {
	f, doc, err := pdf.Open(r.path)
	if err != nil {
		return "", fmt.Errorf("docstore: open %s: %w", r.path, err)
	}
	defer f.Close()

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("docstore: extract text from %s: %w", r.path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("docstore: read text from %s: %w", r.path, err)
	}
	return buf.String(), nil
}
