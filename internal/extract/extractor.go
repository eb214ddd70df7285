// Package extract provides text extraction from uploaded document formats.
package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedFormat is returned when the declared document type is not
// recognized. Extraction is never attempted for such documents.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor extracts plain text from uploaded documents.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the document from r and returns its text content based on the
// declared type (pdf, xml, json, csv, xlsx, docx). The document is processed
// entirely in memory; nothing is written to disk. declaredType is
// case-insensitive and may carry a leading dot (".pdf").
func (e *Extractor) Extract(r io.Reader, declaredType string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return e.ExtractBytes(content, declaredType)
}

// ExtractBytes extracts text from content based on the declared type.
func (e *Extractor) ExtractBytes(content []byte, declaredType string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(declaredType, ".")) {
	case "pdf":
		return extractPDF(content)
	case "xml":
		return extractXML(content)
	case "json":
		return extractJSON(content)
	case "csv":
		return extractCSV(content)
	case "xlsx":
		return extractExcel(content)
	case "docx":
		return extractDOCX(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, declaredType)
	}
}
