package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when no parser handles a source's format.
	ErrUnsupportedFormat = errors.New("parser: unsupported format")

	// ErrMalformedTable is returned by NewTable for ragged or too-short input.
	ErrMalformedTable = errors.New("parser: malformed table")
)

// Source is one uploaded document stream. Name is used for format detection
// and logging only.
type Source struct {
	Name   string
	Reader io.ReadSeeker
}

// Format returns the lower-cased file extension without the dot. Streams
// without an extension are treated as PDF.
func (s Source) Format() string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(s.Name)), ".")
	if ext == "" {
		return "pdf"
	}
	return ext
}

// readSource rewinds the stream and reads it fully.
func readSource(s Source) ([]byte, error) {
	if s.Reader == nil {
		return nil, fmt.Errorf("source %q has no reader", s.Name)
	}
	if _, err := s.Reader.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding %s: %w", s.Name, err)
	}
	data, err := io.ReadAll(s.Reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Name, err)
	}
	return data, nil
}

// ParseResult is what a parser produces from one document stream.
type ParseResult struct {
	Text     string    // Raw text, one trailing newline per page
	Sections []Section // Ordered sections for chunking
	Tables   []Table   // Tables in page order, then detection order
	Pages    int
	Metadata map[string]string
}

// Section represents a logical section of a parsed document.
type Section struct {
	Heading    string
	Content    string
	Level      int // Heading level (1=top, 2=sub, etc.)
	PageNumber int
	Type       string // "abstract", "methods", "results", "references", "table", "section"
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, src Source) (*ParseResult, error)
	SupportedFormats() []string
}
