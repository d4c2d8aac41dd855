package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// PDFParser extracts page text with ledongthuc/pdf and tables with tabula's
// geometric detector. Both passes run concurrently over the same bytes.
type PDFParser struct {
	// SkipTables disables table detection (text-only ingest).
	SkipTables bool
}

// NewPDFParser returns a PDF parser with table detection enabled.
func NewPDFParser() *PDFParser { return &PDFParser{} }

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, src Source) (*ParseResult, error) {
	data, err := readSource(src)
	if err != nil {
		return nil, err
	}

	var (
		pages  []string
		tables []Table
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pages, err = pdfPageTexts(data)
		return err
	})
	if !p.SkipTables {
		g.Go(func() error {
			found, err := detectTables(gctx, data)
			if err != nil {
				// Text extraction still succeeds; a PDF tabula cannot read
				// simply contributes no tables.
				slog.Warn("parser: table detection failed", "source", src.Name, "error", err)
				return nil
			}
			tables = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sections []Section
	for i, pageText := range pages {
		trimmed := strings.TrimSpace(pageText)
		if trimmed == "" {
			continue
		}
		sections = append(sections, splitPageIntoSections(trimmed, i+1)...)
	}

	slog.Debug("parser: pdf parsed",
		"source", src.Name, "pages", len(pages), "sections", len(sections), "tables", len(tables))

	return &ParseResult{
		Text:     joinPages(pages),
		Sections: sections,
		Tables:   tables,
		Pages:    len(pages),
		Metadata: map[string]string{"format": "pdf"},
	}, nil
}

// joinPages concatenates page texts, each followed by a newline. Pages
// with no text contribute nothing.
func joinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		if p == "" {
			continue
		}
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String()
}

// pdfPageTexts returns the plain text of every page. Pages that fail to
// extract yield an empty string so page numbering stays aligned.
func pdfPageTexts(data []byte) (pages []string, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("opening PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	total := reader.NumPage()
	pages = make([]string, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("parser: skipping page", "page", i, "error", err)
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}
