package parser

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxParallelSources bounds how many streams are parsed at once.
const maxParallelSources = 4

// Registry maps file formats to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns a registry with the built-in PDF, spreadsheet and
// plain-text parsers.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	for _, p := range []Parser{NewPDFParser(), &XLSXParser{}, &TextParser{}} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

// Get returns the parser for a format.
func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return p, nil
}

// Register adds or replaces the parser for a format.
func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}

// Parse dispatches one source to the parser for its format.
func (r *Registry) Parse(ctx context.Context, src Source) (*ParseResult, error) {
	p, err := r.Get(src.Format())
	if err != nil {
		return nil, err
	}
	res, err := p.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", src.Name, err)
	}
	return res, nil
}

// ParseAll parses sources concurrently. Results are returned in source
// order; the first failure cancels the rest.
func (r *Registry) ParseAll(ctx context.Context, sources []Source) ([]*ParseResult, error) {
	results := make([]*ParseResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSources)
	for i, src := range sources {
		g.Go(func() error {
			res, err := r.Parse(gctx, src)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Extract parses every source and concatenates text and tables in source
// order.
func (r *Registry) Extract(ctx context.Context, sources []Source) (*ExtractedDocument, error) {
	results, err := r.ParseAll(ctx, sources)
	if err != nil {
		return nil, err
	}
	return Merge(results), nil
}

// Merge combines parse results into one ExtractedDocument.
func Merge(results []*ParseResult) *ExtractedDocument {
	var text strings.Builder
	doc := &ExtractedDocument{}
	for _, res := range results {
		if res == nil {
			continue
		}
		text.WriteString(res.Text)
		doc.Tables = append(doc.Tables, res.Tables...)
	}
	doc.Text = text.String()
	return doc
}
