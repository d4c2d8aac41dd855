// Package insight turns uploaded papers into a chart, a one-line data
// summary, the numbers found near the start of the text and a short model
// written analysis.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/bbiangul/go-scholar/agents"
	"github.com/bbiangul/go-scholar/chart"
	"github.com/bbiangul/go-scholar/llm"
	"github.com/bbiangul/go-scholar/numeric"
	"github.com/bbiangul/go-scholar/parser"
)

const (
	// ChartType is the chart description sent with the data summary.
	ChartType = "Bar Chart/Data Visualization"
	// AnalysisFailed replaces the analysis when the pipeline fails.
	AnalysisFailed = "Unable to analyze due to processing error."
	// NumbersWindow is how many leading characters of text are scanned for
	// extracted_numbers.
	NumbersWindow = 2000

	errorKind = "error"
)

var errNoProvider = errors.New("insight: no language model configured")

// Bundle is the result of one visual insights request. It is always
// complete, including when the pipeline failed.
type Bundle struct {
	StaticChart      *chart.StaticChart `json:"static_chart"`
	InteractiveChart *chart.Figure      `json:"interactive_chart"`
	DataSummary      string             `json:"data_summary"`
	AIAnalysis       string             `json:"ai_analysis"`
	ExtractedNumbers []string           `json:"extracted_numbers"`
	TablesFound      int                `json:"tables_found"`
	ChartKind        string             `json:"chart_kind"`
	Error            string             `json:"error,omitempty"`
}

// Failed reports whether b is an error bundle.
func (b *Bundle) Failed() bool { return b.ChartKind == errorKind }

// Extractor turns sources into text and tables. *parser.Registry
// satisfies it.
type Extractor interface {
	Extract(ctx context.Context, sources []parser.Source) (*parser.ExtractedDocument, error)
}

// Assembler runs extraction, chart selection and analysis.
type Assembler struct {
	provider  llm.Provider
	extractor Extractor
	prompt    llm.Template
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithExtractor replaces the default parser registry.
func WithExtractor(e Extractor) Option {
	return func(a *Assembler) { a.extractor = e }
}

// WithPrompt replaces the analysis prompt. It must use {data_summary}
// and may use {chart_type}.
func WithPrompt(t llm.Template) Option {
	return func(a *Assembler) { a.prompt = t }
}

// New creates an Assembler that asks provider for the analysis.
func New(provider llm.Provider, opts ...Option) *Assembler {
	a := &Assembler{
		provider:  provider,
		extractor: parser.NewRegistry(),
		prompt:    agents.ChartAnalysisPrompt,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Generate extracts data from sources and builds the bundle. Failures at
// any stage, panics included, produce an error bundle instead of an error.
func (a *Assembler) Generate(ctx context.Context, sources []parser.Source) *Bundle {
	return a.guard(func() (*Bundle, error) {
		doc, err := a.extractor.Extract(ctx, sources)
		if err != nil {
			return nil, fmt.Errorf("extracting data: %w", err)
		}
		return a.assemble(ctx, doc)
	})
}

// FromDocument builds the bundle for an already extracted document.
func (a *Assembler) FromDocument(ctx context.Context, doc *parser.ExtractedDocument) *Bundle {
	return a.guard(func() (*Bundle, error) {
		return a.assemble(ctx, doc)
	})
}

func (a *Assembler) guard(run func() (*Bundle, error)) (b *Bundle) {
	defer func() {
		if r := recover(); r != nil {
			b = errorBundle(fmt.Errorf("%v", r))
		}
	}()

	b, err := run()
	if err != nil {
		return errorBundle(err)
	}
	return b
}

func (a *Assembler) assemble(ctx context.Context, doc *parser.ExtractedDocument) (*Bundle, error) {
	if a.provider == nil {
		return nil, errNoProvider
	}
	if doc == nil {
		doc = &parser.ExtractedDocument{}
	}

	sel, err := chart.Build(doc)
	if err != nil {
		return nil, err
	}

	analysis, err := a.prompt.Run(ctx, a.provider, map[string]string{
		"data_summary": sel.Summary,
		"chart_type":   ChartType,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing chart: %w", err)
	}

	b := &Bundle{
		StaticChart:      sel.Static,
		InteractiveChart: sel.Interactive,
		DataSummary:      sel.Summary,
		AIAnalysis:       analysis,
		ExtractedNumbers: numeric.Strings(numeric.Extract(head(doc.Text, NumbersWindow))),
		TablesFound:      len(doc.Tables),
		ChartKind:        chart.Kind(sel.Spec),
	}
	slog.Info("insight: bundle ready",
		"chart", b.ChartKind, "tables", b.TablesFound, "numbers", len(b.ExtractedNumbers))
	return b, nil
}

func errorBundle(cause error) *Bundle {
	slog.Warn("insight: pipeline failed", "error", cause)

	static, fig, err := chart.ErrorCharts(cause)
	if err != nil {
		slog.Warn("insight: drawing error chart", "error", err)
	}
	return &Bundle{
		StaticChart:      static,
		InteractiveChart: fig,
		DataSummary:      "Error: " + cause.Error(),
		AIAnalysis:       AnalysisFailed,
		ExtractedNumbers: []string{},
		ChartKind:        errorKind,
		Error:            cause.Error(),
	}
}

// head returns the first n characters of s.
func head(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
