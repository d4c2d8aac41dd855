package chart

import (
	"fmt"

	"github.com/bbiangul/go-scholar/parser"
)

// Chart titles and axis labels.
const (
	TableTitle       = "Data from Research Paper"
	TableStaticTitle = "Extracted Data Visualization"
	TooLargeTitle    = "Data Available (Too Large to Display)"
	TooLargeMessage  = "Too many data points to display"
	PercentageTitle  = "Extracted Percentages from Text"
	EmptyTitle       = "Data Extraction Result"
	ErrorTitle       = "Processing Error"

	pointsLabel     = "Data Points"
	valuesLabel     = "Values"
	percentageLabel = "Percentage (%)"
)

// Selection is the rendered outcome of chart selection. Every variant fills
// all four fields.
type Selection struct {
	Spec        Spec
	Static      *StaticChart
	Interactive *Figure
	Summary     string
}

// Build selects and renders the chart for doc.
func Build(doc *parser.ExtractedDocument) (*Selection, error) {
	return Render(Select(doc))
}

type rendered struct {
	static *StaticChart
	fig    *Figure
	err    error
}

// Render draws both forms of a selected chart.
func Render(spec Spec) (*Selection, error) {
	r := Match(spec, renderTable, renderPercentages, renderEmpty)
	if r.err != nil {
		return nil, fmt.Errorf("rendering %s chart: %w", Kind(spec), r.err)
	}
	return &Selection{
		Spec:        spec,
		Static:      r.static,
		Interactive: r.fig,
		Summary:     Summary(spec),
	}, nil
}

func renderTable(t TableChart) rendered {
	var (
		static *StaticChart
		err    error
	)
	if t.RowCount <= MaxStaticRows {
		static, err = BarChart(TableStaticTitle, pointsLabel, valuesLabel, t.FilledValues())
	} else {
		static, err = MessageChart(TooLargeTitle, TooLargeMessage)
	}

	categories := t.Table.Column(t.CategoryColumn)
	x := make([]any, len(categories))
	for i, c := range categories {
		x[i] = c
	}
	fig := barFigure(TableTitle,
		t.Table.Header[t.CategoryColumn], t.Table.Header[t.ValueColumn],
		x, t.Values)

	return rendered{static: static, fig: fig, err: err}
}

func renderPercentages(p PercentageChart) rendered {
	static, err := BarChart(PercentageTitle, pointsLabel, percentageLabel, p.Values)

	x := make([]any, len(p.Values))
	y := make([]*float64, len(p.Values))
	for i := range p.Values {
		x[i] = i
		y[i] = &p.Values[i]
	}
	fig := barFigure(PercentageTitle, pointsLabel, percentageLabel, x, y)

	return rendered{static: static, fig: fig, err: err}
}

func renderEmpty(e EmptyChart) rendered {
	static, err := MessageChart(EmptyTitle, e.Reason)
	return rendered{static: static, fig: messageFigure(EmptyTitle, e.Reason), err: err}
}

// ErrorCharts builds the chart pair shown when the insight pipeline fails.
// The static chart is returned even if its PNG could not be drawn.
func ErrorCharts(cause error) (*StaticChart, *Figure, error) {
	msg := fmt.Sprintf("Error processing PDF: %v\nPlease try with a different PDF file", cause)
	static, err := MessageChart(ErrorTitle, msg)
	return static, messageFigure(ErrorTitle, msg), err
}
