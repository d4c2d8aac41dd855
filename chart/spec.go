// Package chart decides what to plot from an extracted document and renders
// the choice as a static PNG and an interactive Plotly figure.
package chart

import (
	"fmt"
	"strings"

	"github.com/bbiangul/go-scholar/parser"
)

const (
	// MaxStaticRows is the largest table drawn as bars in the static chart.
	MaxStaticRows = 20
	// MaxPercentages is how many percentage values are charted.
	MaxPercentages = 10

	// EmptySummary is the summary of the no-data chart.
	EmptySummary = "No suitable numerical data found in the document for visualization."
)

// Spec is the selected chart. It is one of TableChart, PercentageChart or
// EmptyChart; use Match to handle all three.
type Spec interface {
	isSpec()
}

// TableChart plots the first numeric column of a table against its first
// column.
type TableChart struct {
	Table          parser.Table
	CategoryColumn int        // always 0
	ValueColumn    int        // first qualifying numeric column
	NumericColumns []string   // headers of every qualifying column, in table order
	Values         []*float64 // coerced ValueColumn, nil where a cell is not a number
	RowCount       int
}

// PercentageChart plots percentages found in the document text.
type PercentageChart struct {
	Values []float64 // at most MaxPercentages
	Total  int       // percentages found before truncation
}

// EmptyChart is chosen when neither a table nor enough percentages exist.
type EmptyChart struct {
	Reason string
}

func (TableChart) isSpec()      {}
func (PercentageChart) isSpec() {}
func (EmptyChart) isSpec()      {}

// Match calls the function matching the concrete type of s.
func Match[T any](s Spec, table func(TableChart) T, pct func(PercentageChart) T, empty func(EmptyChart) T) T {
	switch v := s.(type) {
	case TableChart:
		return table(v)
	case PercentageChart:
		return pct(v)
	case EmptyChart:
		return empty(v)
	default:
		panic(fmt.Sprintf("chart: unknown spec %T", s))
	}
}

// Summary returns the one-line description handed to the narrative step.
func Summary(s Spec) string {
	return Match(s,
		func(t TableChart) string {
			return fmt.Sprintf("Extracted table with %d rows and %d columns. Numerical columns: %s",
				t.RowCount, t.Table.NumCols(), quotedList(t.NumericColumns))
		},
		func(p PercentageChart) string {
			return fmt.Sprintf("Extracted %d percentage values from text. Showing first %d.", p.Total, MaxPercentages)
		},
		func(EmptyChart) string { return EmptySummary },
	)
}

// quotedList renders names as a bracketed list of quoted strings, e.g.
// ['Score', 'SD']. A name holding a single quote and no double quote is
// wrapped in double quotes instead.
func quotedList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		n = strings.ReplaceAll(n, `\`, `\\`)
		if strings.Contains(n, "'") && !strings.Contains(n, `"`) {
			quoted[i] = `"` + n + `"`
			continue
		}
		quoted[i] = "'" + strings.ReplaceAll(n, "'", `\'`) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Kind names the variant, for logs and JSON.
func Kind(s Spec) string {
	return Match(s,
		func(TableChart) string { return "table" },
		func(PercentageChart) string { return "percentage" },
		func(EmptyChart) string { return "empty" },
	)
}

// FilledValues returns the value column with non-numbers replaced by zero.
func (t TableChart) FilledValues() []float64 {
	out := make([]float64, len(t.Values))
	for i, v := range t.Values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}
