package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/bbiangul/go-scholar/numeric"
	"github.com/bbiangul/go-scholar/parser"
)

const noDataReason = "No suitable numerical data found for visualization\nTry uploading a PDF with tables or statistical data"

// Select picks the chart for a document: the first table when it has a
// numeric column, else the percentages in the text when there are at least
// two, else the empty chart.
func Select(doc *parser.ExtractedDocument) Spec {
	if doc == nil {
		return EmptyChart{Reason: noDataReason}
	}

	if len(doc.Tables) > 0 {
		if tc, ok := selectTable(doc.Tables[0]); ok {
			return tc
		}
	}

	pcts := numeric.ExtractPercentages(doc.Text)
	if len(pcts) >= 2 {
		shown := append([]float64(nil), pcts[:min(len(pcts), MaxPercentages)]...)
		return PercentageChart{Values: shown, Total: len(pcts)}
	}

	return EmptyChart{Reason: noDataReason}
}

// selectTable reports false when no column has a numeric cell.
func selectTable(t parser.Table) (TableChart, bool) {
	var numericCols []int
	for c := 0; c < t.NumCols(); c++ {
		for _, cell := range t.Column(c) {
			if _, ok := coerce(cell); ok {
				numericCols = append(numericCols, c)
				break
			}
		}
	}
	if len(numericCols) == 0 {
		return TableChart{}, false
	}

	names := make([]string, len(numericCols))
	for i, c := range numericCols {
		names[i] = t.Header[c]
	}

	valueCol := numericCols[0]
	values := make([]*float64, t.NumRows())
	for r, cell := range t.Column(valueCol) {
		if v, ok := coerce(cell); ok {
			values[r] = &v
		}
	}

	return TableChart{
		Table:          t,
		CategoryColumn: 0,
		ValueColumn:    valueCol,
		NumericColumns: names,
		Values:         values,
		RowCount:       t.NumRows(),
	}, true
}

// coerce parses a trimmed cell as a finite decimal float. Hex literals,
// which strconv accepts, are not numbers in a data table.
func coerce(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	if digits := strings.TrimLeft(s, "+-"); len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
