package parser

import (
	"context"
	"fmt"
	"strings"
)

// Table is a rectangular block of cells. The first raw row is the header;
// every row has exactly len(Header) cells.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// NewTable builds a Table from raw rows, the first being the header. It
// rejects input with fewer than two rows, an empty header, or rows whose
// width differs from the header.
func NewTable(raw [][]string) (Table, error) {
	if len(raw) < 2 {
		return Table{}, fmt.Errorf("%w: %d rows, need at least 2", ErrMalformedTable, len(raw))
	}
	width := len(raw[0])
	if width == 0 {
		return Table{}, fmt.Errorf("%w: empty header", ErrMalformedTable)
	}

	t := Table{
		Header: append([]string(nil), raw[0]...),
		Rows:   make([][]string, 0, len(raw)-1),
	}
	for i, row := range raw[1:] {
		if len(row) != width {
			return Table{}, fmt.Errorf("%w: row %d has %d cells, header has %d",
				ErrMalformedTable, i+1, len(row), width)
		}
		t.Rows = append(t.Rows, append([]string(nil), row...))
	}
	return t, nil
}

// NumRows returns the number of data rows (header excluded).
func (t Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns.
func (t Table) NumCols() int { return len(t.Header) }

// Column returns the data cells of column i.
func (t Table) Column(i int) []string {
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// ExtractedDocument is the combined result of extracting every uploaded
// stream of one request. It is not modified after Extract returns.
type ExtractedDocument struct {
	Text   string  `json:"text"`
	Tables []Table `json:"tables"`
}

// HasContent reports whether any text or table was extracted.
func (d *ExtractedDocument) HasContent() bool {
	return strings.TrimSpace(d.Text) != "" || len(d.Tables) > 0
}

// Extract parses every source with the default registry and merges the
// results in source order.
func Extract(ctx context.Context, sources []Source) (*ExtractedDocument, error) {
	return NewRegistry().Extract(ctx, sources)
}
