package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser turns every worksheet into one table, padding short rows to the
// widest row so the table stays rectangular.
type XLSXParser struct{}

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx", "xlsm"} }

func (p *XLSXParser) Parse(ctx context.Context, src Source) (*ParseResult, error) {
	data, err := readSource(src)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	res := &ParseResult{Metadata: map[string]string{"format": "xlsx"}}
	var text strings.Builder

	for i, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		var content strings.Builder
		for _, row := range rows {
			content.WriteString(strings.Join(row, "\t"))
			content.WriteString("\n")
		}
		text.WriteString(content.String())

		res.Sections = append(res.Sections, Section{
			Heading:    sheet,
			Content:    strings.TrimSpace(content.String()),
			Level:      1,
			PageNumber: i + 1,
			Type:       "table",
		})

		if len(rows) <= 1 {
			continue
		}
		t, err := NewTable(padRows(rows))
		if err != nil {
			slog.Debug("parser: dropping sheet table", "sheet", sheet, "error", err)
			continue
		}
		res.Tables = append(res.Tables, t)
	}

	if len(res.Sections) == 0 {
		return nil, fmt.Errorf("no data found in XLSX")
	}
	res.Text = text.String()
	res.Pages = len(res.Sections)
	return res, nil
}

// padRows returns a copy of rows where every row has the width of the
// widest one. excelize trims trailing empty cells.
func padRows(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		padded := make([]string, width)
		copy(padded, r)
		out[i] = padded
	}
	return out
}
