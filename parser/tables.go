package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"
)

// detectTables runs tabula's geometric detector over every page. tabula
// reads from an *os.File, so the bytes are spooled to a temp file first.
func detectTables(ctx context.Context, data []byte) ([]Table, error) {
	f, err := os.CreateTemp("", "scholar-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return nil, fmt.Errorf("spooling PDF: %w", err)
	}

	r, err := reader.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening PDF for tables: %w", err)
	}

	count, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}

	detector := tables.NewGeometricDetector()
	var out []Table
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := r.GetPage(i)
		if err != nil {
			slog.Debug("parser: skipping page for tables", "page", i+1, "error", err)
			continue
		}
		width, _ := page.Width()
		height, _ := page.Height()

		fragments, err := r.ExtractTextFragments(page)
		if err != nil || len(fragments) == 0 {
			continue
		}
		out = append(out, pageTables(detector, fragments, width, height, i+1)...)
	}
	return out, nil
}

// pageTables runs the detector over one page's text fragments.
func pageTables(detector tables.Detector, fragments []text.TextFragment, width, height float64, pageNum int) []Table {
	mp := model.NewPage(width, height)
	mp.Number = pageNum
	mp.RawText = toModelFragments(fragments)

	found, err := detector.Detect(mp)
	if err != nil {
		slog.Debug("parser: table detection failed on page", "page", pageNum, "error", err)
		return nil
	}
	return convertTables(found, pageNum)
}

// convertTables keeps detected tables with more than one row. Ragged tables
// are logged and dropped; they never fail the page.
func convertTables(found []*model.Table, pageNum int) []Table {
	var out []Table
	for _, mt := range found {
		if mt == nil || len(mt.Rows) <= 1 {
			continue
		}
		t, err := NewTable(cellRows(mt))
		if err != nil {
			if errors.Is(err, ErrMalformedTable) {
				slog.Debug("parser: dropping table", "page", pageNum, "error", err)
				continue
			}
			slog.Warn("parser: table conversion failed", "page", pageNum, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out
}

func cellRows(mt *model.Table) [][]string {
	raw := make([][]string, len(mt.Rows))
	for i, row := range mt.Rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.TrimSpace(c.Text)
		}
		raw[i] = cells
	}
	return raw
}

func toModelFragments(frags []text.TextFragment) []model.TextFragment {
	out := make([]model.TextFragment, 0, len(frags))
	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		out = append(out, model.TextFragment{
			Text: f.Text,
			BBox: model.BBox{
				X:      f.X,
				Y:      f.Y,
				Width:  f.Width,
				Height: f.Height,
			},
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return out
}
