package parser

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"
	"github.com/xuri/excelize/v2"
)

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestRegistryBuiltInParsers(t *testing.T) {
	reg := NewRegistry()

	formats := []struct {
		format     string
		wantParser string
	}{
		{"pdf", "*parser.PDFParser"},
		{"xlsx", "*parser.XLSXParser"},
		{"txt", "*parser.TextParser"},
		{"md", "*parser.TextParser"},
	}

	for _, tt := range formats {
		t.Run(tt.format, func(t *testing.T) {
			p, err := reg.Get(tt.format)
			if err != nil {
				t.Fatalf("Get(%q) returned error: %v", tt.format, err)
			}
			if got := reflect.TypeOf(p).String(); got != tt.wantParser {
				t.Errorf("Get(%q) = %s, want %s", tt.format, got, tt.wantParser)
			}
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	reg := NewRegistry()

	for _, f := range []string{"docx", "csv", "json", "html", ""} {
		t.Run("format_"+f, func(t *testing.T) {
			p, err := reg.Get(f)
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("Get(%q) error = %v, want ErrUnsupportedFormat", f, err)
			}
			if p != nil {
				t.Errorf("Get(%q) expected nil parser", f)
			}
		})
	}
}

type fakeParser struct {
	res *ParseResult
}

func (f *fakeParser) SupportedFormats() []string { return []string{"csv"} }

func (f *fakeParser) Parse(ctx context.Context, src Source) (*ParseResult, error) {
	return f.res, nil
}

func TestRegistryCustomParser(t *testing.T) {
	reg := NewRegistry()
	table, err := NewTable([][]string{{"a", "b"}, {"1", "2"}})
	if err != nil {
		t.Fatal(err)
	}
	reg.Register("csv", &fakeParser{res: &ParseResult{Text: "csv\n", Tables: []Table{table}}})

	doc, err := reg.Extract(context.Background(), []Source{
		{Name: "notes.txt", Reader: strings.NewReader("first")},
		{Name: "data.csv", Reader: strings.NewReader("ignored")},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Text != "first\ncsv\n" {
		t.Errorf("Text = %q", doc.Text)
	}
	if len(doc.Tables) != 1 || !reflect.DeepEqual(doc.Tables[0], table) {
		t.Errorf("Tables = %v", doc.Tables)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract(context.Background(), []Source{{Name: "paper.docx", Reader: strings.NewReader("x")}})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractKeepsSourceOrder(t *testing.T) {
	var sources []Source
	var want strings.Builder
	for _, word := range []string{"one", "two", "three", "four", "five", "six"} {
		sources = append(sources, Source{Name: word + ".txt", Reader: strings.NewReader(word)})
		want.WriteString(word + "\n")
	}

	doc, err := Extract(context.Background(), sources)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Text != want.String() {
		t.Errorf("Text = %q, want %q", doc.Text, want.String())
	}
}

func TestExtractEmpty(t *testing.T) {
	doc, err := Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract(nil): %v", err)
	}
	if doc.HasContent() {
		t.Errorf("expected empty document, got %+v", doc)
	}
}

func TestSourceFormat(t *testing.T) {
	tests := map[string]string{
		"paper.PDF":    "pdf",
		"data.xlsx":    "xlsx",
		"notes.txt":    "txt",
		"upload":       "pdf",
		"dir/a.b.Xlsx": "xlsx",
	}
	for name, want := range tests {
		if got := (Source{Name: name}).Format(); got != want {
			t.Errorf("Format(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestReadSourceRewinds(t *testing.T) {
	r := strings.NewReader("hello")
	if _, err := io.ReadAll(r); err != nil {
		t.Fatal(err)
	}
	data, err := readSource(Source{Name: "x", Reader: r})
	if err != nil {
		t.Fatalf("readSource: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("readSource after EOF = %q, want hello", data)
	}

	if _, err := readSource(Source{Name: "nil"}); err == nil {
		t.Error("expected error for nil reader")
	}
}

// ---------------------------------------------------------------------------
// Table tests
// ---------------------------------------------------------------------------

func TestNewTable(t *testing.T) {
	tests := []struct {
		name    string
		raw     [][]string
		wantErr bool
	}{
		{"valid", [][]string{{"Group", "Score"}, {"A", "1"}, {"B", "2"}}, false},
		{"header only", [][]string{{"Group", "Score"}}, true},
		{"empty", nil, true},
		{"empty header", [][]string{{}, {}}, true},
		{"ragged", [][]string{{"Group", "Score"}, {"A"}}, true},
		{"duplicate header names", [][]string{{"x", "x"}, {"1", "2"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := NewTable(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedTable) {
					t.Errorf("expected ErrMalformedTable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tbl.NumRows() != len(tt.raw)-1 || tbl.NumCols() != len(tt.raw[0]) {
				t.Errorf("shape = %dx%d", tbl.NumRows(), tbl.NumCols())
			}
		})
	}
}

func TestNewTableCopiesInput(t *testing.T) {
	raw := [][]string{{"h1", "h2"}, {"a", "b"}}
	tbl, err := NewTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	raw[0][0] = "changed"
	raw[1][1] = "changed"
	if tbl.Header[0] != "h1" || tbl.Rows[0][1] != "b" {
		t.Errorf("table shares storage with input: %+v", tbl)
	}
	if got := tbl.Column(1); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Column(1) = %v", got)
	}
}

func TestConvertTablesDropsMalformed(t *testing.T) {
	cells := func(texts ...string) []model.Cell {
		out := make([]model.Cell, len(texts))
		for i, s := range texts {
			out[i] = model.Cell{Text: s}
		}
		return out
	}

	found := []*model.Table{
		{Rows: [][]model.Cell{cells("Model", "Accuracy"), cells(" A ", "0.91")}},
		{Rows: [][]model.Cell{cells("only", "header")}},
		{Rows: [][]model.Cell{cells("x", "y"), cells("1")}},
		nil,
	}

	got := convertTables(found, 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 table, got %d: %+v", len(got), got)
	}
	want := Table{Header: []string{"Model", "Accuracy"}, Rows: [][]string{{"A", "0.91"}}}
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("table = %+v, want %+v", got[0], want)
	}
}

// ---------------------------------------------------------------------------
// Format parser tests
// ---------------------------------------------------------------------------

func TestXLSXParserSheetsBecomeTables(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Condition", "Mean", "SD"},
		{"Control", 12.5, 1.2},
		{"Treatment", 15, 2},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	res, err := (&XLSXParser{}).Parse(context.Background(), Source{
		Name:   "results.xlsx",
		Reader: strings.NewReader(buf.String()),
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(res.Tables))
	}
	tbl := res.Tables[0]
	if !reflect.DeepEqual(tbl.Header, []string{"Condition", "Mean", "SD"}) {
		t.Errorf("Header = %v", tbl.Header)
	}
	if tbl.NumRows() != 2 || tbl.Rows[0][1] != "12.5" {
		t.Errorf("Rows = %v", tbl.Rows)
	}
	if !strings.Contains(res.Text, "Treatment") {
		t.Errorf("Text missing sheet content: %q", res.Text)
	}
}

func TestPadRows(t *testing.T) {
	got := padRows([][]string{{"a", "b", "c"}, {"1"}})
	want := [][]string{{"a", "b", "c"}, {"1", "", ""}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("padRows = %v, want %v", got, want)
	}
}

func TestPDFParserRejectsGarbage(t *testing.T) {
	_, err := NewPDFParser().Parse(context.Background(), Source{
		Name:   "broken.pdf",
		Reader: strings.NewReader("this is not a pdf"),
	})
	if err == nil {
		t.Fatal("expected error for non-PDF bytes")
	}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	return data
}

func TestExtractPDFRewindsAndKeepsPageOrder(t *testing.T) {
	r := bytes.NewReader(readFixture(t, "two_pages.pdf"))
	if _, err := r.Seek(0, io.SeekEnd); err != nil {
		t.Fatal(err)
	}

	doc, err := Extract(context.Background(), []Source{{Name: "paper.pdf", Reader: r}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	first := strings.Index(doc.Text, "Rate was 45%")
	second := strings.Index(doc.Text, "then 60% in 2021")
	if first < 0 || second < 0 {
		t.Fatalf("page text missing: %q", doc.Text)
	}
	if first > second {
		t.Errorf("pages out of order: %q", doc.Text)
	}
	if !strings.HasSuffix(doc.Text, "\n") {
		t.Errorf("text should end with a page newline: %q", doc.Text)
	}
	if len(doc.Tables) != 0 {
		t.Errorf("expected no tables in prose-only PDF, got %+v", doc.Tables)
	}
}

func TestPDFParserPages(t *testing.T) {
	tests := []struct {
		fixture   string
		wantPages int
	}{
		{"two_pages.pdf", 2},
		{"blank_middle.pdf", 3},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			res, err := NewPDFParser().Parse(context.Background(), Source{
				Name:   tt.fixture,
				Reader: bytes.NewReader(readFixture(t, tt.fixture)),
			})
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if res.Pages != tt.wantPages {
				t.Errorf("Pages = %d, want %d", res.Pages, tt.wantPages)
			}
			if strings.Contains(res.Text, "\n\n\n") {
				t.Errorf("blank page left a gap in text: %q", res.Text)
			}
			if len(res.Sections) == 0 || res.Sections[0].PageNumber != 1 {
				t.Errorf("sections = %+v", res.Sections)
			}
		})
	}
}

func TestJoinPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{"none", nil, ""},
		{"one", []string{"a"}, "a\n"},
		{"blank skipped", []string{"a", "", "b"}, "a\nb\n"},
		{"all blank", []string{"", ""}, ""},
		{"whitespace kept", []string{" ", "b"}, " \nb\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinPages(tt.pages); got != tt.want {
				t.Errorf("joinPages(%q) = %q, want %q", tt.pages, got, tt.want)
			}
		})
	}
}

// gridFragments lays out cells edge to edge, top row first, the way a
// ruled table comes out of the content stream.
func gridFragments(rows [][]string) []text.TextFragment {
	const w, h = 60.0, 20.0
	var out []text.TextFragment
	for i, row := range rows {
		y := 700 - float64(i)*h
		for j, cell := range row {
			out = append(out, text.TextFragment{
				Text: cell, X: 72 + float64(j)*w, Y: y, Width: w, Height: h,
				FontName: "Helvetica", FontSize: 10,
			})
		}
	}
	return out
}

func TestPageTablesDetectsGrid(t *testing.T) {
	frags := gridFragments([][]string{
		{"Group", "Score", "SD"},
		{"A", "45", "2.1"},
		{"B", "60", "3.4"},
	})
	frags = append(frags, text.TextFragment{Text: "  ", X: 10, Y: 10, Width: 5, Height: 5})

	got := pageTables(tables.NewGeometricDetector(), frags, 612, 792, 2)
	if len(got) != 1 {
		t.Fatalf("expected 1 table, got %d: %+v", len(got), got)
	}
	want := Table{
		Header: []string{"Group", "Score", "SD"},
		Rows:   [][]string{{"A", "45", "2.1"}, {"B", "60", "3.4"}},
	}
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("table = %+v, want %+v", got[0], want)
	}
}

func TestPageTablesIgnoresProse(t *testing.T) {
	frags := []text.TextFragment{
		{Text: "Rate was 45%", X: 72, Y: 720, Width: 80, Height: 12},
	}
	if got := pageTables(tables.NewGeometricDetector(), frags, 612, 792, 1); len(got) != 0 {
		t.Errorf("expected no tables, got %+v", got)
	}
}

func TestMergeCarriesDetectedTables(t *testing.T) {
	found := pageTables(tables.NewGeometricDetector(), gridFragments([][]string{
		{"Model", "Accuracy"},
		{"A", "0.91"},
	}), 612, 792, 1)

	doc := Merge([]*ParseResult{
		{Text: "Rate was 45%\n", Tables: found},
		{Text: "then 60%\n"},
	})
	if len(doc.Tables) != 1 || doc.Tables[0].Header[1] != "Accuracy" {
		t.Errorf("tables = %+v", doc.Tables)
	}
	if doc.Text != "Rate was 45%\nthen 60%\n" {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestTextParser(t *testing.T) {
	res, err := (&TextParser{}).Parse(context.Background(), Source{
		Name:   "notes.txt",
		Reader: strings.NewReader("Abstract\nWe study things.\n\n1 Introduction\nMore text"),
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.HasSuffix(res.Text, "\n") {
		t.Errorf("Text should end with newline: %q", res.Text)
	}
	if len(res.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(res.Sections), res.Sections)
	}
	if res.Sections[0].Type != "abstract" || res.Sections[1].Heading != "1 Introduction" {
		t.Errorf("sections = %+v", res.Sections)
	}
}

// ---------------------------------------------------------------------------
// Section splitting tests
// ---------------------------------------------------------------------------

func TestSplitPageIntoSections(t *testing.T) {
	text := "ABSTRACT\nWe measure X.\n2 Methods\nWe recruited people.\n2.1 Sampling\nRandom.\nReferences\n[1] Foo."
	sections := splitPageIntoSections(text, 3)

	want := []struct {
		heading string
		level   int
		typ     string
	}{
		{"ABSTRACT", 1, "abstract"},
		{"2 Methods", 1, "methods"},
		{"2.1 Sampling", 2, "section"},
		{"References", 1, "references"},
	}
	if len(sections) != len(want) {
		t.Fatalf("expected %d sections, got %d: %+v", len(want), len(sections), sections)
	}
	for i, w := range want {
		s := sections[i]
		if s.Heading != w.heading || s.Level != w.level || s.Type != w.typ || s.PageNumber != 3 {
			t.Errorf("section %d = %+v, want heading=%q level=%d type=%q", i, s, w.heading, w.level, w.typ)
		}
	}
}

func TestSplitPageIntoSectionsNoHeadings(t *testing.T) {
	sections := splitPageIntoSections("just a paragraph\nwith two lines", 1)
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Heading != "" || sections[0].Content != "just a paragraph\nwith two lines" {
		t.Errorf("section = %+v", sections[0])
	}
}

func TestSplitPageIntoSectionsEmptyText(t *testing.T) {
	if got := splitPageIntoSections("   \n  ", 1); len(got) != 0 {
		t.Errorf("expected no sections, got %+v", got)
	}
}

func TestIsLikelyHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"RESULTS", true},
		{"Introduction", true},
		{"Conclusions.", true},
		{"3 Experimental Setup", true},
		{"4.2 Ablation Study", true},
		{"Table 2: Accuracy by model", true},
		{"Figure 3. Learning curves", true},
		{"45%", false},
		{"2021", false},
		{"the table below shows results", false},
		{"12 participants completed the study", false},
		{strings.Repeat("LONG ", 30), false},
	}
	for _, tt := range tests {
		if got := isLikelyHeading(tt.line); got != tt.want {
			t.Errorf("isLikelyHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestClassifySectionType(t *testing.T) {
	tests := []struct {
		heading, content, want string
	}{
		{"Abstract", "", "abstract"},
		{"5 Results", "", "results"},
		{"Materials and Methods", "", "methods"},
		{"Bibliography", "", "references"},
		{"Table 1: Baselines", "", "table"},
		{"", "a|b|c|d|e", "table"},
		{"Discussion", "plain", "section"},
	}
	for _, tt := range tests {
		if got := classifySectionType(tt.heading, tt.content); got != tt.want {
			t.Errorf("classifySectionType(%q, %q) = %q, want %q", tt.heading, tt.content, got, tt.want)
		}
	}
}
