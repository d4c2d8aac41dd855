package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bbiangul/go-scholar/parser"
)

// ---------------------------------------------------------------------------
// Splitter
// ---------------------------------------------------------------------------

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
		want    []string
	}{
		{
			name: "fits in one chunk",
			size: 100, overlap: 10,
			text: "para one.\n\npara two.",
			want: []string{"para one.\n\npara two."},
		},
		{
			name: "paragraph boundaries first",
			size: 12, overlap: -1,
			text: "para one.\n\npara two.",
			want: []string{"para one.", "para two."},
		},
		{
			name: "word overlap",
			size: 10, overlap: 4,
			text: "aaa bbb ccc ddd",
			want: []string{"aaa bbb", "bbb ccc", "ccc ddd"},
		},
		{
			name: "long paragraph falls back to spaces",
			size: 10, overlap: -1,
			text: "alpha beta gamma delta\n\nend",
			want: []string{"alpha beta", "gamma", "delta", "end"},
		},
		{
			name: "unbroken text falls back to characters",
			size: 4, overlap: -1,
			text: "abcdefghij",
			want: []string{"abcd", "efgh", "ij"},
		},
		{
			name: "empty",
			size: 10, overlap: 2,
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{ChunkSize: tt.size, ChunkOverlap: tt.overlap})
			got := c.Split(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitRespectsSizeOnProse(t *testing.T) {
	c := New(Config{})
	var b strings.Builder
	for i := 0; i < 400; i++ {
		b.WriteString("The treatment group showed improved recall. ")
		if i%20 == 19 {
			b.WriteString("\n\n")
		}
	}

	frags := c.Split(b.String())
	if len(frags) < 2 {
		t.Fatalf("expected several fragments, got %d", len(frags))
	}
	for i, f := range frags {
		if n := utf8.RuneCountInString(f); n > 1000 {
			t.Errorf("fragment %d has %d characters", i, n)
		}
	}
}

func TestSplitCountsRunes(t *testing.T) {
	c := New(Config{ChunkSize: 5, ChunkOverlap: -1})
	got := c.Split("ééééé ààààà")
	want := []string{"ééééé", "ààààà"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %q, want %q", got, want)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{})
	if c.cfg.ChunkSize != 1000 || c.cfg.ChunkOverlap != 200 {
		t.Errorf("defaults = %d/%d", c.cfg.ChunkSize, c.cfg.ChunkOverlap)
	}
	if !reflect.DeepEqual(c.cfg.Separators, DefaultSeparators) {
		t.Errorf("separators = %q", c.cfg.Separators)
	}

	c = New(Config{ChunkSize: 50, ChunkOverlap: 80})
	if c.cfg.ChunkOverlap >= 50 {
		t.Errorf("overlap %d should be clamped below chunk size", c.cfg.ChunkOverlap)
	}
}

// ---------------------------------------------------------------------------
// Sections to chunks
// ---------------------------------------------------------------------------

func TestChunkCarriesSectionInfo(t *testing.T) {
	c := New(Config{ChunkSize: 25, ChunkOverlap: -1})
	sections := []parser.Section{
		{Heading: "Abstract", Content: "Short abstract.", Level: 1, PageNumber: 1, Type: "abstract"},
		{Heading: "", Content: "", PageNumber: 1},
		{Heading: "2.1 Results", Content: "Recall rose by 45%.\n\nPrecision held steady.", Level: 2, PageNumber: 3},
	}

	chunks := c.Chunk(sections)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}

	first := chunks[0]
	if first.Heading != "Abstract" || first.ChunkType != "abstract" || first.PageNumber != 1 {
		t.Errorf("first chunk = %+v", first)
	}
	if first.Metadata != `{"level":1}` {
		t.Errorf("metadata = %q", first.Metadata)
	}

	for i, ch := range chunks {
		if ch.PositionInDoc != i {
			t.Errorf("chunk %d has position %d", i, ch.PositionInDoc)
		}
		if ch.TokenCount <= 0 {
			t.Errorf("chunk %d has no token estimate", i)
		}
	}

	if chunks[1].Content != "Recall rose by 45%." || chunks[2].Content != "Precision held steady." {
		t.Errorf("results chunks = %q, %q", chunks[1].Content, chunks[2].Content)
	}
	if chunks[2].ChunkType != "paragraph" || chunks[2].PageNumber != 3 {
		t.Errorf("untyped section chunk = %+v", chunks[2])
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 2},
		{"one two three four five six seven eight nine ten", 13},
	}
	for _, tt := range tests {
		if got := estimateTokens(tt.text); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
