// Package chunker splits parsed papers into overlapping, store-ready
// chunks using a recursive character splitter.
package chunker

import (
	"encoding/json"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/bbiangul/go-scholar/parser"
	"github.com/bbiangul/go-scholar/store"
)

// DefaultSeparators are tried in order, coarsest first. The empty
// separator splits between characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Config controls the chunking behaviour. Sizes are in characters.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// Chunker converts parsed document sections into store-ready chunks.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration.
// Zero-value fields are replaced with defaults (1000 / 200); a negative
// overlap disables it.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	switch {
	case cfg.ChunkOverlap == 0:
		cfg.ChunkOverlap = 200
	case cfg.ChunkOverlap < 0:
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = DefaultSeparators
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits every section and returns chunks numbered by position.
// Heading, page and section type are carried onto each chunk; DocumentID
// is left for the caller.
func (c *Chunker) Chunk(sections []parser.Section) []store.Chunk {
	var chunks []store.Chunk
	pos := 0
	for _, sec := range sections {
		meta := sectionMeta(sec)
		for _, frag := range c.Split(sec.Content) {
			chunks = append(chunks, store.Chunk{
				Content:       frag,
				ChunkType:     chunkType(sec),
				Heading:       sec.Heading,
				PageNumber:    sec.PageNumber,
				PositionInDoc: pos,
				TokenCount:    estimateTokens(frag),
				Metadata:      meta,
			})
			pos++
		}
	}
	return chunks
}

// Split breaks text into fragments of at most ChunkSize characters where
// the separators allow it. Consecutive fragments share up to ChunkOverlap
// characters.
func (c *Chunker) Split(text string) []string {
	return c.split(text, c.cfg.Separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitOn(text, sep) {
		if piece == "" {
			continue
		}
		if runeLen(piece) < c.cfg.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, c.merge(good, sep)...)
	}
	return out
}

// merge packs pieces into fragments joined by sep, carrying trailing pieces
// forward as overlap.
func (c *Chunker) merge(pieces []string, sep string) []string {
	sepLen := runeLen(sep)
	var (
		out     []string
		current []string
		total   int
	)
	joinCost := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range pieces {
		n := runeLen(p)
		if total+n+joinCost() > c.cfg.ChunkSize && len(current) > 0 {
			if frag := strings.TrimSpace(strings.Join(current, sep)); frag != "" {
				out = append(out, frag)
			}
			for total > c.cfg.ChunkOverlap || (total > 0 && total+n+joinCost() > c.cfg.ChunkSize) {
				drop := runeLen(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}

	if frag := strings.TrimSpace(strings.Join(current, sep)); frag != "" {
		out = append(out, frag)
	}
	return out
}

func splitOn(text, sep string) []string {
	if sep != "" {
		return strings.Split(text, sep)
	}
	out := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// estimateTokens approximates the token count of text using a simple
// word-based heuristic: tokens ~ words * 1.3.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.3))
}

func chunkType(sec parser.Section) string {
	if sec.Type == "" {
		return "paragraph"
	}
	return sec.Type
}

// sectionMeta records the section level as JSON. Returns "" when there is
// nothing to record.
func sectionMeta(sec parser.Section) string {
	if sec.Level == 0 {
		return ""
	}
	b, err := json.Marshal(map[string]int{"level": sec.Level})
	if err != nil {
		return ""
	}
	return string(b)
}
