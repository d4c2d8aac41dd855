package reasoning

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bbiangul/go-scholar/store"
)

// Citation represents an extracted citation from an answer.
type Citation struct {
	Text      string `json:"text"`       // The cited text
	SourceRef string `json:"source_ref"` // e.g. "2" for [Source 2], "3.1" for Section 3.1
	Kind      string `json:"kind"`
	ChunkID   int64  `json:"chunk_id"` // Matched chunk ID, 0 if unmatched
	Verified  bool   `json:"verified"`
}

type citationPattern struct {
	kind string
	re   *regexp.Regexp
}

var citationPatterns = []citationPattern{
	{"source", regexp.MustCompile(`\[Source\s*(\d+)\]`)},
	{"file", regexp.MustCompile(`\(([^)]+\.(?:pdf|xlsx|xls|csv|txt))[^)]*\)`)},
	{"section", regexp.MustCompile(`(?:Section|Sec\.|§)\s*(\d+(?:\.\d+)*)`)},
	{"table", regexp.MustCompile(`(?:Table|Tab\.)\s*(\d+)`)},
	{"figure", regexp.MustCompile(`(?:Figure|Fig\.)\s*(\d+)`)},
	{"page", regexp.MustCompile(`(?:Page|p\.)\s*(\d+)`)},
}

// ExtractCitations finds citation references in an answer text and tries to
// match each one to a retrieved chunk.
func ExtractCitations(answer string, chunks []store.RetrievalResult) []Citation {
	var citations []Citation
	seen := make(map[string]bool)

	for _, p := range citationPatterns {
		for _, match := range p.re.FindAllStringSubmatch(answer, -1) {
			ref := strings.TrimSpace(match[0])
			if seen[ref] {
				continue
			}
			seen[ref] = true

			c := Citation{Text: ref, SourceRef: match[1], Kind: p.kind}
			c.ChunkID, c.Verified = matchCitationToChunk(p.kind, match[1], ref, chunks)
			citations = append(citations, c)
		}
	}

	return citations
}

// matchCitationToChunk tries to find the chunk that a citation refers to.
func matchCitationToChunk(kind, ref, text string, chunks []store.RetrievalResult) (int64, bool) {
	switch kind {
	case "source":
		n, err := strconv.Atoi(ref)
		if err == nil && n >= 1 && n <= len(chunks) {
			return chunks[n-1].ChunkID, true
		}
		return 0, false
	case "file":
		lowerRef := strings.ToLower(ref)
		for _, c := range chunks {
			if strings.Contains(strings.ToLower(c.Filename), lowerRef) {
				return c.ChunkID, true
			}
		}
		return 0, false
	case "page":
		n, err := strconv.Atoi(ref)
		if err != nil {
			return 0, false
		}
		for _, c := range chunks {
			if c.PageNumber == n {
				return c.ChunkID, true
			}
		}
		return 0, false
	}

	lowerText := strings.ToLower(text)
	if kind == "section" {
		for _, c := range chunks {
			if headingNumbered(c.Heading, ref) {
				return c.ChunkID, true
			}
		}
	}
	for _, c := range chunks {
		if strings.Contains(strings.ToLower(c.Content), lowerText) {
			return c.ChunkID, true
		}
	}
	return 0, false
}

// headingNumbered reports whether heading starts with the section number
// ref, so "3" matches "3.1 Participants" but not "31 Appendix".
func headingNumbered(heading, ref string) bool {
	if !strings.HasPrefix(heading, ref) {
		return false
	}
	rest := heading[len(ref):]
	return rest == "" || rest[0] < '0' || rest[0] > '9'
}
