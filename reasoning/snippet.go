package reasoning

import (
	"strings"
	"unicode"
)

// snippetMaxLen is the approximate maximum character length for a snippet.
const snippetMaxLen = 300

// extractSnippet returns the one or two sentences of content that share the
// most significant words with the answer. It returns "" when nothing
// overlaps.
func extractSnippet(content string, answerWords map[string]bool) string {
	if len(answerWords) == 0 || content == "" {
		return ""
	}

	sentences := snippetSplitSentences(content)
	if len(sentences) == 0 {
		return ""
	}

	scores := make([]int, len(sentences))
	best := 0
	for i, s := range sentences {
		for w := range significantWords(s) {
			if answerWords[w] {
				scores[i]++
			}
		}
		if scores[i] > scores[best] {
			best = i
		}
	}
	if scores[best] == 0 {
		return ""
	}

	result := sentences[best]
	if len(result) >= snippetMaxLen {
		return result
	}

	// Extend with the stronger neighbour if it also overlaps and still fits.
	neighbour := -1
	for _, adj := range []int{best + 1, best - 1} {
		if adj < 0 || adj >= len(sentences) || scores[adj] == 0 {
			continue
		}
		if neighbour < 0 || scores[adj] > scores[neighbour] {
			neighbour = adj
		}
	}
	if neighbour < 0 {
		return result
	}
	combined := result + " " + sentences[neighbour]
	if neighbour < best {
		combined = sentences[neighbour] + " " + result
	}
	if len(combined) <= snippetMaxLen {
		return combined
	}
	return result
}

// significantWords returns the set of lowercased words of four or more
// letters that are not stop words. Tokens containing a digit are always
// kept so that statistics like "45" or "0" "05" can anchor a snippet.
func significantWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			words[w] = true
			continue
		}
		if len(w) >= 4 && !snippetStopWords[w] {
			words[w] = true
		}
	}
	return words
}

// snippetAbbreviations end in a period without ending the sentence.
var snippetAbbreviations = []string{"et al.", "fig.", "eq.", "e.g.", "i.e.", "vs.", "approx.", "tab.", "sec."}

// snippetSplitSentences splits text at '.', '?' and '!' followed by
// whitespace or the end of the text, ignoring common abbreviations.
func snippetSplitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			sentences = append(sentences, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && endsWithAbbreviation(cur.String()) {
			continue
		}
		flush()
	}
	flush()
	return sentences
}

func endsWithAbbreviation(s string) bool {
	lower := strings.ToLower(s)
	for _, a := range snippetAbbreviations {
		if strings.HasSuffix(lower, " "+a) || lower == a {
			return true
		}
	}
	return false
}

var snippetStopWords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true,
	"have": true, "been": true, "were": true, "they": true,
	"their": true, "will": true, "would": true, "could": true,
	"should": true, "about": true, "which": true, "there": true,
	"these": true, "those": true, "then": true, "than": true,
	"them": true, "what": true, "when": true, "where": true,
	"more": true, "some": true, "such": true, "only": true,
	"also": true, "very": true, "into": true, "each": true,
	"does": true, "most": true, "other": true, "both": true,
	"between": true, "paper": true, "study": true, "authors": true,
	"source": true, "sources": true, "passage": true,
}
