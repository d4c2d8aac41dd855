package retrieval

import (
	"strings"
	"unicode"
)

// queryWords splits a query into lowercase letter/digit runs. Everything
// else, including FTS5 operators and punctuation such as "%" or "±", is a
// separator.
func queryWords(query string) []string {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// sanitizeFTSQuery builds a safe FTS5 OR query: the full phrase plus the
// individual significant words.
func sanitizeFTSQuery(query string) string {
	words := queryWords(query)
	if len(words) == 0 {
		return `""`
	}

	var parts []string
	if len(words) > 1 {
		parts = append(parts, "\""+strings.Join(words, " ")+"\"")
	}
	seen := make(map[string]bool)
	for _, w := range words {
		if len(w) > 2 && !isStopWord(w) && !seen[w] {
			seen[w] = true
			parts = append(parts, w)
		}
	}

	if len(parts) == 0 {
		return strings.Join(words, " OR ")
	}
	return strings.Join(parts, " OR ")
}

// isSynthesisQuery returns true if the query has exhaustive intent:
// asking for all findings, every limitation, a full comparison, etc.
// These queries benefit from a wider retrieval window because relevant
// facts are scattered across the paper.
func isSynthesisQuery(query string) bool {
	lower := strings.ToLower(query)

	exhaustivePatterns := []string{
		"all the", "all of the", "every ", "each of",
		"complete list", "comprehensive", "list all",
		"what are all", "name all", "enumerate",
		"full list", "overall", "main findings",
		"key findings", "all results", "compare the",
	}
	for _, p := range exhaustivePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}

	// Long queries (15+ words) with multiple question keywords suggest
	// broad synthesis questions rather than point lookups.
	words := strings.Fields(lower)
	if len(words) >= 15 {
		qWords := 0
		for _, w := range words {
			switch w {
			case "what", "which", "how", "where", "when", "why", "list", "describe", "name":
				qWords++
			}
		}
		if qWords >= 2 {
			return true
		}
	}

	return false
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"shall": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "what": true, "which": true, "who": true, "whom": true,
	"where": true, "when": true, "how": true, "why": true, "not": true,
	"no": true, "nor": true, "if": true, "then": true, "than": true,
	"so": true, "as": true, "about": true, "into": true, "between": true,
	"paper": true, "study": true, "authors": true,
}

func isStopWord(w string) bool {
	return stopWords[strings.ToLower(w)]
}
