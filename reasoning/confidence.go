package reasoning

import (
	"strings"
	"unicode"

	"github.com/bbiangul/go-scholar/numeric"
	"github.com/bbiangul/go-scholar/store"
)

// ConfidenceWeights controls the relative importance of confidence factors.
type ConfidenceWeights struct {
	SourceCoverage    float64 // share of the top passages the answer draws on
	CitationAccuracy  float64 // share of citations that resolve to a passage
	StatisticFidelity float64 // share of quoted numbers found in the passages
	SelfConsistency   float64
	AnswerLength      float64
}

// DefaultConfidenceWeights returns the weights used by the engine.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		SourceCoverage:    0.25,
		CitationAccuracy:  0.25,
		StatisticFidelity: 0.2,
		SelfConsistency:   0.2,
		AnswerLength:      0.1,
	}
}

// ComputeConfidence scores an answer against the passages it was written
// from. The result is in [0, 1].
func ComputeConfidence(answer string, chunks []store.RetrievalResult, weights ConfidenceWeights) float64 {
	confidence := sourceCoverageScore(answer, chunks)*weights.SourceCoverage +
		citationAccuracyScore(answer, chunks)*weights.CitationAccuracy +
		statisticFidelityScore(answer, chunks)*weights.StatisticFidelity +
		selfConsistencyScore(answer)*weights.SelfConsistency +
		answerLengthScore(answer)*weights.AnswerLength

	return max(0, min(1, confidence))
}

// coverageWindow is how many of the best passages count for coverage.
const coverageWindow = 5

func sourceCoverageScore(answer string, chunks []store.RetrievalResult) float64 {
	if len(chunks) == 0 {
		return 0
	}

	lower := strings.ToLower(answer)
	cited := make(map[int]bool)
	for _, n := range sourceRefs(answer) {
		cited[n] = true
	}

	window := chunks[:min(len(chunks), coverageWindow)]
	referenced := 0
	for i, c := range window {
		switch {
		case cited[i+1]:
		case c.Filename != "" && strings.Contains(lower, strings.ToLower(c.Filename)):
		case c.Heading != "" && strings.Contains(lower, strings.ToLower(c.Heading)):
		case quotesOpening(lower, c.Content):
		default:
			continue
		}
		referenced++
	}
	return float64(referenced) / float64(len(window))
}

// quotesOpening reports whether the answer repeats the first five words of
// a passage.
func quotesOpening(lowerAnswer, content string) bool {
	words := strings.Fields(content)
	if len(words) <= 5 {
		return false
	}
	return strings.Contains(lowerAnswer, strings.ToLower(strings.Join(words[:5], " ")))
}

// citationAccuracyScore is the share of verified citations, or 0.5 when
// the answer cites nothing.
func citationAccuracyScore(answer string, chunks []store.RetrievalResult) float64 {
	citations := ExtractCitations(answer, chunks)
	if len(citations) == 0 {
		return 0.5
	}

	verified := 0
	for _, c := range citations {
		if c.Verified {
			verified++
		}
	}
	return float64(verified) / float64(len(citations))
}

// statisticFidelityScore is the share of numeric literals in the answer
// (percentages, p-values, sample sizes...) that appear verbatim in some
// passage, ignoring whitespace. Answers without numbers score 0.5.
func statisticFidelityScore(answer string, chunks []store.RetrievalResult) float64 {
	matches := numeric.Extract(answer)
	if len(matches) == 0 {
		return 0.5
	}

	passages := make([]string, len(chunks))
	for i, c := range chunks {
		passages[i] = squash(c.Content)
	}

	found := 0
	for _, m := range matches {
		lit := squash(m.Text)
		for _, p := range passages {
			if strings.Contains(p, lit) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(matches))
}

// squash lowercases s and drops whitespace, so "p < 0.05" matches "p<0.05".
func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

var (
	contradictionMarkers = []string{
		"on the other hand",
		"however, it also",
		"contradicts",
		"inconsistent",
	}
	uncertaintyMarkers = []string{
		"i'm not sure",
		"it's unclear",
		"cannot determine",
		"insufficient information",
		"not enough context",
	}
)

func selfConsistencyScore(answer string) float64 {
	lower := strings.ToLower(answer)
	score := 1.0
	for _, c := range contradictionMarkers {
		if strings.Contains(lower, c) {
			score -= 0.15
		}
	}
	for _, u := range uncertaintyMarkers {
		if strings.Contains(lower, u) {
			score -= 0.2
		}
	}
	return max(0, score)
}

// answerLengthScore favours substantive answers; very long ones lose a
// little.
func answerLengthScore(answer string) float64 {
	words := len(strings.Fields(answer))
	switch {
	case words < 10:
		return 0.2
	case words < 30:
		return 0.5
	case words < 100:
		return 0.8
	case words < 500:
		return 1.0
	default:
		return 0.9
	}
}
