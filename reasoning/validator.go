package reasoning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bbiangul/go-scholar/store"
)

var sourceRefPattern = regexp.MustCompile(`\[Source\s*(\d+)\]`)

// validationResult holds the outcome of answer validation.
type validationResult struct {
	citationValid      bool
	citationIssues     []string
	consistencyValid   bool
	consistencyIssues  []string
	completenessValid  bool
	completenessIssues []string
}

func (v *validationResult) summary() string {
	var parts []string

	if !v.citationValid {
		parts = append(parts, "Citation issues: "+strings.Join(v.citationIssues, "; "))
	}
	if !v.consistencyValid {
		parts = append(parts, "Consistency issues: "+strings.Join(v.consistencyIssues, "; "))
	}
	if !v.completenessValid {
		parts = append(parts, "Completeness issues: "+strings.Join(v.completenessIssues, "; "))
	}

	if len(parts) == 0 {
		return "All validations passed."
	}
	return strings.Join(parts, "\n")
}

func (v *validationResult) issues() []string {
	var all []string
	all = append(all, v.citationIssues...)
	all = append(all, v.consistencyIssues...)
	all = append(all, v.completenessIssues...)
	return all
}

func (v *validationResult) confidence() float64 {
	score := 1.0

	if !v.citationValid {
		score -= 0.15 * float64(len(v.citationIssues))
	}
	if !v.consistencyValid {
		score -= 0.2 * float64(len(v.consistencyIssues))
	}
	if !v.completenessValid {
		score -= 0.1 * float64(len(v.completenessIssues))
	}

	if score < 0 {
		score = 0
	}
	return score
}

// validate runs all validators on an answer.
func validate(answer string, chunks []store.RetrievalResult) *validationResult {
	result := &validationResult{
		citationValid:     true,
		consistencyValid:  true,
		completenessValid: true,
	}

	validateCitations(answer, chunks, result)
	validateConsistency(answer, result)
	validateCompleteness(answer, result)

	return result
}

// sourceRefs returns the N of every [Source N] marker in the answer, in
// order of first appearance.
func sourceRefs(answer string) []int {
	var refs []int
	seen := make(map[int]bool)
	for _, m := range sourceRefPattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		refs = append(refs, n)
	}
	return refs
}

// validateCitations checks that the answer cites passages that exist.
func validateCitations(answer string, chunks []store.RetrievalResult, result *validationResult) {
	if len(chunks) == 0 {
		return
	}
	lowerAnswer := strings.ToLower(answer)

	hasAnyRef := false
	for _, n := range sourceRefs(answer) {
		if n >= 1 && n <= len(chunks) {
			hasAnyRef = true
			continue
		}
		result.citationValid = false
		result.citationIssues = append(result.citationIssues,
			fmt.Sprintf("Answer cites [Source %d], but only %d sources were provided", n, len(chunks)))
	}
	if !hasAnyRef {
		for _, c := range chunks {
			if c.Filename != "" && strings.Contains(lowerAnswer, strings.ToLower(c.Filename)) {
				hasAnyRef = true
				break
			}
			if c.Heading != "" && strings.Contains(lowerAnswer, strings.ToLower(c.Heading)) {
				hasAnyRef = true
				break
			}
		}
	}

	if !hasAnyRef {
		result.citationValid = false
		result.citationIssues = append(result.citationIssues,
			"Answer does not reference any of the provided sources")
	}

	// Attributions to other work ("according to Smith et al.") that carry no
	// source marker are likely drawn from outside the passages.
	for _, sent := range snippetSplitSentences(answer) {
		lower := strings.ToLower(sent)
		if !strings.Contains(lower, "according to") && !strings.Contains(lower, "as stated in") && !strings.Contains(lower, "as reported by") {
			continue
		}
		if sourceRefPattern.MatchString(sent) {
			continue
		}
		found := false
		for _, c := range chunks {
			if c.Filename != "" && strings.Contains(lower, strings.ToLower(c.Filename)) {
				found = true
				break
			}
		}
		if !found && (strings.Contains(lower, "et al") || strings.Contains(lower, "study") ||
			strings.Contains(lower, "paper") || strings.Contains(lower, "report")) {
			result.citationValid = false
			result.citationIssues = append(result.citationIssues,
				"Possible fabricated reference in: "+strings.TrimSpace(sent))
		}
	}
}

// validateConsistency flags answers that contradict themselves or lean on
// knowledge outside the passages.
func validateConsistency(answer string, result *validationResult) {
	lowerAnswer := strings.ToLower(answer)

	contradictions := []string{
		"however, the paper states otherwise",
		"contrary to",
		"this contradicts",
		"the paper says the opposite",
	}
	for _, neg := range contradictions {
		if strings.Contains(lowerAnswer, neg) {
			result.consistencyValid = false
			result.consistencyIssues = append(result.consistencyIssues,
				"Answer contains potential self-contradiction")
		}
	}

	if strings.Contains(lowerAnswer, "based on my knowledge") ||
		strings.Contains(lowerAnswer, "in general") ||
		strings.Contains(lowerAnswer, "it is commonly known") ||
		strings.Contains(lowerAnswer, "it is well established") {
		result.consistencyValid = false
		result.consistencyIssues = append(result.consistencyIssues,
			"Answer appears to use external knowledge instead of provided sources")
	}
}

func validateCompleteness(answer string, result *validationResult) {
	if strings.TrimSpace(answer) == "" {
		result.completenessValid = false
		result.completenessIssues = append(result.completenessIssues, "Answer is empty")
	}
}
