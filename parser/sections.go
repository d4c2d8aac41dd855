package parser

import (
	"strings"
	"unicode"
)

// paperHeadings are section titles that open a new section even when the
// line is not numbered or capitalized.
var paperHeadings = []string{
	"abstract", "introduction", "background", "related work", "literature review",
	"methods", "methodology", "materials and methods", "experimental setup",
	"experiments", "results", "evaluation", "discussion", "limitations",
	"conclusion", "conclusions", "future work", "acknowledgements",
	"acknowledgments", "references", "bibliography", "appendix",
}

// splitPageIntoSections breaks page text into sections at heading lines.
func splitPageIntoSections(text string, pageNum int) []Section {
	var (
		sections       []Section
		currentContent strings.Builder
		currentHeading string
		currentLevel   int
	)

	flush := func() {
		if currentContent.Len() == 0 {
			return
		}
		content := strings.TrimSpace(currentContent.String())
		sections = append(sections, Section{
			Heading:    currentHeading,
			Content:    content,
			Level:      currentLevel,
			PageNumber: pageNum,
			Type:       classifySectionType(currentHeading, content),
		})
		currentContent.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isLikelyHeading(trimmed) {
			flush()
			currentHeading = trimmed
			currentLevel = detectHeadingLevel(trimmed)
			continue
		}
		if currentContent.Len() > 0 {
			currentContent.WriteString("\n")
		}
		currentContent.WriteString(trimmed)
	}
	flush()

	if len(sections) == 0 && strings.TrimSpace(text) != "" {
		sections = append(sections, Section{
			Heading:    currentHeading,
			Content:    strings.TrimSpace(text),
			Level:      currentLevel,
			PageNumber: pageNum,
			Type:       "section",
		})
	}
	return sections
}

func isLikelyHeading(line string) bool {
	if len(line) >= 120 {
		return false
	}

	// Short all-caps line containing letters, e.g. "RESULTS".
	if len(line) > 2 && len(line) < 100 && hasLetter(line) && line == strings.ToUpper(line) {
		return true
	}

	// Numbered section: "1 Introduction", "2.3 Sampling".
	if numberedHeading(line) {
		return true
	}

	lower := strings.ToLower(strings.TrimRight(line, ".:"))
	for _, h := range paperHeadings {
		if lower == h {
			return true
		}
	}

	// "Table 2: ..." / "Figure 3." captions, only when a digit follows.
	for _, prefix := range []string{"table ", "figure ", "fig. "} {
		if strings.HasPrefix(lower, prefix) && len(lower) > len(prefix) &&
			lower[len(prefix)] >= '0' && lower[len(prefix)] <= '9' {
			return true
		}
	}
	return false
}

// numberedHeading matches "1 Title", "2. Title" and "2.1 Title" when the
// line is short and the title starts with an upper-case letter.
func numberedHeading(line string) bool {
	num, rest, ok := strings.Cut(line, " ")
	if !ok || num == "" || len(line) > 80 {
		return false
	}
	for _, r := range strings.TrimRight(num, ".") {
		if r != '.' && (r < '0' || r > '9') {
			return false
		}
	}
	if num[0] < '0' || num[0] > '9' {
		return false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return false
	}
	first := []rune(rest)[0]
	return unicode.IsUpper(first)
}

func detectHeadingLevel(heading string) int {
	num, _, _ := strings.Cut(heading, " ")
	num = strings.TrimRight(num, ".")
	if num != "" && num[0] >= '0' && num[0] <= '9' {
		return strings.Count(num, ".") + 1
	}
	return 1
}

func classifySectionType(heading, content string) string {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "abstract"):
		return "abstract"
	case strings.Contains(h, "reference") || strings.Contains(h, "bibliography"):
		return "references"
	case strings.Contains(h, "method") || strings.Contains(h, "experimental setup"):
		return "methods"
	case strings.Contains(h, "result") || strings.Contains(h, "evaluation"):
		return "results"
	case strings.HasPrefix(h, "table"):
		return "table"
	}
	if strings.Count(content, "\t") > 3 || strings.Count(content, "|") > 3 {
		return "table"
	}
	return "section"
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
