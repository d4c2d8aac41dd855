// Package numeric finds statistical and quantitative literals in free text.
package numeric

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind identifies which pattern produced a match.
type Kind string

const (
	KindPercentage   Kind = "percentage"
	KindSampleSize   Kind = "sample_size"
	KindPValue       Kind = "p_value"
	KindMeanSD       Kind = "mean_sd"
	KindCurrency     Kind = "currency"
	KindYear         Kind = "year"
	KindUnitQuantity Kind = "unit_quantity"
)

// Match is one literal substring found in the text.
type Match struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

type pattern struct {
	kind Kind
	re   *regexp.Regexp
	// leading and trailing mark a \b anchor at that end of the pattern.
	// RE2 only treats ASCII as word characters, so these are rechecked
	// against Unicode letters and digits.
	leading, trailing bool
}

// patterns are applied in this order; results keep it.
var patterns = []pattern{
	{KindPercentage, regexp.MustCompile(`(?i)\b\d+\.?\d*%`), true, false},
	{KindSampleSize, regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(?:participants|subjects|samples|cases)`), true, false},
	{KindPValue, regexp.MustCompile(`(?i)p\s*[<>=]\s*\d+\.?\d*`), false, false},
	{KindMeanSD, regexp.MustCompile(`(?i)\b\d+\.?\d*\s*±\s*\d+\.?\d*`), true, false},
	{KindCurrency, regexp.MustCompile(`(?i)\$\d+\.?\d*[MBK]?`), false, false},
	{KindYear, regexp.MustCompile(`(?i)\b\d{4}\b`), true, true},
	{KindUnitQuantity, regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(?:kg|g|cm|m|mm|seconds?|minutes?|hours?|days?)`), true, false},
}

// findAll returns the non-overlapping matches of p in text, left to right.
// A candidate that sits against a non-ASCII letter or digit is rejected and
// the scan resumes one rune after its start.
func (p pattern) findAll(text string) []string {
	var out []string
	for pos := 0; pos < len(text); {
		loc := p.re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end > start && p.bounded(text, start, end) {
			out = append(out, text[start:end])
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		pos = start + max(size, 1)
	}
	return out
}

func (p pattern) bounded(text string, start, end int) bool {
	if p.leading && start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if p.trailing && end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

var leadingNumber = regexp.MustCompile(`\d+\.?\d*`)

// Extract returns every match of every pattern. Matches are grouped by
// pattern and ordered by position within each group. The same span may be
// reported by several patterns; nothing is deduplicated.
func Extract(text string) []Match {
	var out []Match
	for _, p := range patterns {
		for _, m := range p.findAll(text) {
			out = append(out, Match{Kind: p.kind, Text: m})
		}
	}
	return out
}

// Strings flattens matches to their literal text. The result is never nil.
func Strings(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Text)
	}
	return out
}

// Percentages parses the leading number of every literal containing '%'.
// Literals without a parseable number are skipped.
func Percentages(literals []string) []float64 {
	var out []float64
	for _, lit := range literals {
		if !strings.Contains(lit, "%") {
			continue
		}
		num := leadingNumber.FindString(lit)
		if num == "" {
			continue
		}
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ExtractPercentages is shorthand for Percentages(Strings(Extract(text))).
func ExtractPercentages(text string) []float64 {
	return Percentages(Strings(Extract(text)))
}
