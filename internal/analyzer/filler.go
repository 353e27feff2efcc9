package analyzer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var fillerWords = []string{
	"um", "uh", "like", "you know", "basically", "actually", "literally",
	"so", "well", "right", "okay", "I mean", "kind of", "sort of",
	"just", "really", "very", "honestly", "seriously", "obviously",
}

var fillerPatterns = compileFillers(fillerWords)

func compileFillers(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(w)))
	}
	return patterns
}

// RemoveFillerWords strips spoken fillers and collapses whitespace. Fillers are
// removed one after another in list order.
func RemoveFillerWords(text string) string {
	result := text
	for _, p := range fillerPatterns {
		result = removeWord(p, result)
	}
	return strings.Join(strings.Fields(result), " ")
}

// removeWord drops every match of p that stands alone as a word. RE2's \b only
// knows ASCII, so the boundary is checked here against the neighbouring runes.
func removeWord(p *regexp.Regexp, s string) string {
	var b strings.Builder
	last, from := 0, 0
	for from <= len(s) {
		loc := p.FindStringIndex(s[from:])
		if loc == nil {
			break
		}
		start, end := from+loc[0], from+loc[1]
		if atBoundary(s, start, end) {
			b.WriteString(s[last:start])
			last, from = end, end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		from = start + max(size, 1)
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

func atBoundary(s string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
