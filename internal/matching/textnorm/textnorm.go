// internal/matching/textnorm/textnorm.go

// Package textnorm normalises free text before keyword and pattern matching.
package textnorm

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, lower-cases and collapses whitespace. Full-width
// digits and compatibility forms such as "₹" variants fold to their plain form.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Fold applies NFKC and lower-cases without touching whitespace. Rule
// keywords are folded this way so they compare equal to normalised text.
func Fold(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// ContainsAny returns the first keyword found as a substring of text.
// text is expected to be normalised already.
func ContainsAny(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// CountAny counts how many keywords occur in text.
func CountAny(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// WordSet compiles keywords into one case-insensitive alternation anchored
// on word boundaries. Longer keywords are tried first. Empty keywords are
// ignored.
func WordSet(keywords []string) (*regexp.Regexp, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	sorted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if strings.TrimSpace(kw) != "" {
			sorted = append(sorted, strings.TrimSpace(kw))
		}
	}
	if len(sorted) == 0 {
		return nil, nil
	}
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	quoted := make([]string, 0, len(sorted))
	for _, kw := range sorted {
		kw = Fold(kw)
		q := strings.ReplaceAll(regexp.QuoteMeta(kw), ` `, `\s+`)
		// RE2 word boundaries are ASCII only, so other scripts go unanchored.
		if isASCIIWord(kw[0]) {
			q = `\b` + q
		}
		if isASCIIWord(kw[len(kw)-1]) {
			q += `\b`
		}
		quoted = append(quoted, q)
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

// Alternation builds a non-capturing alternation of the quoted words,
// longest first, without any boundary assertions.
func Alternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, 0, len(sorted))
	for _, w := range sorted {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

func isASCIIWord(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// IsWordRune reports whether r continues a word in any script. Combining
// marks count so that Devanagari vowel signs do not end a word.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

// BoundedAfter reports whether text[end:] does not continue a word.
func BoundedAfter(text string, end int) bool {
	for _, r := range text[end:] {
		return !IsWordRune(r)
	}
	return true
}
