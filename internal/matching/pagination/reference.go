// internal/matching/pagination/reference.go
package pagination

import (
	"regexp"
	"strconv"
	"strings"

	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/internal/models"
)

var firstNumber = regexp.MustCompile(`\d+`)

// ordinals map position words to a 1-based position on the current page.
var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3,
	"1st": 1, "2nd": 2, "3rd": 3,
	"पहली": 1, "पहला": 1, "पहले": 1,
	"दूसरी": 2, "दूसरा": 2, "दूसरे": 2,
	"तीसरी": 3, "तीसरा": 3, "तीसरे": 3,
}

// Reference is a scheme the user pointed at.
type Reference struct {
	Scheme models.MatchedScheme
	// Position is the 1-based index in the candidate list.
	Position int
	// MostRecent is set when nothing in the text identified a scheme and the
	// first scheme of the current page was assumed.
	MostRecent bool
}

// ResolveReference works out which stored scheme a phrase like "scheme 2",
// "the second one" or "stand-up india" refers to. A number is a position in
// the whole list as numbered on screen; an ordinal word is a position on the
// current page.
func (p *Paginator) ResolveReference(state models.PaginationState, text string) (Reference, error) {
	list := state.Candidates
	if len(list) == 0 {
		return Reference{}, ErrNoPriorSearch
	}

	ref := textnorm.Normalize(text)

	if m := firstNumber.FindString(ref); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n >= 1 && n <= len(list) {
			return Reference{Scheme: list[n-1], Position: n}, nil
		}
	}

	if ref != "" {
		for i, s := range list {
			if strings.Contains(textnorm.Normalize(s.Name), ref) {
				return Reference{Scheme: s, Position: i + 1}, nil
			}
		}
	}

	pageStart := state.CurrentPage
	if pageStart < 0 {
		pageStart = 0
	}
	pageStart *= p.pageSize

	for _, word := range strings.Fields(ref) {
		if pos, ok := ordinals[strings.Trim(word, ".,?!")]; ok {
			if idx := pageStart + pos - 1; idx < len(list) {
				return Reference{Scheme: list[idx], Position: idx + 1}, nil
			}
		}
	}

	if pageStart < len(list) {
		return Reference{Scheme: list[pageStart], Position: pageStart + 1, MostRecent: true}, nil
	}
	return Reference{}, ErrUnresolved
}
