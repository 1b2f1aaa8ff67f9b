// internal/matching/pagination/paginator.go

// Package pagination pages through an already ranked candidate list and
// carries the cursor across conversation turns. Every transition takes the
// old state and returns a new one; persisting it is the caller's job.
package pagination

import (
	"errors"

	"scheme-matcher/internal/models"
)

const (
	DefaultPageSize = 3
	DefaultMaxPages = 5
)

var (
	ErrNoPriorSearch = errors.New("no prior search")
	ErrUnresolved    = errors.New("scheme reference could not be resolved")
)

// Page is one slice of the candidate list plus its metadata.
type Page struct {
	Schemes []models.MatchedScheme `json:"schemes_to_show"`
	Info    models.PaginationInfo  `json:"pagination"`
}

// Paginator holds the page geometry. The zero value is not usable; build one
// with New.
type Paginator struct {
	pageSize int
	maxPages int
}

// New returns a Paginator. Non-positive arguments fall back to the defaults.
func New(pageSize, maxPages int) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Paginator{pageSize: pageSize, maxPages: maxPages}
}

func (p *Paginator) PageSize() int { return p.pageSize }

// TotalPages is ceil(n/pageSize) capped at the page limit.
func (p *Paginator) TotalPages(n int) int {
	pages := (n + p.pageSize - 1) / p.pageSize
	if pages > p.maxPages {
		pages = p.maxPages
	}
	return pages
}

// Paginate returns page index of candidates. The index is clamped to
// [0, TotalPages). It has no side effects.
func (p *Paginator) Paginate(candidates []models.MatchedScheme, index int) Page {
	total := p.TotalPages(len(candidates))
	if index >= total {
		index = total - 1
	}
	if index < 0 {
		index = 0
	}

	start := index * p.pageSize
	end := start + p.pageSize
	if start > len(candidates) {
		start = len(candidates)
	}
	if end > len(candidates) {
		end = len(candidates)
	}
	items := make([]models.MatchedScheme, end-start)
	copy(items, candidates[start:end])

	return Page{
		Schemes: items,
		Info: models.PaginationInfo{
			CurrentPage:     index,
			TotalPages:      total,
			SchemesPerPage:  p.pageSize,
			TotalCount:      len(candidates),
			HasNext:         index < total-1,
			HasPrevious:     index > 0,
			SchemesShown:    len(items),
			TotalShownSoFar: end,
		},
	}
}

// Start opens a new search context. Nothing is shown yet.
func (p *Paginator) Start(searchID string, candidates []models.MatchedScheme, language string) models.PaginationState {
	list := make([]models.MatchedScheme, len(candidates))
	copy(list, candidates)
	return models.PaginationState{
		SearchID:    searchID,
		Candidates:  list,
		CurrentPage: -1,
		TotalPages:  p.TotalPages(len(list)),
		Shown:       []string{},
		Language:    language,
	}
}

// Show displays page index of the stored list and marks its schemes shown.
// Re-showing a page is allowed; the shown set only grows.
func (p *Paginator) Show(state models.PaginationState, index int) (Page, models.PaginationState) {
	page := p.Paginate(state.Candidates, index)

	next := cloneState(state)
	next.CurrentPage = page.Info.CurrentPage
	next.TotalPages = page.Info.TotalPages
	seen := toSet(next.Shown)
	for _, s := range page.Schemes {
		if key := s.Key(); !seen[key] {
			seen[key] = true
			next.Shown = append(next.Shown, key)
		}
	}
	return page, next
}

// Advance moves to the next page holding schemes not yet shown. Once the
// list is exhausted it returns an empty page with HasNext false and the state
// unchanged. ErrNoPriorSearch means the caller has to search first.
func (p *Paginator) Advance(state models.PaginationState) (Page, models.PaginationState, error) {
	if len(state.Candidates) == 0 {
		return Page{}, state, ErrNoPriorSearch
	}

	total := p.TotalPages(len(state.Candidates))
	seen := toSet(state.Shown)

	for index := state.CurrentPage + 1; index < total; index++ {
		page := p.Paginate(state.Candidates, index)

		fresh := make([]models.MatchedScheme, 0, len(page.Schemes))
		next := cloneState(state)
		for _, s := range page.Schemes {
			key := s.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			fresh = append(fresh, s)
			next.Shown = append(next.Shown, key)
		}
		if len(fresh) == 0 {
			continue
		}

		next.CurrentPage = index
		next.TotalPages = total
		page.Schemes = fresh
		page.Info.SchemesShown = len(fresh)
		return page, next, nil
	}

	return p.exhausted(state, total), state, nil
}

func (p *Paginator) exhausted(state models.PaginationState, total int) Page {
	current := state.CurrentPage
	if current < 0 {
		current = 0
	}
	return Page{
		Schemes: []models.MatchedScheme{},
		Info: models.PaginationInfo{
			CurrentPage:     current,
			TotalPages:      total,
			SchemesPerPage:  p.pageSize,
			TotalCount:      len(state.Candidates),
			HasNext:         false,
			HasPrevious:     current > 0,
			SchemesShown:    0,
			TotalShownSoFar: len(state.Shown),
		},
	}
}

func cloneState(s models.PaginationState) models.PaginationState {
	out := s
	out.Shown = append(make([]string, 0, len(s.Shown)+DefaultPageSize), s.Shown...)
	return out
}

func toSet(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}
