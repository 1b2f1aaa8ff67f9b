// internal/workers/schemes/paginate-schemes/models.go
package paginateschemes

import "scheme-matcher/internal/models"

type Input struct {
	SessionID string `json:"sessionId"`
	SearchID  string `json:"searchId,omitempty"`
	// RankedSchemes is the match-schemes output. When present with a new
	// search id it replaces the stored list.
	RankedSchemes []models.MatchedScheme `json:"rankedSchemes,omitempty"`
	// NewSearch forces a fresh cursor even when the search id is unchanged.
	NewSearch bool `json:"newSearch,omitempty"`
	// Page re-shows a page of the stored list; nil means the first page of
	// a new list or the current page of the stored one.
	Page     *int   `json:"page,omitempty"`
	Language string `json:"language,omitempty"`
}

type Output struct {
	SearchID      string                 `json:"searchId"`
	SchemesToShow []models.MatchedScheme `json:"schemesToShow"`
	Pagination    models.PaginationInfo  `json:"pagination"`
	Message       string                 `json:"paginatedMessage"`
	ShownSchemes  []string               `json:"shownSchemes"`
	NewSearch     bool                   `json:"isNewSearch"`
}
