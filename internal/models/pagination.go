// internal/models/pagination.go
package models

import "time"

// PaginationState is the per-session cursor over one ranked candidate list.
// CurrentPage is -1 until the first page is shown.
type PaginationState struct {
	SearchID    string          `json:"searchId"`
	Candidates  []MatchedScheme `json:"candidates"`
	CurrentPage int             `json:"currentPage"`
	TotalPages  int             `json:"totalPages"`
	Shown       []string        `json:"shown"`
	Language    string          `json:"language,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsIdle reports whether no page of the list has been shown yet.
func (s PaginationState) IsIdle() bool {
	return s.CurrentPage < 0
}

// PaginationInfo describes one page.
type PaginationInfo struct {
	CurrentPage     int  `json:"current_page"`
	TotalPages      int  `json:"total_pages"`
	SchemesPerPage  int  `json:"schemes_per_page"`
	TotalCount      int  `json:"total_schemes"`
	HasNext         bool `json:"has_next"`
	HasPrevious     bool `json:"has_previous"`
	SchemesShown    int  `json:"schemes_shown"`
	TotalShownSoFar int  `json:"total_shown_so_far"`
}
