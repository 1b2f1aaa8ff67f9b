// internal/workers/schemes/show-more-schemes/models.go
package showmoreschemes

import "scheme-matcher/internal/models"

type Input struct {
	SessionID string `json:"sessionId"`
	Language  string `json:"language,omitempty"`
}

type Output struct {
	SearchID      string                 `json:"searchId"`
	SchemesToShow []models.MatchedScheme `json:"schemesToShow"`
	Pagination    models.PaginationInfo  `json:"pagination"`
	Message       string                 `json:"paginatedMessage"`
	// Exhausted is set when every stored scheme has already been shown.
	Exhausted bool `json:"noMoreSchemes"`
}
