// internal/workers/schemes/search-schemes/models.go
package searchschemes

import "scheme-matcher/internal/models"

type Input struct {
	Query        string `json:"query"`
	Persona      string `json:"persona"`
	State        string `json:"state,omitempty"`
	BusinessType string `json:"businessType,omitempty"`
	// Category is the farmer category (small, marginal, ...).
	Category       string `json:"category,omitempty"`
	Gender         string `json:"gender,omitempty"`
	LoanAmount     string `json:"loanAmount,omitempty"`
	ExcludeSchemes string `json:"excludeSchemes,omitempty"`
}

type Output struct {
	SearchID      string          `json:"searchId"`
	Candidates    []models.Scheme `json:"candidates"`
	TotalHits     int64           `json:"totalHits"`
	EnhancedQuery string          `json:"enhancedQuery"`
	FetchSize     int             `json:"fetchSize"`
	Indices       []string        `json:"indices"`
}
