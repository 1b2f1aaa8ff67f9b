// internal/workers/schemes/match-schemes/models.go
package matchschemes

import (
	"bytes"
	"encoding/json"
	"strconv"

	"scheme-matcher/internal/models"
)

// AmountText accepts the loan amount as either a string or a bare number in
// rupees, since process variables carry both.
type AmountText string

func (a *AmountText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	*a = AmountText(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

type Input struct {
	Candidates       []models.Scheme `json:"candidates"`
	Query            string          `json:"query"`
	LoanAmount       AmountText      `json:"loanAmount,omitempty"`
	BusinessProfile  string          `json:"businessProfile,omitempty"`
	State            string          `json:"state,omitempty"`
	Gender           string          `json:"gender,omitempty"`
	ExcludeSchemes   string          `json:"excludeSchemes,omitempty"`
	SchemeTypeFilter string          `json:"schemeTypeFilter,omitempty"`
	Persona          string          `json:"persona,omitempty"`
}

type Output struct {
	RankedSchemes   []models.MatchedScheme  `json:"rankedSchemes"`
	SchemeNames     []string                `json:"schemeNames"`
	Count           int                     `json:"matchCount"`
	UserAmountLakhs *float64                `json:"userAmountLakhs"`
	AmountMode      models.AmountMode       `json:"amountMode,omitempty"`
	Intent          string                  `json:"intent,omitempty"`
	ExcludedSchemes []string                `json:"excludedSchemes"`
	ExcludedReasons []models.ExcludedScheme `json:"excludedReasons"`
	Grouping        models.SchemeGrouping   `json:"schemeGrouping"`
	ProfileAnalysis models.ProfileAnalysis  `json:"profileAnalysis"`
}
