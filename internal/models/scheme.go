// internal/models/scheme.go
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TextList holds a catalog field that the index stores either as a plain
// string or as a list of strings. Objects are flattened to their values.
type TextList []string

func (t *TextList) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = flattenText(raw)
	return nil
}

func flattenText(v interface{}) TextList {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		return TextList{val}
	case []interface{}:
		out := make(TextList, 0, len(val))
		for _, item := range val {
			out = append(out, flattenText(item)...)
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(TextList, 0, len(val))
		for _, k := range keys {
			out = append(out, flattenText(val[k])...)
		}
		return out
	default:
		return TextList{fmt.Sprint(val)}
	}
}

// Join concatenates the entries with a single space.
func (t TextList) Join() string {
	return strings.Join(t, " ")
}

// First returns the first entry or "".
func (t TextList) First() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Scheme is one government support programme as returned by the search index.
type Scheme struct {
	ID                  string   `json:"id"`
	GUID                string   `json:"guid,omitempty"`
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	BenefitSummary      string   `json:"benefit_summary,omitempty"`
	Benefit             TextList `json:"benefit,omitempty"`
	Eligibility         TextList `json:"eligibility,omitempty"`
	EligibilityCriteria TextList `json:"eligibility_criteria,omitempty"`
	Process             TextList `json:"process,omitempty"`
	DocumentChecklist   TextList `json:"document_checklist,omitempty"`
	SchemeType          string   `json:"scheme_type,omitempty"`
	DepartmentAgency    TextList `json:"department_agency,omitempty"`
	ServiceType         TextList `json:"service_type,omitempty"`
	BeneficiaryType     TextList `json:"beneficiary_type,omitempty"`
	NameOfState         TextList `json:"name_of_state,omitempty"`
	Score               float64  `json:"score"`
}

// Key identifies a scheme within a candidate list: the id when present,
// otherwise the lower-cased name.
func (s Scheme) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return strings.ToLower(strings.TrimSpace(s.Name))
}

// EligibilityText joins both eligibility fields.
func (s Scheme) EligibilityText() string {
	if len(s.EligibilityCriteria) == 0 {
		return s.Eligibility.Join()
	}
	return strings.TrimSpace(s.Eligibility.Join() + " " + s.EligibilityCriteria.Join())
}

// SchemeCategory is the central/state classification attached after ranking.
type SchemeCategory string

const (
	CategoryCentral SchemeCategory = "Central"
	CategoryState   SchemeCategory = "State"
	CategoryOther   SchemeCategory = "Other"
)

// MatchedScheme is a scheme as it leaves the matching engine.
type MatchedScheme struct {
	Scheme
	Category   SchemeCategory `json:"_scheme_category"`
	Department string         `json:"_department"`
}

// SchemeGrouping lists result scheme names by who runs the scheme.
type SchemeGrouping struct {
	CentralSchemes []string `json:"central_schemes"`
	StateSchemes   []string `json:"state_schemes"`
	CentralCount   int      `json:"central_count"`
	StateCount     int      `json:"state_count"`
}

// ExcludedScheme records why a scheme was removed from the result.
type ExcludedScheme struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}
