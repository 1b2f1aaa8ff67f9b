// internal/matching/scoring/classify.go
package scoring

import (
	"strings"

	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/internal/models"
)

// ClassifySchemeType tells central from state schemes. The scheme_type field
// decides when it says so; otherwise a state name in the scheme name means
// State and a national marker means Central.
func ClassifySchemeType(s models.Scheme, tables *rules.Tables) models.SchemeCategory {
	t := strings.ToLower(s.SchemeType)
	switch {
	case strings.Contains(t, "central"):
		return models.CategoryCentral
	case strings.Contains(t, "state"):
		return models.CategoryState
	}

	name := textnorm.Fold(s.Name)
	for _, st := range tables.States {
		if st.Words != nil && st.Words.MatchString(name) {
			return models.CategoryState
		}
	}
	if _, ok := textnorm.ContainsAny(name, tables.CentralKeywords); ok {
		return models.CategoryCentral
	}
	return models.CategoryOther
}

// FormatDepartment returns the primary department or agency.
func FormatDepartment(s models.Scheme) string {
	return strings.TrimSpace(s.DepartmentAgency.First())
}

// Annotate attaches category and department to each scheme.
func Annotate(schemes []models.Scheme, tables *rules.Tables) []models.MatchedScheme {
	out := make([]models.MatchedScheme, 0, len(schemes))
	for _, s := range schemes {
		out = append(out, models.MatchedScheme{
			Scheme:     s,
			Category:   ClassifySchemeType(s, tables),
			Department: FormatDepartment(s),
		})
	}
	return out
}

// Group lists the names of central and state schemes in result order.
// Schemes classified Other appear in neither list.
func Group(schemes []models.MatchedScheme) models.SchemeGrouping {
	g := models.SchemeGrouping{CentralSchemes: []string{}, StateSchemes: []string{}}
	for _, s := range schemes {
		switch s.Category {
		case models.CategoryCentral:
			g.CentralSchemes = append(g.CentralSchemes, s.Name)
		case models.CategoryState:
			g.StateSchemes = append(g.StateSchemes, s.Name)
		}
	}
	g.CentralCount = len(g.CentralSchemes)
	g.StateCount = len(g.StateSchemes)
	return g
}
