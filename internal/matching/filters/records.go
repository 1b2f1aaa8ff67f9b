// internal/matching/filters/records.go

// Package filters holds the list-to-list pipeline stages that drop schemes:
// record validation, quality, previously shown, region, scheme type and
// eligibility.
package filters

import (
	"strings"

	"scheme-matcher/internal/models"
)

// placeholderIDs are listing documents the index stores next to real schemes.
var placeholderIDs = map[string]bool{
	"msme-schemes-list":   true,
	"farmer-schemes-list": true,
}

// ValidateRecords drops hits without a name or with a placeholder id.
func ValidateRecords(schemes []models.Scheme) (kept []models.Scheme, dropped []models.ExcludedScheme) {
	kept = make([]models.Scheme, 0, len(schemes))
	for _, s := range schemes {
		switch {
		case strings.TrimSpace(s.Name) == "":
			dropped = append(dropped, models.ExcludedScheme{Name: s.ID, Reason: "missing name"})
		case placeholderIDs[strings.ToLower(strings.TrimSpace(s.ID))]:
			dropped = append(dropped, models.ExcludedScheme{Name: s.Name, Reason: "placeholder record"})
		default:
			kept = append(kept, s)
		}
	}
	return kept, dropped
}

// FilterMinScore drops hits whose retrieval score is below min.
func FilterMinScore(schemes []models.Scheme, min float64) []models.Scheme {
	if min <= 0 {
		return schemes
	}
	kept := make([]models.Scheme, 0, len(schemes))
	for _, s := range schemes {
		if s.Score >= min {
			kept = append(kept, s)
		}
	}
	return kept
}

// ExcludeShown drops schemes named in a comma-separated list of names the
// user has already seen. Names match when either contains the other, ignoring
// case, so shortened names from earlier turns still count.
func ExcludeShown(schemes []models.Scheme, shown string) []models.Scheme {
	var names []string
	for _, n := range strings.Split(shown, ",") {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return schemes
	}

	kept := make([]models.Scheme, 0, len(schemes))
	for _, s := range schemes {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		seen := false
		for _, n := range names {
			if strings.Contains(name, n) || strings.Contains(n, name) {
				seen = true
				break
			}
		}
		if !seen {
			kept = append(kept, s)
		}
	}
	return kept
}
