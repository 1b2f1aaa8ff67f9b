// internal/matching/intent/classifier.go

// Package intent infers the kind of support a user asks for and suppresses
// schemes of a clearly different kind.
package intent

import (
	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/internal/models"
)

// Classify returns the first intent whose query keywords occur in the query
// or the amount text, or "" when none do. An empty intent applies no filter.
func Classify(query, amountText string, tables *rules.Tables) string {
	text := textnorm.Normalize(query + " " + amountText)
	if text == "" {
		return ""
	}
	for _, in := range tables.Intents {
		if _, ok := textnorm.ContainsAny(text, in.Query); ok {
			return in.Name
		}
	}
	return ""
}

// Scores counts intent keyword hits in a scheme's category, benefit and
// descriptive fields.
func Scores(s models.Scheme, tables *rules.Tables) map[string]int {
	text := textnorm.Normalize(s.ServiceType.Join() + " " + s.SchemeType + " " + s.BenefitSummary + " " +
		s.Benefit.Join() + " " + s.Description + " " + s.Name)

	out := make(map[string]int, len(tables.Intents))
	for _, in := range tables.Intents {
		out[in.Name] = textnorm.CountAny(text, in.Scheme)
	}
	return out
}

// Filter drops schemes that look like a different kind of support. A scheme
// stays when its score for the wanted intent is at least as high as any other
// intent's; schemes that match no intent at all stay too.
func Filter(schemes []models.Scheme, wanted string, tables *rules.Tables) (kept []models.Scheme, dropped []models.ExcludedScheme) {
	if wanted == "" {
		return schemes, nil
	}
	kept = make([]models.Scheme, 0, len(schemes))
	for _, s := range schemes {
		scores := Scores(s, tables)
		own := scores[wanted]
		best := 0
		for name, v := range scores {
			if name != wanted && v > best {
				best = v
			}
		}
		if own >= best {
			kept = append(kept, s)
			continue
		}
		dropped = append(dropped, models.ExcludedScheme{Name: s.Name, Reason: "does not match requested support type " + wanted})
	}
	return kept, dropped
}
