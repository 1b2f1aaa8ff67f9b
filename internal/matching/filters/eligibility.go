// internal/matching/filters/eligibility.go
package filters

import (
	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/internal/models"
)

// ExcludeIneligible removes schemes the profile makes inapplicable. Two rules
// compose: keywords suppressed by registrations the user already holds, and,
// for an operating business, any scheme reserved for new enterprises. Both
// are absolute; no score can bring a scheme back.
func ExcludeIneligible(schemes []models.Scheme, profile models.UserProfile, tables *rules.Tables) (kept []models.Scheme, dropped []models.ExcludedScheme) {
	if len(profile.ExcludedKeywords) == 0 && !profile.ExistingBusiness {
		return schemes, nil
	}

	denylist := compileDenylist(profile.ExcludedKeywords)

	kept = make([]models.Scheme, 0, len(schemes))
	for _, s := range schemes {
		if kw, ok := denylist(denylistText(s)); ok {
			dropped = append(dropped, models.ExcludedScheme{Name: s.Name, Reason: "already covered: " + kw})
			continue
		}
		if profile.ExistingBusiness {
			if kw, ok := textnorm.ContainsAny(newBusinessText(s), tables.NewBusinessFilter); ok {
				dropped = append(dropped, models.ExcludedScheme{Name: s.Name, Reason: "new businesses only: " + kw})
				continue
			}
		}
		kept = append(kept, s)
	}
	return kept, dropped
}

// compileDenylist matches excluded keywords as whole words, so "shop act"
// does not hit "workshop activities". Keywords that fail to compile fall
// back to substring matching.
func compileDenylist(keywords []string) func(string) (string, bool) {
	re, err := textnorm.WordSet(keywords)
	if err != nil {
		return func(text string) (string, bool) { return textnorm.ContainsAny(text, keywords) }
	}
	return func(text string) (string, bool) {
		if re == nil {
			return "", false
		}
		kw := re.FindString(text)
		return kw, kw != ""
	}
}

func denylistText(s models.Scheme) string {
	return textnorm.Normalize(s.Name + " " + s.Description + " " + s.BenefitSummary + " " + s.Benefit.Join())
}

func newBusinessText(s models.Scheme) string {
	return textnorm.Normalize(s.Name + " " + s.Description + " " + s.BenefitSummary + " " + s.EligibilityText())
}
