// internal/matching/pagination/format.go
package pagination

import (
	"fmt"
	"strings"

	"scheme-matcher/internal/models"
)

type messages struct {
	scheme      string
	benefit     string
	eligibility string
	more        string
	end         string
}

var catalog = map[string]messages{
	"en": {
		scheme:      "Scheme",
		benefit:     "Benefit",
		eligibility: "Eligibility",
		more:        `📋 More schemes are available! Type "show more" to see additional options.`,
		end:         "✅ These are all the schemes matching your profile.",
	},
	"hi": {
		scheme:      "योजना",
		benefit:     "लाभ",
		eligibility: "पात्रता",
		more:        `📋 अधिक योजनाएँ उपलब्ध हैं! अतिरिक्त विकल्प देखने के लिए "show more" लिखें।`,
		end:         "✅ यही सभी योजनाएँ हैं जो आपकी प्रोफ़ाइल से मेल खाती हैं।",
	},
}

const (
	noBenefit     = "Information not available"
	noEligibility = "Contact scheme office for details"
)

// FormatPage renders a page as chat text. Schemes are numbered across the
// whole list. Unknown languages use English.
func FormatPage(page Page, language string) string {
	msg, ok := catalog[strings.ToLower(language)]
	if !ok {
		msg = catalog["en"]
	}

	parts := make([]string, 0, len(page.Schemes)+1)
	for i, s := range page.Schemes {
		n := page.Info.CurrentPage*page.Info.SchemesPerPage + i + 1
		parts = append(parts, fmt.Sprintf("**%s %d: %s**\n📝 %s: %s\n✅ %s: %s",
			msg.scheme, n, s.Name,
			msg.benefit, benefitText(s.Scheme),
			msg.eligibility, eligibilityText(s.Scheme)))
	}

	if page.Info.HasNext {
		parts = append(parts, msg.more)
	} else {
		parts = append(parts, msg.end)
	}
	return strings.Join(parts, "\n\n")
}

func benefitText(s models.Scheme) string {
	if b := strings.TrimSpace(s.Benefit.Join()); b != "" {
		return b
	}
	if b := strings.TrimSpace(s.BenefitSummary); b != "" {
		return b
	}
	return noBenefit
}

func eligibilityText(s models.Scheme) string {
	if e := strings.TrimSpace(s.EligibilityText()); e != "" {
		return e
	}
	return noEligibility
}
