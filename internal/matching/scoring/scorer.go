// internal/matching/scoring/scorer.go

// Package scoring assigns relevance points to schemes from the user profile
// and orders them.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"scheme-matcher/internal/matching/filters"
	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/internal/models"
)

const (
	pointsState          = 25
	pointsSupportType    = 20
	pointsSupportPartial = 15
	pointsActivity       = 15
	pointsConstitution   = 10
	pointsMSMESize       = 10
	pointsMSMERegistered = 5
	pointsWomen          = 10
	pointsSocialCategory = 10
	pointsExistingOK     = 5
	penaltyNewOnly       = -100
)

// Context carries caller parameters that fill gaps in the parsed profile.
type Context struct {
	Query  string
	State  string
	Gender string
}

// Scored is a scheme with its relevance score and the reasons behind it.
type Scored struct {
	Scheme  models.Scheme
	Score   int
	Reasons []string
}

// Score computes the relevance of one scheme.
func Score(s models.Scheme, p models.UserProfile, ctx Context, tables *rules.Tables) (int, []string) {
	eligibility := textnorm.Normalize(s.EligibilityText())
	beneficiary := textnorm.Normalize(s.BeneficiaryType.Join())
	name := textnorm.Normalize(s.Name)

	score := 0
	var reasons []string
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	state := p.State
	if state == "" {
		state = ctx.State
	}
	if want := filters.NormState(state); want != "" {
		regions := filters.SchemeRegions(s)
		if len(regions) == 0 || filters.IsNationwide(regions, tables) || containsString(regions, want) {
			add(pointsState, fmt.Sprintf("State: %s ✓", want))
		}
	}

	if points, reason := supportType(s, name, textnorm.Normalize(ctx.Query), tables); points > 0 {
		add(points, reason)
	}

	for _, activity := range p.Activities {
		a := textnorm.Fold(activity)
		for _, group := range tables.Activities {
			if !strings.Contains(a, group.Name) {
				continue
			}
			if _, ok := textnorm.ContainsAny(eligibility+" "+beneficiary, group.Keywords); ok {
				add(pointsActivity, fmt.Sprintf("Activity: %s ✓", group.Name))
				break
			}
		}
	}

	if c := textnorm.Fold(p.Constitution); c != "" {
		if _, restricted := textnorm.ContainsAny(eligibility, tables.ConstitutionRestrictions); !restricted {
			add(pointsConstitution, "Constitution: Compatible ✓")
		} else if strings.Contains(eligibility, c) {
			add(pointsConstitution, fmt.Sprintf("Constitution: %s ✓", c))
		}
	}

	if size := textnorm.Fold(p.MSMECategory); size != "" {
		_, general := textnorm.ContainsAny(eligibility, tables.MSMEEligibility)
		if general || strings.Contains(eligibility, size) {
			add(pointsMSMESize, fmt.Sprintf("MSME Category: %s ✓", size))
		}
	} else if p.Udyam {
		add(pointsMSMERegistered, "MSME Registered ✓")
	}

	gender := p.Gender
	if gender == "" {
		gender = ctx.Gender
	}
	if strings.EqualFold(gender, "female") && tables.Women != nil &&
		tables.Women.MatchString(eligibility+" "+beneficiary+" "+name) {
		add(pointsWomen, "Women Entrepreneur Scheme ✓")
	}

	if (p.SocialCategory == "SC" || p.SocialCategory == "ST") && tables.SocialTarget != nil &&
		tables.SocialTarget.MatchString(eligibility) {
		add(pointsSocialCategory, fmt.Sprintf("%s Category Benefit ✓", p.SocialCategory))
	}

	if p.GSTIN || p.Udyam {
		if _, newOnly := textnorm.ContainsAny(eligibility+" "+name, tables.NewBusinessScoring); newOnly {
			add(penaltyNewOnly, "❌ New Business Only")
		} else {
			add(pointsExistingOK, "Existing Business OK ✓")
		}
	}

	return score, reasons
}

// supportType awards points when the query asks for a kind of support the
// scheme offers. The service type field is a direct hit; the name or the
// benefit summary count as an indirect one.
func supportType(s models.Scheme, name, query string, tables *rules.Tables) (int, string) {
	if query == "" {
		return 0, ""
	}
	service := textnorm.Normalize(s.ServiceType.Join())
	indirect := name + " " + textnorm.Normalize(s.BenefitSummary)

	for _, group := range tables.SupportTypes {
		if !strings.Contains(query, group.Name) {
			continue
		}
		if _, ok := textnorm.ContainsAny(service, group.Keywords); ok {
			return pointsSupportType, fmt.Sprintf("Type: %s ✓", group.Name)
		}
		if _, ok := textnorm.ContainsAny(indirect, group.Keywords); ok {
			return pointsSupportPartial, fmt.Sprintf("Type: %s (indirect) ✓", group.Name)
		}
	}
	return 0, ""
}

// Rank scores every scheme and sorts by score, highest first. Equal scores
// keep their input order.
func Rank(schemes []models.Scheme, p models.UserProfile, ctx Context, tables *rules.Tables) []Scored {
	out := make([]Scored, 0, len(schemes))
	for _, s := range schemes {
		score, reasons := Score(s, p, ctx, tables)
		out = append(out, Scored{Scheme: s, Score: score, Reasons: reasons})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
