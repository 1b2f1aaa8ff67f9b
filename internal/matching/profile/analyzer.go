// internal/matching/profile/analyzer.go

// Package profile turns a free-text user or business profile into structured
// signals: registrations held, whether the business already operates, and the
// descriptive fields used by the relevance scorer.
package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/internal/models"
)

var (
	basedIn      = regexp.MustCompile(`(?i)based\s+in\s+([\p{L}]+)`)
	engagedIn    = regexp.MustCompile(`(?i)engaged\s+in\s+([^.]+?)(?:\s+and\s+offering|\s+offering|\.|$)`)
	productsSuch = regexp.MustCompile(`(?i)products\s+across\s+categories\s+such\s+as\s+([^.]+)`)
	businessName = regexp.MustCompile(`(?i)business\s+name\s+(?:is\s+)?([^.,]+?)(?:\.|,|\s+and\s+|$)`)
	employees    = regexp.MustCompile(`(?i)(\d+)\s*(?:employees?|workers?|staff)`)
)

// Analyzer applies one compiled rule set. It holds no mutable state.
type Analyzer struct {
	tables *rules.Tables
}

// NewAnalyzer fails when the tables carry no state keywords.
func NewAnalyzer(tables *rules.Tables) (*Analyzer, error) {
	if len(tables.States) == 0 {
		return nil, fmt.Errorf("rule tables %s define no states", tables.Version)
	}
	return &Analyzer{tables: tables}, nil
}

// Analyze never fails: empty or unrecognised text yields a profile with no
// flags and no exclusions.
func (a *Analyzer) Analyze(text string) models.UserProfile {
	p := models.UserProfile{
		ExistingRegistrations: []string{},
		ExcludedKeywords:      []string{},
		ExclusionReasons:      []string{},
	}
	if strings.TrimSpace(text) == "" {
		return p
	}

	raw := norm.NFKC.String(text)
	lower := textnorm.Normalize(text)

	a.detectRegistrations(raw, &p)
	a.parseBusiness(raw, lower, &p)
	return p
}

func (a *Analyzer) detectRegistrations(raw string, p *models.UserProfile) {
	seen := make(map[string]bool)
	add := func(d rules.Detector) {
		if seen[d.Key] {
			return
		}
		seen[d.Key] = true
		p.ExistingRegistrations = append(p.ExistingRegistrations, d.Key)
		p.ExcludedKeywords = append(p.ExcludedKeywords, d.Exclusions...)
		if d.Reason != "" {
			p.ExclusionReasons = append(p.ExclusionReasons, d.Reason)
		}
	}

	existing := false
	for _, d := range a.tables.Registrations {
		switch d.Key {
		case models.RegRegistered:
			continue
		case models.RegExistingBusiness:
			existing = d.Match(raw)
			continue
		}
		if !d.Match(raw) {
			continue
		}
		add(d)
		setFlag(&p.Registrations, d.Key)
	}

	// A tax or MSME registration only exists for an operating business, so
	// either one settles the question even without explicit phrasing.
	if existing || p.GSTIN || p.Udyam {
		p.ExistingBusiness = true
		for _, key := range []string{models.RegExistingBusiness, models.RegRegistered} {
			if d, ok := a.tables.Registration(key); ok {
				add(d)
			}
		}
	}
}

func setFlag(r *models.Registrations, key string) {
	switch key {
	case models.RegUdyam:
		r.Udyam = true
	case models.RegGSTIN:
		r.GSTIN = true
	case models.RegIEC:
		r.IEC = true
	case models.RegFSSAI:
		r.FSSAI = true
	case models.RegTradeLicense:
		r.TradeLicense = true
	case models.RegShopEstablishment:
		r.ShopEstablishment = true
	case models.RegMudraLoan:
		r.MudraLoan = true
	case models.RegStandUpIndia:
		r.StandUpIndia = true
	case models.RegSkillTraining:
		r.SkillTraining = true
	}
}

func (a *Analyzer) parseBusiness(raw, lower string, p *models.UserProfile) {
	p.State = a.findState(lower)

	for _, c := range a.tables.Constitutions {
		if c.Match(lower) {
			p.Constitution = c.Name
			break
		}
	}

	if m := engagedIn.FindStringSubmatch(raw); m != nil {
		p.Activities = splitList(m[1])
	}
	if m := productsSuch.FindStringSubmatch(raw); m != nil {
		p.Products = splitList(m[1])
	}
	if m := businessName.FindStringSubmatch(raw); m != nil {
		p.BusinessName = strings.TrimSpace(m[1])
	}

	p.Gender = firstMatch(a.tables.Gender, lower)
	p.SocialCategory = firstMatch(a.tables.SocialCategories, lower)
	p.MSMECategory = firstMatch(a.tables.MSMESize, lower)
	if m := employees.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			p.MSMECategory = sizeForEmployees(n)
		}
	}
}

// findState prefers the place named after "based in", then any known state
// mentioned in the text, then the bare word after "based in".
func (a *Analyzer) findState(lower string) string {
	if loc := basedIn.FindStringIndex(lower); loc != nil {
		after := lower[loc[0]:]
		for _, st := range a.tables.States {
			if st.Words == nil {
				continue
			}
			if m := st.Words.FindStringIndex(after); m != nil && m[0] <= len("based in ")+1 {
				return st.Name
			}
		}
	}
	for _, st := range a.tables.States {
		if st.Words != nil && st.Words.MatchString(lower) {
			return st.Name
		}
	}
	if m := basedIn.FindStringSubmatch(lower); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

func firstMatch(sets []rules.PatternSet, text string) string {
	for _, s := range sets {
		if s.Match(text) {
			return s.Name
		}
	}
	return ""
}

func sizeForEmployees(n int) string {
	switch {
	case n < 10:
		return "micro"
	case n < 50:
		return "small"
	default:
		return "medium"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "and "))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
