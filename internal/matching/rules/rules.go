// internal/matching/rules/rules.go

// Package rules compiles the declarative rule registry into the lookup tables
// used by every matching stage. Tables are immutable once built and safe to
// share between goroutines.
package rules

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/pkg/registry"
)

//go:embed default_rules.yaml
var defaultRules []byte

// DefaultSource returns the embedded rule registry document.
func DefaultSource() []byte {
	return append([]byte(nil), defaultRules...)
}

type Unit struct {
	Name       string
	Multiplier float64
}

type AmountRules struct {
	// UnitPattern captures (number)(unit word); boundaries are checked by the caller.
	UnitPattern *regexp.Regexp
	Units       map[string]Unit
	Above       *regexp.Regexp
	Below       *regexp.Regexp
	// Range captures (currency)(low)(unit)(currency)(high)(unit); use
	// FindRange, which applies the boundary and unit checks.
	Range     *regexp.Regexp
	UnitWords string
}

// RangeMatch is one explicit "A to B" amount mention.
type RangeMatch struct {
	Low, High string
}

// FindRange returns the first "A to B" or "A-B" mention that stands on word
// boundaries and carries a unit word or currency sign on at least one side,
// so years ("2023-24") and registration numbers are not ranges.
func (a AmountRules) FindRange(text string) (RangeMatch, bool) {
	if a.Range == nil {
		return RangeMatch{}, false
	}
	for _, m := range a.Range.FindAllStringSubmatchIndex(text, -1) {
		if r, _ := utf8.DecodeLastRuneInString(text[:m[0]]); m[0] > 0 && textnorm.IsWordRune(r) {
			continue
		}
		lowUnit := m[6] >= 0 && textnorm.BoundedAfter(text, m[7])
		highUnit := m[12] >= 0 && textnorm.BoundedAfter(text, m[13])
		if !highUnit && !textnorm.BoundedAfter(text, m[11]) {
			continue
		}
		if m[2] < 0 && m[8] < 0 && !lowUnit && !highUnit {
			continue
		}
		return RangeMatch{Low: text[m[4]:m[5]], High: text[m[10]:m[11]]}, true
	}
	return RangeMatch{}, false
}

// Multiplier returns the lakh multiplier for a matched unit word.
func (a AmountRules) Multiplier(word string) (float64, bool) {
	u, ok := a.Units[textnorm.Fold(word)]
	return u.Multiplier, ok
}

type Detector struct {
	Key        string
	Reason     string
	Patterns   []*regexp.Regexp
	Exclusions []string
}

// Match reports whether any pattern hits text.
func (d Detector) Match(text string) bool {
	for _, p := range d.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// KeywordSet is a named keyword list. Words matches any keyword on word
// boundaries and is nil when the list is empty.
type KeywordSet struct {
	Name     string
	Keywords []string
	Words    *regexp.Regexp
}

type PatternSet struct {
	Name     string
	Patterns []*regexp.Regexp
}

func (p PatternSet) Match(text string) bool {
	for _, re := range p.Patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

type Intent struct {
	Name   string
	Query  []string
	Scheme []string
}

type Tables struct {
	Version string

	Amount           AmountRules
	Registrations    []Detector
	registrationByID map[string]int

	NewBusinessFilter  []string
	NewBusinessScoring []string

	Intents      []Intent
	SupportTypes []KeywordSet
	Activities   []KeywordSet

	Constitutions            []PatternSet
	ConstitutionRestrictions []string

	States            []KeywordSet
	NationwideRegions []string
	CentralKeywords   []string
	CentralFilter     []string
	StateFilter       []string

	Gender           []PatternSet
	SocialCategories []PatternSet
	Women            *regexp.Regexp
	SocialTarget     *regexp.Regexp
	MSMEEligibility  []string
	MSMESize         []PatternSet

	FarmerKeywords []string
	MSMEKeywords   []string
}

// Registration returns the detector registered under key.
func (t *Tables) Registration(key string) (Detector, bool) {
	i, ok := t.registrationByID[key]
	if !ok {
		return Detector{}, false
	}
	return t.Registrations[i], true
}

// Default compiles the embedded rule registry.
func Default() (*Tables, error) {
	reg, err := registry.Parse(defaultRules)
	if err != nil {
		return nil, err
	}
	return Compile(reg)
}

// MustDefault is Default for tests and package initialisation of tools.
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Load compiles the registry at path, or the embedded one when path is empty.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, err
	}
	return Compile(reg)
}

// Compile validates and compiles a registry.
func Compile(reg *registry.RuleRegistry) (*Tables, error) {
	t := &Tables{
		Version:                  reg.Version,
		registrationByID:         make(map[string]int),
		NewBusinessFilter:        lowerAll(reg.NewBusinessOnly.Filter),
		NewBusinessScoring:       lowerAll(reg.NewBusinessOnly.Scoring),
		ConstitutionRestrictions: lowerAll(reg.ConstitutionRestrictions),
		NationwideRegions:        upperAll(reg.NationwideRegions),
		CentralKeywords:          lowerAll(reg.CentralKeywords),
		CentralFilter:            lowerAll(reg.SchemeTypeFilters.Central),
		StateFilter:              lowerAll(reg.SchemeTypeFilters.State),
		MSMEEligibility:          lowerAll(reg.MSMEEligibility),
		FarmerKeywords:           lowerAll(reg.Persona.Farmer),
		MSMEKeywords:             lowerAll(reg.Persona.MSME),
	}

	var err error
	if t.Amount, err = compileAmount(reg.Amount); err != nil {
		return nil, err
	}

	for _, r := range reg.Registrations {
		if r.Key == "" {
			return nil, fmt.Errorf("registration rule without key")
		}
		if _, dup := t.registrationByID[r.Key]; dup {
			return nil, fmt.Errorf("duplicate registration rule %q", r.Key)
		}
		patterns, err := compileAll(r.Patterns)
		if err != nil {
			return nil, fmt.Errorf("registration %s: %w", r.Key, err)
		}
		t.registrationByID[r.Key] = len(t.Registrations)
		t.Registrations = append(t.Registrations, Detector{
			Key:        r.Key,
			Reason:     r.Reason,
			Patterns:   patterns,
			Exclusions: lowerAll(r.Exclusions),
		})
	}

	for _, in := range reg.Intents {
		t.Intents = append(t.Intents, Intent{Name: in.Name, Query: lowerAll(in.Query), Scheme: lowerAll(in.Scheme)})
	}
	if t.SupportTypes, err = keywordSets(reg.SupportTypes); err != nil {
		return nil, err
	}
	if t.Activities, err = keywordSets(reg.Activities); err != nil {
		return nil, err
	}
	if t.States, err = keywordSets(reg.States); err != nil {
		return nil, err
	}

	if t.Constitutions, err = patternSets("constitution", reg.Constitutions); err != nil {
		return nil, err
	}
	if t.Gender, err = patternSets("gender", reg.Gender); err != nil {
		return nil, err
	}
	if t.SocialCategories, err = patternSets("social category", reg.SocialCategories); err != nil {
		return nil, err
	}
	if t.MSMESize, err = patternSets("msme size", reg.MSMESize); err != nil {
		return nil, err
	}
	if t.Women, err = textnorm.WordSet(reg.TargetGroups.Women); err != nil {
		return nil, fmt.Errorf("women keywords: %w", err)
	}
	if t.SocialTarget, err = textnorm.WordSet(reg.TargetGroups.SocialCategory); err != nil {
		return nil, fmt.Errorf("social category keywords: %w", err)
	}

	return t, nil
}

func compileAmount(a registry.AmountTable) (AmountRules, error) {
	out := AmountRules{Units: make(map[string]Unit)}
	var words []string
	for _, u := range a.Units {
		if u.Multiplier <= 0 {
			return out, fmt.Errorf("amount unit %s: multiplier must be positive", u.Name)
		}
		for _, w := range u.Words {
			w = textnorm.Fold(w)
			out.Units[w] = Unit{Name: u.Name, Multiplier: u.Multiplier}
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return out, fmt.Errorf("amount table has no units")
	}
	out.UnitWords = textnorm.Alternation(words)

	var err error
	if out.UnitPattern, err = regexp.Compile(`(?i)(\d+(?:\.\d+)?)\s*(` + out.UnitWords + `)`); err != nil {
		return out, err
	}
	if out.Above, err = textnorm.WordSet(a.AboveKeywords); err != nil {
		return out, err
	}
	if out.Below, err = textnorm.WordSet(a.BelowKeywords); err != nil {
		return out, err
	}
	joiners, err := rangeJoiners(a.RangeJoiners)
	if err != nil {
		return out, err
	}
	const currency = `(₹|\brs\.?)`
	number := `(\d+(?:\.\d+)?)\s*(` + out.UnitWords + `)?`
	if out.Range, err = regexp.Compile(`(?i)(?:` + currency + `\s*)?` + number + joiners +
		`(?:` + currency + `\s*)?` + number); err != nil {
		return out, err
	}
	return out, nil
}

// rangeJoiners builds the separator between the two ends of a range. Word
// joiners such as "to" must stand alone; symbols may touch the numbers.
func rangeJoiners(joiners []string) (string, error) {
	var alts []string
	for _, j := range joiners {
		j = strings.TrimSpace(textnorm.Fold(j))
		if j == "" {
			continue
		}
		q := regexp.QuoteMeta(j)
		if r, _ := utf8.DecodeRuneInString(j); textnorm.IsWordRune(r) {
			alts = append(alts, `\s+`+q+`\s+`)
			continue
		}
		alts = append(alts, `\s*`+q+`\s*`)
	}
	if len(alts) == 0 {
		return "", fmt.Errorf("amount table has no range joiners")
	}
	return `(?:` + strings.Join(alts, "|") + `)`, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + norm.NFKC.String(p))
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func patternSets(kind string, groups []registry.PatternGroup) ([]PatternSet, error) {
	out := make([]PatternSet, 0, len(groups))
	for _, g := range groups {
		patterns, err := compileAll(g.Patterns)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", kind, g.Name, err)
		}
		out = append(out, PatternSet{Name: g.Name, Patterns: patterns})
	}
	return out, nil
}

func keywordSets(groups []registry.KeywordGroup) ([]KeywordSet, error) {
	out := make([]KeywordSet, 0, len(groups))
	for _, g := range groups {
		words, err := textnorm.WordSet(g.Keywords)
		if err != nil {
			return nil, fmt.Errorf("keywords %s: %w", g.Name, err)
		}
		out = append(out, KeywordSet{Name: g.Name, Keywords: lowerAll(g.Keywords), Words: words})
	}
	return out, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, textnorm.Fold(s))
	}
	return out
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToUpper(s))
	}
	return out
}
